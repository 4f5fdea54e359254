package httpx

import (
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)

var validate = newValidator()

type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

type validationResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names rather than Go field names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})

	return v
}

// Validate returns nil when data satisfies its `validate` tags.
func Validate(data any) []FieldError {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []FieldError{{Field: "body", Tag: "invalid"}}
	}

	out := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		out = append(out, FieldError{Field: e.Field(), Tag: e.Tag(), Param: e.Param()})
	}
	return out
}

// Normalizer is implemented by request bodies that clean their own input
// (trimming, casing) before validation.
type Normalizer interface {
	Normalize()
}

// Bind decodes and validates a request body. On failure it has already
// written the 400 response and returns false.
func Bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := DecodeJSON(w, r, dst); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}

	if n, ok := dst.(Normalizer); ok {
		n.Normalize()
	}

	if errs := Validate(dst); len(errs) > 0 {
		WriteJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Details: errs})
		return false
	}

	return true
}
