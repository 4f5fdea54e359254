package auth

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"client-registry/internal/httpx"
	"client-registry/internal/observability"
)

type Handler struct {
	service *Service
	now     func() time.Time
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required"`
}

func (r *credentialsRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !httpx.Bind(w, r, &body) {
		return
	}

	if _, err := h.service.Register(r.Context(), body.Username, body.Password); err != nil {
		h.writeServiceError(w, err, "failed to register user")
		return
	}

	httpx.WriteMessage(w, http.StatusCreated, "User created successfully")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !httpx.Bind(w, r, &body) {
		return
	}

	result, err := h.service.Login(r.Context(), LoginInput{
		Username:      body.Username,
		Password:      body.Password,
		SourceAddress: httpx.ClientIP(r),
		ClientAgent:   r.UserAgent(),
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to login")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "Refresh token required")
		return
	}

	body.RefreshToken = strings.TrimSpace(body.RefreshToken)
	if body.RefreshToken == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "Refresh token required")
		return
	}

	result, err := h.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "User not found")
			return
		}
		h.writeServiceError(w, err, "failed to refresh token")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	var body updatePasswordRequest
	if !httpx.Bind(w, r, &body) {
		return
	}

	if err := h.service.UpdatePassword(r.Context(), identity, body.CurrentPassword, body.NewPassword); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		h.writeServiceError(w, err, "failed to update password")
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Password updated successfully")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	var body logoutRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &body); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.service.Logout(r.Context(), identity, body.RefreshToken); err != nil {
		h.writeServiceError(w, err, "failed to logout")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps auth errors to responses. Anything unrecognised is
// reported to sentry and answered with fallback.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var violation *PolicyViolation
	if errors.As(err, &violation) {
		httpx.WriteError(w, http.StatusBadRequest, violation.Message)
		return
	}

	var locked *LockedError
	if errors.As(err, &locked) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(locked.RetryAt, h.now())))
		httpx.WriteError(w, http.StatusTooManyRequests, "Account temporarily locked due to multiple failed attempts. Please try again later.")
		return
	}

	switch {
	case errors.Is(err, ErrDuplicateUsername):
		httpx.WriteError(w, http.StatusBadRequest, "Username already exists")
	case errors.Is(err, ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrInvalidRefreshToken):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, ErrCurrentPasswordIncorrect):
		httpx.WriteError(w, http.StatusUnauthorized, "Current password is incorrect")
	case errors.Is(err, ErrTokenRevoked):
		httpx.WriteError(w, http.StatusForbidden, "Invalid or expired token")
	default:
		observability.CaptureError(err)
		httpx.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

func retryAfterSeconds(at, now time.Time) int {
	seconds := int(math.Ceil(at.Sub(now).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
