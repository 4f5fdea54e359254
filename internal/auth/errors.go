package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrDuplicateUsername        = errors.New("username already exists")
	ErrUserNotFound             = errors.New("user not found")
	ErrInvalidRefreshToken      = errors.New("invalid refresh token")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	ErrTokenRevoked             = errors.New("token revoked")
)

// Token verification failures. Callers match them with errors.Is.
var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
)

// LockedError is returned by Login while the username has too many recent
// failures. RetryAt is when the oldest counted failure leaves the window.
type LockedError struct {
	RetryAt time.Time
}

func (e *LockedError) Error() string {
	return "account temporarily locked"
}

type PolicyRule string

const (
	RuleMinLength  PolicyRule = "min_length"
	RuleMaxLength  PolicyRule = "max_length"
	RuleLowercase  PolicyRule = "lowercase"
	RuleUppercase  PolicyRule = "uppercase"
	RuleDigit      PolicyRule = "digit"
	RuleSymbol     PolicyRule = "symbol"
	RuleCharacters PolicyRule = "characters"
)

type PolicyViolation struct {
	Rule    PolicyRule
	Message string
}

func (v *PolicyViolation) Error() string {
	return v.Message
}
