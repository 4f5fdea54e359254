package auth

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	PasswordMinLength = 8
	// bcrypt ignores input past 72 bytes and x/crypto rejects it outright.
	PasswordMaxBytes = 72

	PasswordSymbols = "@$!%*?&"
)

// ValidatePassword reports the first rule the candidate breaks, checking
// length before composition. Only ASCII letters, digits and PasswordSymbols
// are accepted.
func ValidatePassword(candidate string) error {
	if utf8.RuneCountInString(candidate) < PasswordMinLength {
		return &PolicyViolation{
			Rule:    RuleMinLength,
			Message: fmt.Sprintf("Password must be at least %d characters long", PasswordMinLength),
		}
	}
	if len(candidate) > PasswordMaxBytes {
		return &PolicyViolation{
			Rule:    RuleMaxLength,
			Message: fmt.Sprintf("Password must be at most %d bytes long", PasswordMaxBytes),
		}
	}

	var hasLower, hasUpper, hasDigit, hasSymbol, hasOther bool
	for _, r := range candidate {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		case strings.ContainsRune(PasswordSymbols, r):
			hasSymbol = true
		default:
			hasOther = true
		}
	}

	switch {
	case !hasLower:
		return &PolicyViolation{Rule: RuleLowercase, Message: "Password must contain at least one lowercase letter"}
	case !hasUpper:
		return &PolicyViolation{Rule: RuleUppercase, Message: "Password must contain at least one uppercase letter"}
	case !hasDigit:
		return &PolicyViolation{Rule: RuleDigit, Message: "Password must contain at least one number"}
	case !hasSymbol:
		return &PolicyViolation{
			Rule:    RuleSymbol,
			Message: fmt.Sprintf("Password must contain at least one special character (%s)", PasswordSymbols),
		}
	case hasOther:
		return &PolicyViolation{
			Rule:    RuleCharacters,
			Message: fmt.Sprintf("Password may only contain letters, numbers and %s", PasswordSymbols),
		}
	}

	return nil
}
