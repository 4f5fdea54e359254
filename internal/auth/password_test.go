package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantRule PolicyRule
	}{
		{name: "valid", password: "Str0ng!Pass"},
		{name: "exactly eight", password: "Aa1@aaaa"},
		{name: "empty", password: "", wantRule: RuleMinLength},
		{name: "seven chars", password: "Aa1@aaa", wantRule: RuleMinLength},
		{name: "short and weak reports length", password: "abc", wantRule: RuleMinLength},
		{name: "no lowercase", password: "STR0NG!PASS", wantRule: RuleLowercase},
		{name: "no uppercase", password: "str0ng!pass", wantRule: RuleUppercase},
		{name: "no digit", password: "Strong!Pass", wantRule: RuleDigit},
		{name: "no symbol", password: "Str0ngPass", wantRule: RuleSymbol},
		{name: "symbol outside set", password: "Str0ng#Pass", wantRule: RuleSymbol},
		{name: "too long for bcrypt", password: "Aa1@" + strings.Repeat("a", 69), wantRule: RuleMaxLength},
		{name: "every allowed symbol", password: "Aa1@$!%*?&"},
		{name: "symbol outside set alongside a valid one", password: "Str0ng!Pass#", wantRule: RuleCharacters},
		{name: "space", password: "Str0ng!Pass word", wantRule: RuleCharacters},
		{name: "non-ascii letter", password: "Str0ng!Päss", wantRule: RuleCharacters},
		{name: "non-ascii letters are not lowercase", password: "ÄÄ1@ääää", wantRule: RuleLowercase},
		{name: "unicode digit is not a digit", password: "Strong!Pass٣", wantRule: RuleDigit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantRule == "" {
				assert.NoError(t, err)
				return
			}

			var violation *PolicyViolation
			require.True(t, errors.As(err, &violation), "expected PolicyViolation, got %v", err)
			assert.Equal(t, tt.wantRule, violation.Rule)
			assert.NotEmpty(t, violation.Message)
		})
	}
}

func TestValidatePassword_LengthMessage(t *testing.T) {
	err := ValidatePassword("short")
	require.Error(t, err)
	assert.Equal(t, "Password must be at least 8 characters long", err.Error())
}
