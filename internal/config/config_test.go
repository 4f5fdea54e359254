package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/clients")
	t.Setenv("JWT_ACCESS_SECRET", "access-secret-0123456789")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret-0123456789")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.RunMigrations)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 5, cfg.Auth.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LockWindow)
	assert.Equal(t, HasherBcrypt, cfg.Auth.PasswordHasher)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 20, cfg.Auth.RateLimitMax)
	assert.Equal(t, time.Hour, cfg.Auth.RateLimitWindow)
	assert.Equal(t, 100, cfg.Auth.APIRateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.Auth.APIRateLimitWindow)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "60")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("PASSWORD_HASHER", "argon2id")
	t.Setenv("RUN_MIGRATIONS", "off")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, 3, cfg.Auth.MaxFailedAttempts)
	assert.Equal(t, HasherArgon2id, cfg.Auth.PasswordHasher)
	assert.False(t, cfg.Database.RunMigrations)
	assert.True(t, cfg.TrustProxy)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOGIN_MAX_ATTEMPTS", "abc")
	t.Setenv("LOGIN_LOCK_MINUTES", "-4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Auth.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LockWindow)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing database url",
			env:     map[string]string{"DATABASE_URL": ""},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"DATABASE_DRIVER": "mysql"},
			wantErr: "DATABASE_DRIVER",
		},
		{
			name:    "missing access secret",
			env:     map[string]string{"JWT_ACCESS_SECRET": ""},
			wantErr: "JWT_ACCESS_SECRET",
		},
		{
			name:    "short refresh secret",
			env:     map[string]string{"JWT_REFRESH_SECRET": "short"},
			wantErr: "JWT_REFRESH_SECRET must be at least",
		},
		{
			name: "identical secrets",
			env: map[string]string{
				"JWT_ACCESS_SECRET":  "same-secret-0123456789",
				"JWT_REFRESH_SECRET": "same-secret-0123456789",
			},
			wantErr: "must differ",
		},
		{
			name:    "unknown hasher",
			env:     map[string]string{"PASSWORD_HASHER": "md5"},
			wantErr: "PASSWORD_HASHER",
		},
		{
			name:    "admin username without password",
			env:     map[string]string{"ADMIN_USERNAME": "root"},
			wantErr: "required together",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvBoolOrDefault(t *testing.T) {
	t.Setenv("FLAG_ON", "yes")
	t.Setenv("FLAG_OFF", "0")
	t.Setenv("FLAG_BAD", "maybe")

	assert.True(t, EnvBoolOrDefault("FLAG_ON", false))
	assert.False(t, EnvBoolOrDefault("FLAG_OFF", true))
	assert.True(t, EnvBoolOrDefault("FLAG_BAD", true))
	assert.False(t, EnvBoolOrDefault("FLAG_UNSET", false))
}
