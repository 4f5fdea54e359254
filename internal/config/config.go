package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"

	minSecretBytes = 16
)

type Config struct {
	Port   string
	AppEnv string

	// TrustProxy makes client addresses come from X-Forwarded-For/X-Real-IP.
	TrustProxy bool

	SentryDSN string

	Database Database
	Auth     Auth

	RedisURL string

	AdminUsername string
	AdminPassword string
}

type Database struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	RunMigrations   bool
}

type Auth struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	MaxFailedAttempts int
	LockWindow        time.Duration

	PasswordHasher string
	BcryptCost     int

	RateLimitMax    int
	RateLimitWindow time.Duration

	APIRateLimitMax    int
	APIRateLimitWindow time.Duration
}

// Load reads the process environment once. Every value that the service
// relies on per request is resolved and validated here.
func Load() (Config, error) {
	cfg := Config{
		Port:      envOrDefault("PORT", "8080"),
		AppEnv:    envOrDefault("APP_ENV", "development"),
		SentryDSN: strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		RedisURL:  strings.TrimSpace(os.Getenv("REDIS_URL")),

		TrustProxy: EnvBoolOrDefault("TRUST_PROXY", false),

		AdminUsername: strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		Database: Database{
			Driver:          strings.ToLower(envOrDefault("DATABASE_DRIVER", DriverPostgres)),
			URL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
			MaxOpenConns:    envIntOrDefault("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
			ConnMaxIdleTime: envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
			RunMigrations:   EnvBoolOrDefault("RUN_MIGRATIONS", true),
		},

		Auth: Auth{
			AccessSecret:      strings.TrimSpace(os.Getenv("JWT_ACCESS_SECRET")),
			RefreshSecret:     strings.TrimSpace(os.Getenv("JWT_REFRESH_SECRET")),
			AccessTTL:         envMinutesOrDefault("ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTTL:        envHoursOrDefault("REFRESH_TOKEN_TTL_HOURS", 168),
			MaxFailedAttempts: envIntOrDefault("LOGIN_MAX_ATTEMPTS", 5),
			LockWindow:        envMinutesOrDefault("LOGIN_LOCK_MINUTES", 15),
			PasswordHasher:    strings.ToLower(envOrDefault("PASSWORD_HASHER", HasherBcrypt)),
			BcryptCost:        envIntOrDefault("BCRYPT_COST", 10),
			RateLimitMax:      envIntOrDefault("AUTH_RATE_LIMIT_MAX", 20),
			RateLimitWindow:   envSecondsOrDefault("AUTH_RATE_LIMIT_WINDOW_SECONDS", 3600),

			APIRateLimitMax:    envIntOrDefault("API_RATE_LIMIT_MAX", 100),
			APIRateLimitWindow: envSecondsOrDefault("API_RATE_LIMIT_WINDOW_SECONDS", 900),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be %q or %q", DriverPostgres, DriverSQLite))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("missing required env: DATABASE_URL"))
	}

	if c.Auth.AccessSecret == "" {
		errs = append(errs, errors.New("missing required env: JWT_ACCESS_SECRET"))
	} else if len(c.Auth.AccessSecret) < minSecretBytes {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_SECRET must be at least %d bytes", minSecretBytes))
	}
	if c.Auth.RefreshSecret == "" {
		errs = append(errs, errors.New("missing required env: JWT_REFRESH_SECRET"))
	} else if len(c.Auth.RefreshSecret) < minSecretBytes {
		errs = append(errs, fmt.Errorf("JWT_REFRESH_SECRET must be at least %d bytes", minSecretBytes))
	}
	if c.Auth.AccessSecret != "" && c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.Auth.AccessTTL >= c.Auth.RefreshTTL {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL_MINUTES must be shorter than REFRESH_TOKEN_TTL_HOURS"))
	}

	switch c.Auth.PasswordHasher {
	case HasherBcrypt, HasherArgon2id:
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_HASHER must be %q or %q", HasherBcrypt, HasherArgon2id))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, errors.New("BCRYPT_COST must be between 4 and 31"))
	}

	if (c.AdminUsername == "") != (strings.TrimSpace(c.AdminPassword) == "") {
		errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD are required together"))
	}

	return errors.Join(errs...)
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func envSecondsOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Second
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
