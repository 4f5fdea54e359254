package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"client-registry/internal/auth"
	"client-registry/internal/client"
	"client-registry/internal/config"
	"client-registry/internal/dashboard"
	"client-registry/internal/db"
	"client-registry/internal/health"
	"client-registry/internal/httpx"
	"client-registry/internal/observability"
)

const startupTimeout = 10 * time.Second

type Options struct {
	LoadDotEnv    bool
	RunMigrations bool
}

type Runtime struct {
	Handler http.Handler
	Config  config.Config
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger()

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	dialect, err := db.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(ctx, dialect, cfg.Database.URL, db.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}

	if options.RunMigrations && cfg.Database.RunMigrations {
		if err := db.RunMigrations(database, dialect); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	var redisClient *redis.Client
	closeAll := func() error {
		observability.FlushSentry()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return database.Close()
	}

	var denylist auth.Denylist = auth.NewMemoryDenylist()
	if cfg.RedisURL != "" {
		redisOptions, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = closeAll()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(redisOptions)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = closeAll()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		denylist = auth.NewRedisDenylist(redisClient, "")
	}

	hasher, err := auth.NewHasher(cfg.Auth.PasswordHasher, cfg.Auth.BcryptCost, 0)
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("init token service: %w", err)
	}

	authRepo := auth.NewRepository(database, dialect)
	authService := auth.NewService(authRepo, authRepo, hasher, tokens).
		WithSecurityConfig(cfg.Auth.MaxFailedAttempts, cfg.Auth.LockWindow).
		WithDenylist(denylist).
		WithLogger(logger)

	if err := authService.BootstrapFromEnv(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	healthHandler := health.NewHandler(database, time.Now())
	if redisClient != nil {
		healthHandler.WithRedis(redisClient)
	}

	mux := routes(routeDeps{
		auth:      auth.NewHandler(authService),
		tokens:    tokens,
		clients:   client.NewHandler(client.NewRepository(database, dialect)),
		dashboard: dashboard.NewHandler(dashboard.NewRepository(database, dialect)),
		health:    healthHandler,
		authLimiter: auth.NewRateLimiter(
			cfg.Auth.RateLimitMax,
			cfg.Auth.RateLimitWindow,
			auth.AuthRateLimitMessage,
		),
		apiLimiter: auth.NewRateLimiter(
			cfg.Auth.APIRateLimitMax,
			cfg.Auth.APIRateLimitWindow,
			auth.APIRateLimitMessage,
		),
	})

	var handler http.Handler = observability.RequestLoggingMiddleware(logger, mux)
	if cfg.TrustProxy {
		handler = httpx.TrustProxyHeaders(handler)
	}
	handler = observability.RecoverMiddleware(logger, handler)

	return &Runtime{
		Handler: handler,
		Config:  cfg,
		Close:   closeAll,
	}, nil
}

type routeDeps struct {
	auth        *auth.Handler
	tokens      auth.TokenVerifier
	clients     *client.Handler
	dashboard   *dashboard.Handler
	health      *health.Handler
	authLimiter *auth.RateLimiter
	apiLimiter  *auth.RateLimiter
}

// routes puts every API route behind the shared per-IP limiter; health
// checks are left out of it.
func routes(deps routeDeps) *http.ServeMux {
	api := func(h http.Handler) http.Handler {
		return deps.apiLimiter.Middleware(h)
	}
	public := func(h http.HandlerFunc) http.Handler {
		return api(h)
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return api(auth.Middleware(deps.tokens, h))
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return api(deps.authLimiter.Middleware(h))
	}

	mux := http.NewServeMux()

	mux.Handle("POST /auth/register", limited(deps.auth.Register))
	mux.Handle("POST /auth/login", limited(deps.auth.Login))
	mux.Handle("POST /auth/refresh-token", limited(deps.auth.RefreshToken))
	mux.Handle("PUT /auth/update-password", protected(deps.auth.UpdatePassword))
	mux.Handle("POST /auth/logout", protected(deps.auth.Logout))

	mux.Handle("POST /register-client", protected(deps.clients.CreateClient))
	mux.Handle("GET /clients", protected(deps.clients.ListClients))
	mux.Handle("GET /clients/{id}", protected(deps.clients.GetClient))
	mux.Handle("PUT /clients/{id}", protected(deps.clients.UpdateClient))
	mux.Handle("DELETE /clients/{id}", protected(deps.clients.DeleteClient))
	mux.Handle("PUT /clients/{id}/state", protected(deps.clients.UpdateClientState))
	mux.Handle("GET /states", public(deps.clients.ListStates))
	mux.Handle("GET /organizations", protected(deps.clients.ListOrganizations))

	mux.Handle("POST /pre-request", protected(deps.clients.CreateRequest))
	mux.Handle("GET /pending-requests", protected(deps.clients.PendingRequests))
	mux.Handle("POST /update-pnumber", protected(deps.clients.UpdatePnumber))
	mux.Handle("GET /accepted-requests", protected(deps.clients.AcceptedRequests))

	mux.Handle("GET /dashboard/statistics", protected(deps.dashboard.Statistics))

	mux.HandleFunc("GET /health", deps.health.System)
	mux.HandleFunc("GET /health/database", deps.health.Database)

	return mux
}

