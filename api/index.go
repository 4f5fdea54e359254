package api

import (
	"net/http"
	"sync"

	"client-registry/app"
	"client-registry/internal/config"
	"client-registry/internal/httpx"
)

var (
	initOnce   sync.Once
	apiRuntime *app.Runtime
	initErr    error
)

// Handler is the serverless entry point. The runtime is built on the first
// invocation and reused while the instance stays warm.
func Handler(w http.ResponseWriter, r *http.Request) {
	initOnce.Do(func() {
		apiRuntime, initErr = app.Build(app.Options{
			LoadDotEnv:    false,
			RunMigrations: config.EnvBoolOrDefault("RUN_MIGRATIONS", false),
		})
	})

	if initErr != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "application bootstrap failed")
		return
	}

	apiRuntime.Handler.ServeHTTP(w, r)
}
