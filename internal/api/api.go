// Package api assembles the API module with all domain systems and route
// registration.
package api

import (
	"net/http"

	"github.com/contador-app/contador/internal/config"
	"github.com/contador-app/contador/internal/infrastructure"
	"github.com/contador-app/contador/pkg/middleware"
	"github.com/contador-app/contador/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware,
// and starts the auto-scan scheduler against the process lifecycle.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	if err := domain.Scheduler.Start(runtime.Lifecycle); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
