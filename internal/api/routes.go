package api

import (
	"net/http"

	"github.com/contador-app/contador/internal/config"
	"github.com/contador-app/contador/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(mux, domain.Units.Handler(domain.Payments).Routes())
	routes.Register(mux, domain.Invoices.Handler().Routes())
	routes.Register(mux, domain.Payments.Handler().Routes())
	routes.Register(mux, domain.Classifier.Handler(cfg.API.MaxUploadSizeBytes()).Routes())
	routes.Register(mux, domain.Scans.Handler().Routes())

	files := newFileHandler(runtime.Storage, runtime.Logger)
	routes.Register(mux, files.routes())
}
