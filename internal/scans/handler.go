package scans

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/contador-app/contador/pkg/handlers"
	"github.com/contador-app/contador/pkg/routes"
)

// Handler provides HTTP endpoints for scan operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "scans"),
	}
}

// Routes returns the route group definition for scan endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/scans",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{unitID}", Handler: h.Start},
			{Method: "GET", Pattern: "/jobs/{id}", Handler: h.Find},
		},
	}
}

// Start kicks off a mailbox scan for the unit and returns the job id.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	unitID, err := uuid.Parse(r.PathValue("unitID"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	jobID, err := h.sys.Start(r.Context(), unitID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, map[string]uuid.UUID{"job_id": jobID})
}

// Find returns a scan job snapshot for polling.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	job, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, job)
}
