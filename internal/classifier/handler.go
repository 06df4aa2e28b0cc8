package classifier

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/contador-app/contador/pkg/handlers"
	"github.com/contador-app/contador/pkg/routes"
)

// Handler provides the one-off document analysis endpoint.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger, and upload cap.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "classifier"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for classifier endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/classifier",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/analyze", Handler: h.Analyze},
		},
	}
}

// Analyze classifies a single uploaded document and returns the raw result.
// Expects a multipart form with a "file" part and a "unit_id" field.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	unitID, err := uuid.Parse(r.FormValue("unit_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("unit_id is required"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if mimeType != "application/pdf" && !strings.HasPrefix(mimeType, "image/") {
		handlers.RespondError(w, h.logger, http.StatusUnsupportedMediaType, ErrUnsupportedType)
		return
	}

	unitCtx := UnitContext{UnitID: unitID, UnitName: r.FormValue("unit_name")}

	result, err := h.sys.Classify(r.Context(), data, mimeType, unitCtx)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
