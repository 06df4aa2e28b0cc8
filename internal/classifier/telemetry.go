package classifier

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
)

// Metric statuses and request categories.
const (
	MetricStatusSuccess = "SUCCESS"
	MetricStatusError   = "ERROR"

	RequestClassification = "CLASSIFICATION"
	RequestAnalysis       = "ANALYSIS"
)

// Metric is one telemetry row describing a model call.
type Metric struct {
	UnitID           *uuid.UUID
	ModelName        string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	LatencyMs        int64
	Status           string
	ErrorMessage     *string
	RequestType      string
}

// telemetry persists classifier metrics. Write failures are logged and
// swallowed; telemetry never breaks a classification.
type telemetry struct {
	db     *sql.DB
	logger *slog.Logger
}

func (t *telemetry) emit(ctx context.Context, m Metric) {
	_, err := t.db.ExecContext(
		ctx,
		`INSERT INTO classifier_metrics(
			unit_id, model_name, prompt_tokens, completion_tokens,
			total_tokens, latency_ms, status, error_message, request_type
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.UnitID, m.ModelName, m.PromptTokens, m.CompletionTokens,
		m.TotalTokens, m.LatencyMs, m.Status, m.ErrorMessage, m.RequestType,
	)
	if err != nil {
		t.logger.Error("metric write failed", "error", err, "status", m.Status)
		return
	}

	t.logger.Info(
		"model call recorded",
		"model", m.ModelName,
		"tokens", m.TotalTokens,
		"latency_ms", m.LatencyMs,
		"status", m.Status,
		"request_type", m.RequestType,
	)
}
