package classifier

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	openai "github.com/sashabaranov/go-openai"

	"github.com/contador-app/contador/internal/config"
	"github.com/contador-app/contador/pkg/repository"
)

// System defines the classification contract consumed by the scan
// orchestrator and the analyze endpoint.
type System interface {
	Handler(maxUploadSize int64) *Handler

	// Classify sends the payload to the model and decodes the tagged result.
	// Undecodable model output yields OTHER, never an error; rate limiting
	// surfaces as ErrRateLimited.
	Classify(ctx context.Context, data []byte, mimeType string, unitCtx UnitContext) (*Result, error)
}

type gateway struct {
	client *openai.Client
	db     *sql.DB
	tel    *telemetry
	model  string
	logger *slog.Logger
}

// New creates a classification gateway against an OpenAI-compatible model
// endpoint.
func New(db *sql.DB, cfg *config.ClassifierConfig, logger *slog.Logger) System {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	scoped := logger.With("system", "classifier")

	return &gateway{
		client: openai.NewClientWithConfig(clientCfg),
		db:     db,
		tel:    &telemetry{db: db, logger: scoped},
		model:  cfg.Model,
		logger: scoped,
	}
}

func (g *gateway) Handler(maxUploadSize int64) *Handler {
	return NewHandler(g, g.logger, maxUploadSize)
}

func (g *gateway) Classify(ctx context.Context, data []byte, mimeType string, unitCtx UnitContext) (*Result, error) {
	if mimeType == "application/pdf" {
		if _, err := api.PageCount(bytes.NewReader(data), nil); err != nil {
			// unreadable PDF: classify as OTHER without spending a model call
			msg := fmt.Sprintf("unreadable pdf: %v", err)
			g.tel.emit(ctx, Metric{
				UnitID:       &unitCtx.UnitID,
				ModelName:    g.model,
				Status:       MetricStatusError,
				ErrorMessage: &msg,
				RequestType:  RequestClassification,
			})
			return Other(), nil
		}
	}

	prompt := buildPrompt(unitCtx, g.loadRules(ctx, unitCtx))
	uri := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: uri},
					},
				},
			},
		},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		msg := err.Error()
		g.tel.emit(ctx, Metric{
			UnitID:       &unitCtx.UnitID,
			ModelName:    g.model,
			LatencyMs:    latency,
			Status:       MetricStatusError,
			ErrorMessage: &msg,
			RequestType:  RequestClassification,
		})

		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, ErrRateLimited
		}
		return nil, fmt.Errorf("model call: %w", err)
	}

	g.tel.emit(ctx, Metric{
		UnitID:           &unitCtx.UnitID,
		ModelName:        g.model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		LatencyMs:        latency,
		Status:           MetricStatusSuccess,
		RequestType:      RequestClassification,
	})

	if len(resp.Choices) == 0 {
		return Other(), nil
	}

	return ParseResult(resp.Choices[0].Message.Content), nil
}

// loadRules fetches the unit's learned classification rules. Failures yield
// an empty rule set; the master template alone is always usable.
func (g *gateway) loadRules(ctx context.Context, unitCtx UnitContext) []string {
	rules, err := repository.QueryMany(
		ctx, g.db,
		"SELECT rule FROM unit_rules WHERE unit_id = $1 ORDER BY created_at ASC",
		[]any{unitCtx.UnitID},
		func(s repository.Scanner) (string, error) {
			var rule string
			err := s.Scan(&rule)
			return rule, err
		},
	)
	if err != nil {
		g.logger.Error("rule load failed", "unit", unitCtx.UnitID, "error", err)
		return nil
	}
	return rules
}
