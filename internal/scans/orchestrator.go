package scans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contador-app/contador/internal/classifier"
	"github.com/contador-app/contador/internal/config"
	"github.com/contador-app/contador/internal/ingest"
	"github.com/contador-app/contador/internal/mailbox"
	"github.com/contador-app/contador/internal/units"
)

// System defines the public contract for scan operations.
type System interface {
	Handler() *Handler

	// Start creates a scan job for the unit and returns its id immediately;
	// the work proceeds on a background goroutine. While a unit already has a
	// scan in flight, Start returns the active job's id instead of creating
	// another.
	Start(ctx context.Context, unitID uuid.UUID) (uuid.UUID, error)

	// Find returns a scan job snapshot for polling.
	Find(ctx context.Context, id uuid.UUID) (*ScanJob, error)
}

type unitDirectory interface {
	Find(ctx context.Context, id uuid.UUID) (*units.Unit, error)
	TouchLastScan(ctx context.Context, id uuid.UUID) error
}

type classifierGateway interface {
	Classify(ctx context.Context, data []byte, mimeType string, unitCtx classifier.UnitContext) (*classifier.Result, error)
}

type documentSink interface {
	ProcessInvoice(ctx context.Context, unit *units.Unit, data *classifier.InvoiceData, src ingest.Source) (*ingest.Outcome, error)
	ProcessReceipt(ctx context.Context, unit *units.Unit, data *classifier.ReceiptData, src ingest.Source) (*ingest.Outcome, error)
}

type orchestrator struct {
	jobs     jobStore
	units    unitDirectory
	mail     mailbox.System
	classify classifierGateway
	sink     documentSink
	logger   *slog.Logger

	window           string
	processedLabel   string
	requestDelay     time.Duration
	rateLimitBackoff time.Duration
	maxRetries       int

	sleep func(time.Duration)

	mu     sync.Mutex
	active map[uuid.UUID]uuid.UUID
}

// New creates the scan orchestrator over the given collaborators.
func New(
	db *sql.DB,
	mailCfg *config.MailboxConfig,
	clsCfg *config.ClassifierConfig,
	units unitDirectory,
	mail mailbox.System,
	classify classifierGateway,
	sink documentSink,
	logger *slog.Logger,
) System {
	return newOrchestrator(
		&pgJobStore{db: db},
		mailCfg, clsCfg,
		units, mail, classify, sink,
		logger,
	)
}

func newOrchestrator(
	jobs jobStore,
	mailCfg *config.MailboxConfig,
	clsCfg *config.ClassifierConfig,
	units unitDirectory,
	mail mailbox.System,
	classify classifierGateway,
	sink documentSink,
	logger *slog.Logger,
) *orchestrator {
	return &orchestrator{
		jobs:             jobs,
		units:            units,
		mail:             mail,
		classify:         classify,
		sink:             sink,
		logger:           logger.With("system", "scans"),
		window:           mailCfg.ScanWindow,
		processedLabel:   mailCfg.ProcessedLabel,
		requestDelay:     clsCfg.RequestDelayDuration(),
		rateLimitBackoff: clsCfg.RateLimitBackoffDuration(),
		maxRetries:       clsCfg.MaxRetries,
		sleep:            time.Sleep,
		active:           make(map[uuid.UUID]uuid.UUID),
	}
}

func (o *orchestrator) Handler() *Handler {
	return NewHandler(o, o.logger)
}

func (o *orchestrator) Find(ctx context.Context, id uuid.UUID) (*ScanJob, error) {
	return o.jobs.find(ctx, id)
}

func (o *orchestrator) Start(ctx context.Context, unitID uuid.UUID) (uuid.UUID, error) {
	o.mu.Lock()
	if jobID, ok := o.active[unitID]; ok {
		o.mu.Unlock()
		o.logger.Info("scan already in flight", "unit", unitID, "job", jobID)
		return jobID, nil
	}

	job, err := o.jobs.create(ctx, unitID)
	if err != nil {
		o.mu.Unlock()
		return uuid.Nil, err
	}
	o.active[unitID] = job.ID
	o.mu.Unlock()

	o.logger.Info("scan started", "unit", unitID, "job", job.ID)
	go o.run(context.WithoutCancel(ctx), job.ID, unitID)
	return job.ID, nil
}

func (o *orchestrator) run(ctx context.Context, jobID, unitID uuid.UUID) {
	defer func() {
		o.mu.Lock()
		delete(o.active, unitID)
		o.mu.Unlock()
	}()

	var results []Item

	unit, err := o.units.Find(ctx, unitID)
	if err != nil {
		o.abort(ctx, jobID, fmt.Errorf("load unit: %w", err), results)
		return
	}

	refs, err := o.mail.ListUnread(ctx, unitID, o.window)
	if err != nil {
		o.abort(ctx, jobID, fmt.Errorf("list mailbox: %w", err), results)
		return
	}

	if len(refs) == 0 {
		if err := o.jobs.complete(ctx, jobID, results); err != nil {
			o.logger.Error("complete failed", "job", jobID, "error", err)
			return
		}
		o.touch(ctx, unitID)
		o.logger.Info("scan completed", "job", jobID, "messages", 0)
		return
	}

	if err := o.jobs.markProcessing(ctx, jobID, len(refs)); err != nil {
		o.logger.Error("mark processing failed", "job", jobID, "error", err)
		return
	}

	unitCtx := classifier.UnitContext{
		UnitID:       unit.ID,
		UnitName:     unit.Name,
		CustomPrompt: unit.CustomPrompt,
	}

	labelID := ""
	processed := 0

	for _, ref := range refs {
		msg, err := o.mail.Message(ctx, unitID, ref.ID)
		if err != nil {
			o.logger.Error("message fetch failed", "job", jobID, "message", ref.ID, "error", err)
			results = append(results, Item{
				MessageID: ref.ID,
				Status:    ItemStatusError,
				Detail:    err.Error(),
			})
			processed++
			o.checkpoint(ctx, jobID, processed, len(refs), results)
			continue
		}

		createdAny := false
		for _, att := range msg.Attachments {
			item := o.processAttachment(ctx, unit, unitCtx, msg, att)
			results = append(results, item)
			if item.Status == ingest.StatusCreated {
				createdAny = true
			}
		}

		if createdAny && unit.LabelingEnabled {
			if labelID == "" {
				labelID, err = o.mail.EnsureLabel(ctx, unitID, o.processedLabel)
				if err != nil {
					o.logger.Error("label resolve failed", "job", jobID, "error", err)
				}
			}
			if labelID != "" {
				if err := o.mail.ApplyProcessed(ctx, unitID, msg.ID, labelID); err != nil {
					o.logger.Error("label apply failed", "job", jobID, "message", msg.ID, "error", err)
				}
			}
		}

		processed++
		o.checkpoint(ctx, jobID, processed, len(refs), results)
	}

	if err := o.jobs.complete(ctx, jobID, results); err != nil {
		o.logger.Error("complete failed", "job", jobID, "error", err)
		return
	}
	o.touch(ctx, unitID)
	o.logger.Info("scan completed", "job", jobID, "messages", len(refs), "items", len(results))
}

func (o *orchestrator) processAttachment(
	ctx context.Context,
	unit *units.Unit,
	unitCtx classifier.UnitContext,
	msg *mailbox.EmailMessage,
	att mailbox.Attachment,
) Item {
	item := Item{MessageID: msg.ID, Filename: att.Filename}

	data, err := o.mail.Attachment(ctx, unit.ID, msg.ID, att.AttachmentID)
	if err != nil {
		item.Status = ItemStatusError
		item.Detail = err.Error()
		return item
	}

	filename := att.Filename
	mimeType := att.MimeType

	if isZip(mimeType, filename) {
		entry, err := mailbox.ResolveZip(data)
		if err != nil {
			item.Status = ItemStatusError
			item.Detail = err.Error()
			return item
		}
		if entry == nil {
			item.Status = ingest.StatusSkipped
			item.Detail = "zip archive holds no pdf"
			return item
		}
		data = entry.Data
		mimeType = entry.MimeType
		filename = entry.Filename
	}

	mimeType = mailbox.RefineMIME(mimeType, filename)
	if mimeType == "" || (mimeType != "application/pdf" && !strings.HasPrefix(mimeType, "image/")) {
		item.Status = ingest.StatusSkipped
		item.Detail = "unsupported attachment type"
		return item
	}

	result, err := o.classifyWithRetry(ctx, data, mimeType, unitCtx)
	if err != nil {
		item.Status = ItemStatusError
		item.Detail = err.Error()
		return item
	}

	src := ingest.Source{
		Data:        data,
		Filename:    filename,
		ContentType: mimeType,
		Subject:     msg.Subject,
		Sender:      msg.Sender,
		Date:        parseEmailDate(msg.Date),
	}

	item.Kind = string(result.Type)

	switch result.Type {
	case classifier.KindInvoice:
		outcome, err := o.sink.ProcessInvoice(ctx, unit, result.Invoice, src)
		o.applyOutcome(&item, outcome, err)
	case classifier.KindReceipt:
		outcome, err := o.sink.ProcessReceipt(ctx, unit, result.Receipt, src)
		o.applyOutcome(&item, outcome, err)
	default:
		item.Status = ingest.StatusSkipped
		item.Detail = "not a financial document"
	}

	return item
}

// classifyWithRetry enforces the inter-call delay and retries rate-limited
// calls after a fixed backoff, up to the configured attempt limit.
func (o *orchestrator) classifyWithRetry(
	ctx context.Context,
	data []byte,
	mimeType string,
	unitCtx classifier.UnitContext,
) (*classifier.Result, error) {
	var lastErr error

	for attempt := 0; attempt < o.maxRetries; attempt++ {
		o.sleep(o.requestDelay)

		result, err := o.classify.Classify(ctx, data, mimeType, unitCtx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !errors.Is(err, classifier.ErrRateLimited) {
			return nil, err
		}

		o.logger.Warn("classifier rate limited, backing off", "attempt", attempt+1)
		o.sleep(o.rateLimitBackoff)
	}

	return nil, lastErr
}

func (o *orchestrator) applyOutcome(item *Item, outcome *ingest.Outcome, err error) {
	if err != nil {
		item.Status = ItemStatusError
		item.Detail = err.Error()
		return
	}
	item.Status = outcome.Status
	item.Detail = outcome.Detail
	item.DocumentID = outcome.DocumentID
}

func (o *orchestrator) checkpoint(ctx context.Context, jobID uuid.UUID, processed, total int, results []Item) {
	if err := o.jobs.checkpoint(ctx, jobID, progressFor(processed, total), processed, results); err != nil {
		o.logger.Error("checkpoint failed", "job", jobID, "error", err)
	}
}

func (o *orchestrator) abort(ctx context.Context, jobID uuid.UUID, cause error, results []Item) {
	o.logger.Error("scan failed", "job", jobID, "error", cause)
	if err := o.jobs.fail(ctx, jobID, cause.Error(), results); err != nil {
		o.logger.Error("fail write failed", "job", jobID, "error", err)
	}
}

func (o *orchestrator) touch(ctx context.Context, unitID uuid.UUID) {
	if err := o.units.TouchLastScan(ctx, unitID); err != nil {
		o.logger.Error("last scan stamp failed", "unit", unitID, "error", err)
	}
}

// progressFor maps message progress onto the 10-95 band; 100 is reserved for
// completion.
func progressFor(processed, total int) int {
	if total == 0 {
		return 100
	}
	return 10 + int(math.Round(float64(processed)/float64(total)*85))
}

func isZip(mimeType, filename string) bool {
	if mimeType == "application/zip" || mimeType == "application/x-zip-compressed" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".zip")
}

func parseEmailDate(raw string) time.Time {
	t, err := mail.ParseDate(raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
