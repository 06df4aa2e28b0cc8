// Package ingest persists classified documents: it validates the extracted
// fields, deduplicates against existing records, and creates draft invoices
// and payments with provenance metadata.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/contador-app/contador/internal/classifier"
	"github.com/contador-app/contador/internal/invoices"
	"github.com/contador-app/contador/internal/payments"
	"github.com/contador-app/contador/internal/providers"
	"github.com/contador-app/contador/internal/taxrules"
	"github.com/contador-app/contador/internal/units"
)

// SourceEmail is the provenance marker for documents ingested from a mailbox.
const SourceEmail = "EMAIL"

// Outcome statuses. Duplicates and skips are successful no-ops, not errors.
const (
	StatusCreated   = "created"
	StatusDuplicate = "duplicate"
	StatusSkipped   = "skipped"
)

// Source carries the attachment bytes and the provenance of the originating
// email message.
type Source struct {
	Data        []byte
	Filename    string
	ContentType string
	Subject     string
	Sender      string
	Date        time.Time
}

// Outcome describes what happened to one classified document.
type Outcome struct {
	Status     string     `json:"status"`
	Detail     string     `json:"detail,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
}

// System defines the persistence contract for classified documents.
type System interface {
	ProcessInvoice(ctx context.Context, unit *units.Unit, data *classifier.InvoiceData, src Source) (*Outcome, error)
	ProcessReceipt(ctx context.Context, unit *units.Unit, data *classifier.ReceiptData, src Source) (*Outcome, error)
}

type providerDirectory interface {
	FindOrCreate(ctx context.Context, taxID, name string) (*providers.Provider, error)
}

type invoiceStore interface {
	FindByNumber(ctx context.Context, providerID uuid.UUID, number string) (*invoices.Invoice, error)
	Create(ctx context.Context, cmd invoices.CreateCommand) (*invoices.Invoice, error)
}

type paymentStore interface {
	FindByReceiptKey(ctx context.Context, unitID uuid.UUID, transactionRef string, amount float64) (*payments.Payment, error)
	Create(ctx context.Context, cmd payments.CreateCommand) (*payments.Payment, error)
}

type blobStore interface {
	Store(ctx context.Context, data []byte, filename, folder, contentType string) (string, error)
}

type service struct {
	providers providerDirectory
	invoices  invoiceStore
	payments  paymentStore
	storage   blobStore
	logger    *slog.Logger
}

// New creates an ingestion service over the given collaborators.
func New(
	providers providerDirectory,
	invoices invoiceStore,
	payments paymentStore,
	storage blobStore,
	logger *slog.Logger,
) System {
	return &service{
		providers: providers,
		invoices:  invoices,
		payments:  payments,
		storage:   storage,
		logger:    logger.With("system", "ingest"),
	}
}

func (s *service) ProcessInvoice(ctx context.Context, unit *units.Unit, data *classifier.InvoiceData, src Source) (*Outcome, error) {
	taxID := providers.NormalizeTaxID(data.TaxID)
	name := strings.TrimSpace(data.ProviderName)
	if taxID == "" && name == "" {
		return skipped("missing provider tax id and name"), nil
	}

	if !matchesUnit(unit.TaxID, data.ClientTaxID) {
		s.logger.Warn(
			"invoice addressed to another unit",
			"unit", unit.ID,
			"client_tax_id", data.ClientTaxID,
		)
		return skipped("recipient tax id does not match the unit"), nil
	}

	provider, err := s.providers.FindOrCreate(ctx, taxID, name)
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}

	number := strings.TrimSpace(data.DocumentNumber)
	if number == "" {
		number = invoices.NoReference
	}

	existing, err := s.invoices.FindByNumber(ctx, provider.ID, number)
	if err == nil {
		return duplicate(existing.ID), nil
	}
	if !errors.Is(err, invoices.ErrNotFound) {
		return nil, fmt.Errorf("check invoice dedup: %w", err)
	}

	amount := NormalizeAmount(data.TotalAmount)
	suggestion := taxrules.SuggestWithholdings(amount, provider.RetefuenteRate, provider.ReteicaRate)

	fileURL, err := s.storage.Store(ctx, src.Data, src.Filename, "invoices", src.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store invoice file: %w", err)
	}

	cmd := invoices.CreateCommand{
		UnitID:           unit.ID,
		ProviderID:       provider.ID,
		InvoiceNumber:    number,
		Concept:          optional(data.Concept),
		TotalAmount:      amount,
		RetefuenteAmount: suggestion.Retefuente,
		ReteicaAmount:    suggestion.Reteica,
		InvoiceDate:      NormalizeDate(data.Date),
		FileURL:          &fileURL,
		Source:           optional(SourceEmail),
		EmailSubject:     optional(src.Subject),
		EmailSender:      optional(src.Sender),
		EmailDate:        optionalTime(src.Date),
	}

	inv, err := s.invoices.Create(ctx, cmd)
	if errors.Is(err, invoices.ErrDuplicate) {
		// concurrent scan beat us to it
		return duplicate(uuid.Nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.logger.Info(
		"invoice ingested",
		"id", inv.ID,
		"unit", unit.ID,
		"provider", provider.ID,
		"number", number,
	)
	return created(inv.ID), nil
}

func (s *service) ProcessReceipt(ctx context.Context, unit *units.Unit, data *classifier.ReceiptData, src Source) (*Outcome, error) {
	ref := strings.TrimSpace(data.TransactionRef)
	if ref == "" {
		return skipped("missing transaction reference"), nil
	}

	amount := NormalizeAmount(data.TotalAmount)

	existing, err := s.payments.FindByReceiptKey(ctx, unit.ID, ref, amount)
	if err == nil {
		return duplicate(existing.ID), nil
	}
	if !errors.Is(err, payments.ErrNotFound) {
		return nil, fmt.Errorf("check receipt dedup: %w", err)
	}

	fileURL, err := s.storage.Store(ctx, src.Data, src.Filename, "receipts", src.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store receipt file: %w", err)
	}

	cmd := payments.CreateCommand{
		UnitID:         unit.ID,
		Concept:        optional(data.Concept),
		TotalAmount:    amount,
		PaymentDate:    NormalizeDate(data.Date),
		SourceType:     payments.SourceExternal,
		BankName:       optional(data.BankName),
		TransactionRef: &ref,
		FileURL:        &fileURL,
		Source:         optional(SourceEmail),
		EmailSubject:   optional(src.Subject),
		EmailSender:    optional(src.Sender),
		EmailDate:      optionalTime(src.Date),
	}

	p, err := s.payments.Create(ctx, cmd)
	if errors.Is(err, payments.ErrDuplicate) {
		return duplicate(uuid.Nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.logger.Info(
		"receipt ingested",
		"id", p.ID,
		"unit", unit.ID,
		"transaction_ref", ref,
	)
	return created(p.ID), nil
}

// matchesUnit compares the classified recipient tax id against the unit's own
// tax id over the leading 9 digits. An absent value on either side passes;
// ownership can only be rejected, never proven.
func matchesUnit(unitTaxID, clientTaxID string) bool {
	client := providers.NormalizeTaxID(clientTaxID)
	own := providers.NormalizeTaxID(unitTaxID)
	if client == "" || own == "" {
		return true
	}
	return leading9(client) == leading9(own)
}

func leading9(s string) string {
	if len(s) > 9 {
		return s[:9]
	}
	return s
}

func skipped(detail string) *Outcome {
	return &Outcome{Status: StatusSkipped, Detail: detail}
}

func duplicate(id uuid.UUID) *Outcome {
	o := &Outcome{Status: StatusDuplicate}
	if id != uuid.Nil {
		o.DocumentID = &id
	}
	return o
}

func created(id uuid.UUID) *Outcome {
	return &Outcome{Status: StatusCreated, DocumentID: &id}
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
