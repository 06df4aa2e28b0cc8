package invoices

import (
	"net/url"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/contador-app/contador/pkg/repository"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var invoiceColumns = []string{
	"id", "unit_id", "provider_id", "invoice_number", "concept",
	"total_amount", "retefuente_amount", "reteica_amount", "invoice_date",
	"status", "file_url", "source", "email_subject", "email_sender",
	"email_date", "created_at", "updated_at",
}

// Filters contains optional filtering criteria for invoice queries.
// Nil fields are ignored.
type Filters struct {
	UnitID     *uuid.UUID `json:"unit_id,omitempty"`
	ProviderID *uuid.UUID `json:"provider_id,omitempty"`
	Status     *string    `json:"status,omitempty"`
}

// Apply adds filter conditions to a select builder.
func (f Filters) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	if f.UnitID != nil {
		b = b.Where(sq.Eq{"unit_id": *f.UnitID})
	}
	if f.ProviderID != nil {
		b = b.Where(sq.Eq{"provider_id": *f.ProviderID})
	}
	if f.Status != nil {
		b = b.Where(sq.Eq{"status": *f.Status})
	}
	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if u := values.Get("unit_id"); u != "" {
		if id, err := uuid.Parse(u); err == nil {
			f.UnitID = &id
		}
	}
	if p := values.Get("provider_id"); p != "" {
		if id, err := uuid.Parse(p); err == nil {
			f.ProviderID = &id
		}
	}
	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	return f
}

func scanInvoice(s repository.Scanner) (Invoice, error) {
	var inv Invoice
	err := s.Scan(
		&inv.ID,
		&inv.UnitID,
		&inv.ProviderID,
		&inv.InvoiceNumber,
		&inv.Concept,
		&inv.TotalAmount,
		&inv.RetefuenteAmount,
		&inv.ReteicaAmount,
		&inv.InvoiceDate,
		&inv.Status,
		&inv.FileURL,
		&inv.Source,
		&inv.EmailSubject,
		&inv.EmailSender,
		&inv.EmailDate,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	return inv, err
}
