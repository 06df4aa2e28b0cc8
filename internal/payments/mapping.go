package payments

import (
	"net/url"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/contador-app/contador/pkg/repository"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var paymentColumns = []string{
	"id", "unit_id", "provider_id", "beneficiary", "concept",
	"total_amount", "payment_date", "source_type", "consecutive_number",
	"manual_consecutive", "bank_name", "transaction_ref", "monthly_report_id",
	"status", "file_url", "source", "email_subject", "email_sender",
	"email_date", "created_at", "updated_at",
}

// Filters contains optional filtering criteria for payment queries.
// Nil fields are ignored. Month and Year filter on the payment date.
type Filters struct {
	UnitID     *uuid.UUID `json:"unit_id,omitempty"`
	Status     *string    `json:"status,omitempty"`
	SourceType *string    `json:"source_type,omitempty"`
	Month      *int       `json:"month,omitempty"`
	Year       *int       `json:"year,omitempty"`
}

// Apply adds filter conditions to a select builder.
func (f Filters) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	if f.UnitID != nil {
		b = b.Where(sq.Eq{"unit_id": *f.UnitID})
	}
	if f.Status != nil {
		b = b.Where(sq.Eq{"status": *f.Status})
	}
	if f.SourceType != nil {
		b = b.Where(sq.Eq{"source_type": *f.SourceType})
	}
	if f.Month != nil {
		b = b.Where(sq.Expr("EXTRACT(MONTH FROM payment_date) = ?", *f.Month))
	}
	if f.Year != nil {
		b = b.Where(sq.Expr("EXTRACT(YEAR FROM payment_date) = ?", *f.Year))
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
	if s := values.Get("status"); s != "" {
		f.Status = &s
	}
	if s := values.Get("source_type"); s != "" {
		f.SourceType = &s
	}
	if m := values.Get("month"); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			f.Month = &v
		}
	}
	if y := values.Get("year"); y != "" {
		if v, err := strconv.Atoi(y); err == nil {
			f.Year = &v
		}
	}

	return f
}

func scanPayment(s repository.Scanner) (Payment, error) {
	var p Payment
	err := s.Scan(
		&p.ID,
		&p.UnitID,
		&p.ProviderID,
		&p.Beneficiary,
		&p.Concept,
		&p.TotalAmount,
		&p.PaymentDate,
		&p.SourceType,
		&p.ConsecutiveNumber,
		&p.ManualConsecutive,
		&p.BankName,
		&p.TransactionRef,
		&p.MonthlyReportID,
		&p.Status,
		&p.FileURL,
		&p.Source,
		&p.EmailSubject,
		&p.EmailSender,
		&p.EmailDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
