// Package payments implements the payment domain: internally issued unit
// payments carrying sequential voucher numbers, and externally sourced bank
// receipts ingested from unit mailboxes.
package payments

import (
	"time"

	"github.com/google/uuid"
)

// Source types for a payment. Only INTERNAL payments participate in
// consecutive numbering.
const (
	SourceInternal = "INTERNAL"
	SourceExternal = "EXTERNAL"
)

// Status values for a payment.
const (
	StatusDraft    = "DRAFT"
	StatusApproved = "APPROVED"
)

// Payment represents one unit payment. MonthlyReportID links the payment to
// a closed accounting period; once set, its consecutive number is immutable.
type Payment struct {
	ID                uuid.UUID  `json:"id"`
	UnitID            uuid.UUID  `json:"unit_id"`
	ProviderID        *uuid.UUID `json:"provider_id"`
	Beneficiary       *string    `json:"beneficiary"`
	Concept           *string    `json:"concept"`
	TotalAmount       float64    `json:"total_amount"`
	PaymentDate       time.Time  `json:"payment_date"`
	SourceType        string     `json:"source_type"`
	ConsecutiveNumber *int       `json:"consecutive_number"`
	ManualConsecutive *string    `json:"manual_consecutive"`
	BankName          *string    `json:"bank_name"`
	TransactionRef    *string    `json:"transaction_ref"`
	MonthlyReportID   *uuid.UUID `json:"monthly_report_id"`
	Status            string     `json:"status"`
	FileURL           *string    `json:"file_url"`
	Source            *string    `json:"source"`
	EmailSubject      *string    `json:"email_subject"`
	EmailSender       *string    `json:"email_sender"`
	EmailDate         *time.Time `json:"email_date"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Frozen reports whether the payment belongs to a closed period.
func (p *Payment) Frozen() bool {
	return p.MonthlyReportID != nil
}

// CreateCommand carries the data needed to record a new payment. INTERNAL
// payments receive the unit's next consecutive number; EXTERNAL payments may
// carry a manual consecutive instead.
type CreateCommand struct {
	UnitID            uuid.UUID  `json:"unit_id"`
	ProviderID        *uuid.UUID `json:"provider_id"`
	Beneficiary       *string    `json:"beneficiary"`
	Concept           *string    `json:"concept"`
	TotalAmount       float64    `json:"total_amount"`
	PaymentDate       time.Time  `json:"payment_date"`
	SourceType        string     `json:"source_type"`
	ManualConsecutive *string    `json:"manual_consecutive"`
	BankName          *string    `json:"bank_name"`
	TransactionRef    *string    `json:"transaction_ref"`
	FileURL           *string    `json:"file_url"`
	Source            *string    `json:"source"`
	EmailSubject      *string    `json:"email_subject"`
	EmailSender       *string    `json:"email_sender"`
	EmailDate         *time.Time `json:"email_date"`
}

// UpdateCommand carries the data needed to update an existing payment.
type UpdateCommand struct {
	ProviderID        *uuid.UUID `json:"provider_id"`
	Beneficiary       *string    `json:"beneficiary"`
	Concept           *string    `json:"concept"`
	TotalAmount       float64    `json:"total_amount"`
	PaymentDate       time.Time  `json:"payment_date"`
	ManualConsecutive *string    `json:"manual_consecutive"`
	BankName          *string    `json:"bank_name"`
	TransactionRef    *string    `json:"transaction_ref"`
	Status            string     `json:"status"`
}
