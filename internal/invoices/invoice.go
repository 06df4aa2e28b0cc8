// Package invoices implements the invoice domain: provider invoices
// discovered in unit mailboxes and persisted as drafts for review.
package invoices

import (
	"time"

	"github.com/google/uuid"
)

// NoReference is the invoice number recorded when the classifier could not
// extract one. Dedup still works per provider through this sentinel.
const NoReference = "SIN-REF"

// Status values for an invoice.
const (
	StatusDraft    = "DRAFT"
	StatusApproved = "APPROVED"
	StatusPaid     = "PAID"
)

// Invoice represents a provider invoice belonging to a unit.
type Invoice struct {
	ID               uuid.UUID  `json:"id"`
	UnitID           uuid.UUID  `json:"unit_id"`
	ProviderID       uuid.UUID  `json:"provider_id"`
	InvoiceNumber    string     `json:"invoice_number"`
	Concept          *string    `json:"concept"`
	TotalAmount      float64    `json:"total_amount"`
	RetefuenteAmount float64    `json:"retefuente_amount"`
	ReteicaAmount    float64    `json:"reteica_amount"`
	InvoiceDate      time.Time  `json:"invoice_date"`
	Status           string     `json:"status"`
	FileURL          *string    `json:"file_url"`
	Source           *string    `json:"source"`
	EmailSubject     *string    `json:"email_subject"`
	EmailSender      *string    `json:"email_sender"`
	EmailDate        *time.Time `json:"email_date"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CreateCommand carries the data needed to persist a new draft invoice.
type CreateCommand struct {
	UnitID           uuid.UUID  `json:"unit_id"`
	ProviderID       uuid.UUID  `json:"provider_id"`
	InvoiceNumber    string     `json:"invoice_number"`
	Concept          *string    `json:"concept"`
	TotalAmount      float64    `json:"total_amount"`
	RetefuenteAmount float64    `json:"retefuente_amount"`
	ReteicaAmount    float64    `json:"reteica_amount"`
	InvoiceDate      time.Time  `json:"invoice_date"`
	FileURL          *string    `json:"file_url"`
	Source           *string    `json:"source"`
	EmailSubject     *string    `json:"email_subject"`
	EmailSender      *string    `json:"email_sender"`
	EmailDate        *time.Time `json:"email_date"`
}
