// Package scans implements the scan job orchestrator: the background pipeline
// that lists a unit's unread mail, classifies the attachments, persists the
// resulting documents, and tracks job progress for polling clients.
package scans

import (
	"time"

	"github.com/google/uuid"
)

// Status values for a scan job. COMPLETED and FAILED are terminal.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Item statuses beyond the persistence outcomes (created, duplicate,
// skipped). An errored item is abandoned without aborting the job.
const ItemStatusError = "error"

// Item records the outcome of one processed attachment.
type Item struct {
	MessageID  string     `json:"message_id"`
	Filename   string     `json:"filename"`
	Kind       string     `json:"kind,omitempty"`
	Status     string     `json:"status"`
	Detail     string     `json:"detail,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
}

// ScanJob is the persisted state of one mailbox scan. Progress holds 10 as a
// setup baseline once processing starts and reaches 100 only on completion.
type ScanJob struct {
	ID             uuid.UUID  `json:"id"`
	UnitID         uuid.UUID  `json:"unit_id"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	TotalItems     int        `json:"total_items"`
	ProcessedCount int        `json:"processed_count"`
	Results        []Item     `json:"results"`
	Error          *string    `json:"error"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}
