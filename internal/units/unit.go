// Package units implements the organizational unit domain: the residential
// units whose mailboxes are scanned and whose payments are numbered.
package units

import (
	"time"

	"github.com/google/uuid"
)

// Unit represents one residential unit and its ingestion settings.
type Unit struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	TaxID           string     `json:"tax_id"`
	Email           *string    `json:"email"`
	ConsecutiveSeed int        `json:"consecutive_seed"`
	LabelingEnabled bool       `json:"labeling_enabled"`
	AutoScanEnabled bool       `json:"auto_scan_enabled"`
	CustomPrompt    *string    `json:"custom_prompt"`
	LastScanAt      *time.Time `json:"last_scan_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateCommand carries the data needed to register a new unit.
type CreateCommand struct {
	Name            string  `json:"name"`
	TaxID           string  `json:"tax_id"`
	Email           *string `json:"email"`
	ConsecutiveSeed int     `json:"consecutive_seed"`
	LabelingEnabled *bool   `json:"labeling_enabled"`
	AutoScanEnabled bool    `json:"auto_scan_enabled"`
	CustomPrompt    *string `json:"custom_prompt"`
}

// UpdateCommand carries the data needed to update an existing unit.
// Changing ConsecutiveSeed relocates the unit's internal payment numbers.
type UpdateCommand struct {
	Name            string  `json:"name"`
	TaxID           string  `json:"tax_id"`
	Email           *string `json:"email"`
	ConsecutiveSeed int     `json:"consecutive_seed"`
	LabelingEnabled bool    `json:"labeling_enabled"`
	AutoScanEnabled bool    `json:"auto_scan_enabled"`
	CustomPrompt    *string `json:"custom_prompt"`
}
