// Package providers implements the provider directory: the companies that
// issue the invoices ingested from unit mailboxes. Providers are created
// lazily the first time a classified invoice references their tax id.
package providers

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider represents an invoice issuer identified by its normalized tax id.
type Provider struct {
	ID             uuid.UUID `json:"id"`
	TaxID          string    `json:"tax_id"`
	Name           string    `json:"name"`
	RetefuenteRate *float64  `json:"retefuente_rate"`
	ReteicaRate    *float64  `json:"reteica_rate"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NormalizeTaxID strips everything but digits from a tax id, so formatted
// NITs ("900.123.456-7") compare equal to their plain form.
func NormalizeTaxID(taxID string) string {
	var b strings.Builder
	for _, r := range taxID {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
