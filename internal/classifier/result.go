// Package classifier implements the document classification gateway: it
// sends attachment bytes to an external document-understanding model and
// decodes the response into a tagged classification result.
package classifier

import (
	"encoding/json"

	"github.com/contador-app/contador/pkg/formatting"
)

// Kind tags a classification result.
type Kind string

const (
	KindInvoice Kind = "INVOICE"
	KindReceipt Kind = "PAYMENT_RECEIPT"
	KindOther   Kind = "OTHER"
)

// InvoiceData holds the fields extracted from a classified invoice. Amount
// and date stay raw; normalization happens downstream.
type InvoiceData struct {
	TaxID          string `json:"tax_id"`
	ProviderName   string `json:"provider_name"`
	ClientTaxID    string `json:"client_tax_id"`
	DocumentNumber string `json:"document_number"`
	TotalAmount    any    `json:"total_amount"`
	Date           string `json:"date"`
	Concept        string `json:"concept"`
}

// ReceiptData holds the fields extracted from a classified payment receipt.
type ReceiptData struct {
	BankName       string `json:"bank_name"`
	TransactionRef string `json:"transaction_ref"`
	TotalAmount    any    `json:"total_amount"`
	Date           string `json:"date"`
	Concept        string `json:"concept"`
}

// Result is the tagged classification union. Exactly one of Invoice and
// Receipt is set, matching Type; OTHER carries neither.
type Result struct {
	Type    Kind         `json:"type"`
	Invoice *InvoiceData `json:"invoice,omitempty"`
	Receipt *ReceiptData `json:"receipt,omitempty"`
}

// envelope is the wire shape the model is instructed to produce.
type envelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Other is the guaranteed fallback result.
func Other() *Result {
	return &Result{Type: KindOther}
}

// ParseResult decodes model output into a Result. The payload may arrive
// bare, fenced, or embedded in prose; any shape that cannot be decoded
// yields OTHER rather than an error.
func ParseResult(content string) *Result {
	env, err := formatting.Parse[envelope](content)
	if err != nil {
		return Other()
	}

	switch env.Type {
	case KindInvoice:
		var data InvoiceData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return Other()
		}
		return &Result{Type: KindInvoice, Invoice: &data}

	case KindReceipt:
		var data ReceiptData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return Other()
		}
		return &Result{Type: KindReceipt, Receipt: &data}

	default:
		return Other()
	}
}
