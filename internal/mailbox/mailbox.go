// Package mailbox implements the Gmail adapter: listing unread messages with
// attachments, fetching message bodies and attachment bytes, and applying the
// processed label, all against per-unit OAuth credentials.
package mailbox

import (
	"context"

	"github.com/google/uuid"
)

// MessageRef identifies an unread message returned by a listing call.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
}

// Attachment describes one attachment part of a message. A part qualifies
// only when it carries both a filename and an attachment body id.
type Attachment struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	AttachmentID string `json:"attachment_id"`
}

// EmailMessage is the transient view of a fetched message.
type EmailMessage struct {
	ID          string       `json:"id"`
	ThreadID    string       `json:"thread_id"`
	Sender      string       `json:"sender"`
	Subject     string       `json:"subject"`
	Date        string       `json:"date"`
	Attachments []Attachment `json:"attachments"`
}

// System defines the mailbox contract consumed by the scan orchestrator.
type System interface {
	// ListUnread returns unread messages with attachments newer than the
	// given window (e.g. "7d"), capped by configuration.
	ListUnread(ctx context.Context, unitID uuid.UUID, window string) ([]MessageRef, error)

	// Message fetches a full message and collects its attachment descriptors.
	Message(ctx context.Context, unitID uuid.UUID, messageID string) (*EmailMessage, error)

	// Attachment fetches and decodes one attachment's bytes.
	Attachment(ctx context.Context, unitID uuid.UUID, messageID, attachmentID string) ([]byte, error)

	// EnsureLabel returns the id of the named label, creating it if absent.
	EnsureLabel(ctx context.Context, unitID uuid.UUID, name string) (string, error)

	// ApplyProcessed adds the label to the message and removes UNREAD.
	ApplyProcessed(ctx context.Context, unitID uuid.UUID, messageID, labelID string) error
}
