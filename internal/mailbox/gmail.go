package mailbox

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/contador-app/contador/internal/config"
)

type gmailSystem struct {
	oauth       *oauth2.Config
	tokens      *tokenStore
	logger      *slog.Logger
	maxMessages int64
}

// New creates a Gmail-backed mailbox System. Tokens are loaded per unit from
// the database and refreshed tokens are written back.
func New(db *sql.DB, cfg *config.MailboxConfig, logger *slog.Logger) System {
	return &gmailSystem{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmail.GmailModifyScope},
		},
		tokens:      &tokenStore{db: db},
		logger:      logger.With("system", "mailbox"),
		maxMessages: int64(cfg.MaxMessages),
	}
}

// service builds a Gmail client authorized as the unit's mailbox.
func (g *gmailSystem) service(ctx context.Context, unitID uuid.UUID) (*gmail.Service, error) {
	tok, err := g.tokens.token(ctx, unitID)
	if err != nil {
		return nil, err
	}

	src := &persistingSource{
		ctx:    ctx,
		unitID: unitID,
		store:  g.tokens,
		src:    g.oauth.TokenSource(ctx, tok),
		last:   tok.AccessToken,
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(tok, src)))
	if err != nil {
		return nil, fmt.Errorf("create gmail client: %w", err)
	}
	return svc, nil
}

func (g *gmailSystem) ListUnread(ctx context.Context, unitID uuid.UUID, window string) ([]MessageRef, error) {
	svc, err := g.service(ctx, unitID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("is:unread has:attachment newer_than:%s", window)
	resp, err := svc.Users.Messages.List("me").
		Q(query).
		MaxResults(g.maxMessages).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	refs := make([]MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		refs = append(refs, MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}

	g.logger.Info("unread messages listed", "unit", unitID, "count", len(refs))
	return refs, nil
}

func (g *gmailSystem) Message(ctx context.Context, unitID uuid.UUID, messageID string) (*EmailMessage, error) {
	svc, err := g.service(ctx, unitID)
	if err != nil {
		return nil, err
	}

	msg, err := svc.Users.Messages.Get("me", messageID).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", messageID, err)
	}

	email := &EmailMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "From":
				email.Sender = h.Value
			case "Subject":
				email.Subject = h.Value
			case "Date":
				email.Date = h.Value
			}
		}
		email.Attachments = CollectAttachments(msg.Payload)
	}

	return email, nil
}

func (g *gmailSystem) Attachment(ctx context.Context, unitID uuid.UUID, messageID, attachmentID string) ([]byte, error) {
	svc, err := g.service(ctx, unitID)
	if err != nil {
		return nil, err
	}

	body, err := svc.Users.Messages.Attachments.Get("me", messageID, attachmentID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get attachment %s: %w", attachmentID, err)
	}

	if body.Data == "" {
		return nil, ErrAttachmentEmpty
	}

	data, err := base64.RawURLEncoding.DecodeString(body.Data)
	if err != nil {
		// some payloads arrive padded
		data, err = base64.URLEncoding.DecodeString(body.Data)
		if err != nil {
			return nil, fmt.Errorf("decode attachment %s: %w", attachmentID, err)
		}
	}

	return data, nil
}

func (g *gmailSystem) EnsureLabel(ctx context.Context, unitID uuid.UUID, name string) (string, error) {
	svc, err := g.service(ctx, unitID)
	if err != nil {
		return "", err
	}

	labels, err := svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}

	for _, l := range labels.Labels {
		if l.Name == name {
			return l.Id, nil
		}
	}

	created, err := svc.Users.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %s: %w", name, err)
	}

	g.logger.Info("label created", "unit", unitID, "label", name)
	return created.Id, nil
}

func (g *gmailSystem) ApplyProcessed(ctx context.Context, unitID uuid.UUID, messageID, labelID string) error {
	svc, err := g.service(ctx, unitID)
	if err != nil {
		return err
	}

	_, err = svc.Users.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    []string{labelID},
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("label message %s: %w", messageID, err)
	}

	return nil
}
