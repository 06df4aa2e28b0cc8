package mailbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// tokenStore persists per-unit OAuth tokens in gmail_tokens.
type tokenStore struct {
	db *sql.DB
}

func (t *tokenStore) token(ctx context.Context, unitID uuid.UUID) (*oauth2.Token, error) {
	var (
		tok    oauth2.Token
		expiry time.Time
	)

	err := t.db.QueryRowContext(
		ctx,
		`SELECT access_token, refresh_token, token_type, expiry
		 FROM gmail_tokens WHERE unit_id = $1`,
		unitID,
	).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("load token: %w", err)
	}

	tok.Expiry = expiry
	return &tok, nil
}

func (t *tokenStore) save(ctx context.Context, unitID uuid.UUID, tok *oauth2.Token) error {
	_, err := t.db.ExecContext(
		ctx,
		`INSERT INTO gmail_tokens(unit_id, access_token, refresh_token, token_type, expiry)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (unit_id) DO UPDATE
		 SET access_token = EXCLUDED.access_token,
			 refresh_token = EXCLUDED.refresh_token,
			 token_type = EXCLUDED.token_type,
			 expiry = EXCLUDED.expiry,
			 updated_at = now()`,
		unitID, tok.AccessToken, tok.RefreshToken, tok.TokenType, tok.Expiry,
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// persistingSource wraps a refreshing token source and writes refreshed
// tokens back to the store so the next scan reuses them.
type persistingSource struct {
	ctx    context.Context
	unitID uuid.UUID
	store  *tokenStore
	src    oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		// persist failures are non-fatal; the token is still usable
		if err := p.store.save(p.ctx, p.unitID, tok); err != nil {
			return tok, nil
		}
	}

	return tok, nil
}
