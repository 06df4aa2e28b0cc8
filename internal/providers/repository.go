package providers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/contador-app/contador/pkg/repository"
)

// System defines the public contract for provider domain operations.
type System interface {
	Find(ctx context.Context, id uuid.UUID) (*Provider, error)
	FindByTaxID(ctx context.Context, taxID string) (*Provider, error)

	// FindOrCreate returns the provider with the given tax id, creating it
	// with the supplied name when absent. The tax id is normalized first.
	FindOrCreate(ctx context.Context, taxID, name string) (*Provider, error)
}

var providerColumns = []string{
	"id", "tax_id", "name",
	"retefuente_rate", "reteica_rate",
	"created_at", "updated_at",
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a provider repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "providers"),
	}
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Provider, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM providers WHERE id = $1",
		strings.Join(providerColumns, ", "),
	)

	p, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanProvider)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) FindByTaxID(ctx context.Context, taxID string) (*Provider, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM providers WHERE tax_id = $1",
		strings.Join(providerColumns, ", "),
	)

	p, err := repository.QueryOne(ctx, r.db, q, []any{NormalizeTaxID(taxID)}, scanProvider)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) FindOrCreate(ctx context.Context, taxID, name string) (*Provider, error) {
	existing, err := r.FindByTaxID(ctx, taxID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	q := fmt.Sprintf(`
		INSERT INTO providers(tax_id, name)
		VALUES ($1, $2)
		ON CONFLICT (tax_id) DO UPDATE SET updated_at = now()
		RETURNING %s`, strings.Join(providerColumns, ", "))

	args := []any{NormalizeTaxID(taxID), name}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Provider, error) {
		return repository.QueryOne(ctx, tx, q, args, scanProvider)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("provider created", "id", p.ID, "tax_id", p.TaxID, "name", p.Name)
	return &p, nil
}

func scanProvider(s repository.Scanner) (Provider, error) {
	var p Provider
	err := s.Scan(
		&p.ID,
		&p.TaxID,
		&p.Name,
		&p.RetefuenteRate,
		&p.ReteicaRate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
