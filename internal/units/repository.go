package units

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/contador-app/contador/pkg/pagination"
	"github.com/contador-app/contador/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a unit repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "units"),
		pagination: pagination,
	}
}

func (r *repo) Handler(reseq Resequencer) *Handler {
	return NewHandler(r, reseq, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Unit], error) {
	page.Normalize(r.pagination)

	base := filters.Apply(psql.Select().From("units"))
	if page.Search != nil {
		base = base.Where(sq.Or{
			sq.ILike{"name": "%" + *page.Search + "%"},
			sq.ILike{"tax_id": "%" + *page.Search + "%"},
		})
	}

	countSQL, countArgs, err := base.Column("COUNT(*)").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count units: %w", err)
	}

	pageSQL, pageArgs, err := base.
		Columns(unitColumns...).
		OrderBy("name ASC").
		Limit(uint64(page.PageSize)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build page query: %w", err)
	}

	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanUnit)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Unit, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM units WHERE id = $1",
		strings.Join(unitColumns, ", "),
	)

	u, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanUnit)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &u, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Unit, error) {
	labeling := true
	if cmd.LabelingEnabled != nil {
		labeling = *cmd.LabelingEnabled
	}

	seed := cmd.ConsecutiveSeed
	if seed < 1 {
		seed = 1
	}

	q := fmt.Sprintf(`
		INSERT INTO units(name, tax_id, email, consecutive_seed, labeling_enabled, auto_scan_enabled, custom_prompt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, strings.Join(unitColumns, ", "))

	args := []any{cmd.Name, cmd.TaxID, cmd.Email, seed, labeling, cmd.AutoScanEnabled, cmd.CustomPrompt}

	u, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Unit, error) {
		return repository.QueryOne(ctx, tx, q, args, scanUnit)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("unit created", "id", u.ID, "name", u.Name)
	return &u, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Unit, error) {
	q := fmt.Sprintf(`
		UPDATE units
		SET name = $1, tax_id = $2, email = $3, consecutive_seed = $4,
			labeling_enabled = $5, auto_scan_enabled = $6, custom_prompt = $7,
			updated_at = now()
		WHERE id = $8
		RETURNING %s`, strings.Join(unitColumns, ", "))

	args := []any{
		cmd.Name, cmd.TaxID, cmd.Email, cmd.ConsecutiveSeed,
		cmd.LabelingEnabled, cmd.AutoScanEnabled, cmd.CustomPrompt, id,
	}

	u, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Unit, error) {
		return repository.QueryOne(ctx, tx, q, args, scanUnit)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("unit updated", "id", u.ID, "name", u.Name)
	return &u, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM units WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("unit deleted", "id", id)
	return nil
}

func (r *repo) ListAutoScan(ctx context.Context) ([]Unit, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM units WHERE auto_scan_enabled = true ORDER BY name ASC",
		strings.Join(unitColumns, ", "),
	)

	return repository.QueryMany(ctx, r.db, q, nil, scanUnit)
}

func (r *repo) TouchLastScan(ctx context.Context, id uuid.UUID) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE units SET last_scan_at = now(), updated_at = now() WHERE id = $1",
		id,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}
