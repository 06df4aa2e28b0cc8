package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/contador-app/contador/pkg/pagination"
	"github.com/contador-app/contador/pkg/repository"
)

// System defines the public contract for payment domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Payment], error)

	Find(ctx context.Context, id uuid.UUID) (*Payment, error)
	Create(ctx context.Context, cmd CreateCommand) (*Payment, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Payment, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByReceiptKey is the dedup lookup for ingested bank receipts:
	// (unit, transaction reference, amount), or ErrNotFound.
	FindByReceiptKey(ctx context.Context, unitID uuid.UUID, transactionRef string, amount float64) (*Payment, error)

	// NextConsecutive returns the number the unit would assign to its next
	// internal payment.
	NextConsecutive(ctx context.Context, unitID uuid.UUID) (int, error)

	// Resequence recomputes the unit's internal consecutive numbers from
	// current state. Safe to call repeatedly.
	Resequence(ctx context.Context, unitID uuid.UUID) error
}

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a payment repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "payments"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Payment], error) {
	page.Normalize(r.pagination)

	base := filters.Apply(psql.Select().From("payments"))
	if page.Search != nil {
		base = base.Where(sq.Or{
			sq.ILike{"beneficiary": "%" + *page.Search + "%"},
			sq.ILike{"concept": "%" + *page.Search + "%"},
			sq.ILike{"transaction_ref": "%" + *page.Search + "%"},
		})
	}

	countSQL, countArgs, err := base.Column("COUNT(*)").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count payments: %w", err)
	}

	pageSQL, pageArgs, err := base.
		Columns(paymentColumns...).
		OrderBy("payment_date DESC", "created_at DESC").
		Limit(uint64(page.PageSize)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build page query: %w", err)
	}

	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Payment, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM payments WHERE id = $1",
		strings.Join(paymentColumns, ", "),
	)

	p, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanPayment)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) FindByReceiptKey(
	ctx context.Context,
	unitID uuid.UUID,
	transactionRef string,
	amount float64,
) (*Payment, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM payments
		WHERE unit_id = $1 AND transaction_ref = $2 AND total_amount = $3`,
		strings.Join(paymentColumns, ", "))

	p, err := repository.QueryOne(ctx, r.db, q, []any{unitID, transactionRef, amount}, scanPayment)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) NextConsecutive(ctx context.Context, unitID uuid.UUID) (int, error) {
	return r.seed(ctx, unitID)
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Payment, error) {
	switch cmd.SourceType {
	case SourceInternal:
		return r.createInternal(ctx, cmd)
	case SourceExternal:
		return r.createExternal(ctx, cmd)
	default:
		return nil, ErrInvalidSource
	}
}

// createInternal assigns the unit's seed as the consecutive number and bumps
// the seed, both inside one transaction. Resequencing follows outside it and
// settles the final numbering by payment date.
func (r *repo) createInternal(ctx context.Context, cmd CreateCommand) (*Payment, error) {
	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Payment, error) {
		var seed int
		err := tx.QueryRowContext(
			ctx,
			"SELECT consecutive_seed FROM units WHERE id = $1 FOR UPDATE",
			cmd.UnitID,
		).Scan(&seed)
		if err != nil {
			return Payment{}, err
		}

		if _, err := tx.ExecContext(
			ctx,
			"UPDATE units SET consecutive_seed = $1, updated_at = now() WHERE id = $2",
			seed+1, cmd.UnitID,
		); err != nil {
			return Payment{}, err
		}

		return r.insert(ctx, tx, cmd, &seed)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if err := r.Resequence(ctx, cmd.UnitID); err != nil {
		return nil, err
	}

	r.logger.Info("internal payment created", "id", p.ID, "unit", p.UnitID)
	return r.Find(ctx, p.ID)
}

func (r *repo) createExternal(ctx context.Context, cmd CreateCommand) (*Payment, error) {
	if cmd.ManualConsecutive != nil {
		var count int
		err := r.db.QueryRowContext(
			ctx,
			`SELECT COUNT(*) FROM payments
			 WHERE unit_id = $1 AND manual_consecutive = $2 AND source_type = $3`,
			cmd.UnitID, *cmd.ManualConsecutive, SourceExternal,
		).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("check manual consecutive: %w", err)
		}
		if count > 0 {
			return nil, ErrDuplicate
		}
	}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Payment, error) {
		return r.insert(ctx, tx, cmd, nil)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("external payment created", "id", p.ID, "unit", p.UnitID)
	return &p, nil
}

func (r *repo) insert(ctx context.Context, tx *sql.Tx, cmd CreateCommand, consecutive *int) (Payment, error) {
	q := fmt.Sprintf(`
		INSERT INTO payments(
			unit_id, provider_id, beneficiary, concept, total_amount,
			payment_date, source_type, consecutive_number, manual_consecutive,
			bank_name, transaction_ref, status, file_url,
			source, email_subject, email_sender, email_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING %s`, strings.Join(paymentColumns, ", "))

	args := []any{
		cmd.UnitID, cmd.ProviderID, cmd.Beneficiary, cmd.Concept, cmd.TotalAmount,
		cmd.PaymentDate, cmd.SourceType, consecutive, cmd.ManualConsecutive,
		cmd.BankName, cmd.TransactionRef, StatusDraft, cmd.FileURL,
		cmd.Source, cmd.EmailSubject, cmd.EmailSender, cmd.EmailDate,
	}

	return repository.QueryOne(ctx, tx, q, args, scanPayment)
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Payment, error) {
	current, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Frozen() {
		return nil, ErrFrozen
	}

	q := fmt.Sprintf(`
		UPDATE payments
		SET provider_id = $1, beneficiary = $2, concept = $3, total_amount = $4,
			payment_date = $5, manual_consecutive = $6, bank_name = $7,
			transaction_ref = $8, status = $9, updated_at = now()
		WHERE id = $10
		RETURNING %s`, strings.Join(paymentColumns, ", "))

	args := []any{
		cmd.ProviderID, cmd.Beneficiary, cmd.Concept, cmd.TotalAmount,
		cmd.PaymentDate, cmd.ManualConsecutive, cmd.BankName,
		cmd.TransactionRef, cmd.Status, id,
	}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Payment, error) {
		return repository.QueryOne(ctx, tx, q, args, scanPayment)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	// date changes can reorder the block
	if p.SourceType == SourceInternal {
		if err := r.Resequence(ctx, p.UnitID); err != nil {
			return nil, err
		}
		return r.Find(ctx, id)
	}

	r.logger.Info("payment updated", "id", p.ID)
	return &p, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := r.Find(ctx, id)
	if err != nil {
		return err
	}
	if current.Frozen() {
		return ErrFrozen
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM payments WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if current.SourceType == SourceInternal {
		if err := r.Resequence(ctx, current.UnitID); err != nil {
			return err
		}
	}

	r.logger.Info("payment deleted", "id", id)
	return nil
}

func (r *repo) Resequence(ctx context.Context, unitID uuid.UUID) error {
	return resequence(ctx, r, r.logger, unitID)
}

func (r *repo) frozenMax(ctx context.Context, unitID uuid.UUID) (int, error) {
	var max int
	err := r.db.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(consecutive_number), 0) FROM payments
		 WHERE unit_id = $1 AND source_type = $2 AND monthly_report_id IS NOT NULL`,
		unitID, SourceInternal,
	).Scan(&max)
	return max, err
}

func (r *repo) listUnfrozen(ctx context.Context, unitID uuid.UUID) ([]sequenced, error) {
	return repository.QueryMany(
		ctx, r.db,
		`SELECT id, consecutive_number FROM payments
		 WHERE unit_id = $1 AND source_type = $2
		   AND monthly_report_id IS NULL AND consecutive_number IS NOT NULL
		 ORDER BY payment_date ASC, created_at ASC`,
		[]any{unitID, SourceInternal},
		func(s repository.Scanner) (sequenced, error) {
			var p sequenced
			err := s.Scan(&p.ID, &p.Number)
			return p, err
		},
	)
}

func (r *repo) seed(ctx context.Context, unitID uuid.UUID) (int, error) {
	var seed int
	err := r.db.QueryRowContext(
		ctx,
		"SELECT consecutive_seed FROM units WHERE id = $1",
		unitID,
	).Scan(&seed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return seed, nil
}

func (r *repo) updateNumber(ctx context.Context, id uuid.UUID, number int) error {
	return repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE payments SET consecutive_number = $1, updated_at = now() WHERE id = $2",
		number, id,
	)
}

func (r *repo) updateSeed(ctx context.Context, unitID uuid.UUID, seed int) error {
	return repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE units SET consecutive_seed = $1, updated_at = now() WHERE id = $2",
		seed, unitID,
	)
}
