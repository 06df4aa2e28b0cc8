package invoices

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

// System defines the public contract for invoice domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Invoice], error)

	Find(ctx context.Context, id uuid.UUID) (*Invoice, error)
	Create(ctx context.Context, cmd CreateCommand) (*Invoice, error)

	// FindByNumber is the dedup lookup: the invoice a provider issued under
	// the given number, or ErrNotFound.
	FindByNumber(ctx context.Context, providerID uuid.UUID, number string) (*Invoice, error)
}

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an invoice repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "invoices"),
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
) (*pagination.PageResult[Invoice], error) {
	page.Normalize(r.pagination)

	base := filters.Apply(psql.Select().From("invoices"))
	if page.Search != nil {
		base = base.Where(sq.Or{
			sq.ILike{"invoice_number": "%" + *page.Search + "%"},
			sq.ILike{"concept": "%" + *page.Search + "%"},
		})
	}

	countSQL, countArgs, err := base.Column("COUNT(*)").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}

	pageSQL, pageArgs, err := base.
		Columns(invoiceColumns...).
		OrderBy("invoice_date DESC", "created_at DESC").
		Limit(uint64(page.PageSize)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build page query: %w", err)
	}

	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanInvoice)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM invoices WHERE id = $1",
		strings.Join(invoiceColumns, ", "),
	)

	inv, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanInvoice)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &inv, nil
}

func (r *repo) FindByNumber(ctx context.Context, providerID uuid.UUID, number string) (*Invoice, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM invoices WHERE provider_id = $1 AND invoice_number = $2",
		strings.Join(invoiceColumns, ", "),
	)

	inv, err := repository.QueryOne(ctx, r.db, q, []any{providerID, number}, scanInvoice)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &inv, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Invoice, error) {
	q := fmt.Sprintf(`
		INSERT INTO invoices(
			unit_id, provider_id, invoice_number, concept,
			total_amount, retefuente_amount, reteica_amount, invoice_date,
			status, file_url, source, email_subject, email_sender, email_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING %s`, strings.Join(invoiceColumns, ", "))

	args := []any{
		cmd.UnitID, cmd.ProviderID, cmd.InvoiceNumber, cmd.Concept,
		cmd.TotalAmount, cmd.RetefuenteAmount, cmd.ReteicaAmount, cmd.InvoiceDate,
		StatusDraft, cmd.FileURL, cmd.Source, cmd.EmailSubject, cmd.EmailSender, cmd.EmailDate,
	}

	inv, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Invoice, error) {
		return repository.QueryOne(ctx, tx, q, args, scanInvoice)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"invoice created",
		"id", inv.ID,
		"unit", inv.UnitID,
		"provider", inv.ProviderID,
		"number", inv.InvoiceNumber,
	)
	return &inv, nil
}
