package units

import (
	"context"

	"github.com/google/uuid"

	"github.com/contador-app/contador/pkg/pagination"
)

// Resequencer renumbers a unit's internal payments after its seed changes.
type Resequencer interface {
	Resequence(ctx context.Context, unitID uuid.UUID) error
}

// System defines the public contract for unit domain operations.
type System interface {
	Handler(reseq Resequencer) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Unit], error)

	Find(ctx context.Context, id uuid.UUID) (*Unit, error)
	Create(ctx context.Context, cmd CreateCommand) (*Unit, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Unit, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// ListAutoScan returns every unit with automatic scanning enabled.
	ListAutoScan(ctx context.Context) ([]Unit, error)
	// TouchLastScan stamps the unit's last successful scan time.
	TouchLastScan(ctx context.Context, id uuid.UUID) error
}
