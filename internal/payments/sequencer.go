package payments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// sequenced is the minimal view of an unfrozen INTERNAL payment the
// sequencer operates on, in canonical numbering order.
type sequenced struct {
	ID     uuid.UUID
	Number int
}

// sequencerStore abstracts the reads and writes the sequencer performs.
// Implemented by the payment repository over SQL; tests supply a fake.
type sequencerStore interface {
	// frozenMax returns the highest consecutive number among the unit's
	// frozen INTERNAL payments, or 0 when none exist.
	frozenMax(ctx context.Context, unitID uuid.UUID) (int, error)
	// listUnfrozen returns the unit's unfrozen INTERNAL payments ordered by
	// (payment_date ASC, created_at ASC).
	listUnfrozen(ctx context.Context, unitID uuid.UUID) ([]sequenced, error)
	// seed returns the unit's consecutive seed.
	seed(ctx context.Context, unitID uuid.UUID) (int, error)
	updateNumber(ctx context.Context, id uuid.UUID, number int) error
	updateSeed(ctx context.Context, unitID uuid.UUID, seed int) error
}

// resequence recomputes consecutive numbers for a unit's unfrozen INTERNAL
// payments. All state is read fresh, so repeated invocations converge and a
// crash mid-run heals on the next call.
//
// Numbering starts at the first payment's current number (or frozenMax+1 when
// the unfrozen set is empty). A seed above frozenMax that differs from that
// base is an explicit relocation and becomes the new base. When the block
// shifts upward, updates run last-to-first so the unique index never sees a
// transient duplicate. The seed is raised to base+count afterwards, never
// lowered.
func resequence(ctx context.Context, store sequencerStore, logger *slog.Logger, unitID uuid.UUID) error {
	frozen, err := store.frozenMax(ctx, unitID)
	if err != nil {
		return fmt.Errorf("frozen max: %w", err)
	}

	list, err := store.listUnfrozen(ctx, unitID)
	if err != nil {
		return fmt.Errorf("list unfrozen: %w", err)
	}

	seed, err := store.seed(ctx, unitID)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}

	starting := frozen + 1
	if len(list) > 0 {
		starting = list[0].Number
	}

	// a seed at or below frozenMax is invalid and ignored
	if seed > frozen && seed != starting {
		starting = seed
	}

	apply := func(i int) error {
		target := starting + i
		if list[i].Number == target {
			return nil
		}
		return store.updateNumber(ctx, list[i].ID, target)
	}

	if len(list) > 0 && starting > list[0].Number {
		for i := len(list) - 1; i >= 0; i-- {
			if err := apply(i); err != nil {
				return fmt.Errorf("renumber payment %s: %w", list[i].ID, err)
			}
		}
	} else {
		for i := range list {
			if err := apply(i); err != nil {
				return fmt.Errorf("renumber payment %s: %w", list[i].ID, err)
			}
		}
	}

	if next := starting + len(list); seed < next {
		if err := store.updateSeed(ctx, unitID, next); err != nil {
			return fmt.Errorf("update seed: %w", err)
		}
		logger.Info("consecutive seed raised", "unit", unitID, "seed", next)
	}

	return nil
}
