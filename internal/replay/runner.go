// Package replay rebuilds ledger state by re-applying journal entries
// recorded after a snapshot.
package replay

import (
	"context"
	"fmt"

	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/storage"
)

// Engine receives journal entries in sequence order.
type Engine interface {
	OnEntry(ctx context.Context, e *domain.JournalEntry) error
}

// Runner loads journal entries from storage and replays them in sequence order.
type Runner struct {
	journal storage.JournalStore
}

// NewRunner creates a new replay runner.
func NewRunner(journal storage.JournalStore) *Runner {
	return &Runner{journal: journal}
}

// Run replays every entry with sequence > after through engine.
// Returns the last sequence applied, or after if there was nothing to replay.
func (r *Runner) Run(ctx context.Context, after uint64, engine Engine) (uint64, error) {
	entries, err := r.journal.GetAfterSequence(ctx, after)
	if err != nil {
		return after, fmt.Errorf("load journal: %w", err)
	}

	SortEntries(entries)
	if err := CheckContiguous(entries, after); err != nil {
		return after, err
	}

	last := after
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		if err := engine.OnEntry(ctx, e); err != nil {
			return last, err
		}
		last = e.Sequence
	}
	return last, nil
}
