package storage

import (
	"context"

	"soulverse-ledger/internal/domain"
)

// SnapshotStore persists the latest full state of a ledger.
// Only the most recent snapshot is kept; Save replaces it atomically.
type SnapshotStore interface {
	// Save replaces the stored snapshot. Returns ErrInvalidInput for nil.
	Save(ctx context.Context, s *domain.Snapshot) error

	// Load returns the stored snapshot. Returns ErrNotFound if none has been saved.
	Load(ctx context.Context) (*domain.Snapshot, error)
}
