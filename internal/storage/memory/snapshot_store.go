package memory

import (
	"context"
	"sync"

	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu       sync.RWMutex
	snapshot *domain.Snapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Save replaces the stored snapshot with a copy of s.
func (s *SnapshotStore) Save(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = snap.Clone()
	return nil
}

// Load returns a copy of the stored snapshot. Returns ErrNotFound if none has been saved.
func (s *SnapshotStore) Load(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil, storage.ErrNotFound
	}
	return s.snapshot.Clone(), nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
