package memory

import (
	"context"
	"sort"
	"sync"

	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/storage"
)

// JournalStore is an in-memory implementation of storage.JournalStore.
type JournalStore struct {
	mu      sync.RWMutex
	data    map[string]*domain.JournalEntry // keyed by entry_id
	lastSeq uint64
}

// NewJournalStore creates a new in-memory journal store.
func NewJournalStore() *JournalStore {
	return &JournalStore{
		data: make(map[string]*domain.JournalEntry),
	}
}

// Insert adds a new entry. Returns ErrDuplicateKey if entry_id exists.
func (s *JournalStore) Insert(_ context.Context, e *domain.JournalEntry) error {
	if e == nil || e.EntryID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EntryID]; exists {
		return storage.ErrDuplicateKey
	}

	s.put(e)
	return nil
}

// InsertBulk adds multiple entries atomically. Fails entire batch on any duplicate.
func (s *JournalStore) InsertBulk(_ context.Context, entries []*domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e == nil || e.EntryID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.EntryID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.EntryID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.EntryID] = struct{}{}
	}

	// Second pass: insert all
	for _, e := range entries {
		s.put(e)
	}
	return nil
}

// put stores a copy of e. Caller must hold the write lock.
func (s *JournalStore) put(e *domain.JournalEntry) {
	s.data[e.EntryID] = e.Clone()
	if e.Sequence > s.lastSeq {
		s.lastSeq = e.Sequence
	}
}

// GetByAccount retrieves entries touching addr, ordered by sequence ASC.
func (s *JournalStore) GetByAccount(_ context.Context, addr domain.Address) ([]*domain.JournalEntry, error) {
	return s.filter(func(e *domain.JournalEntry) bool {
		return e.Caller == addr || e.From == addr || e.To == addr
	}), nil
}

// GetByTimeRange retrieves entries within [start, end] (inclusive), ordered by sequence ASC.
func (s *JournalStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.JournalEntry, error) {
	return s.filter(func(e *domain.JournalEntry) bool {
		return e.TimestampMs >= start && e.TimestampMs <= end
	}), nil
}

// GetAfterSequence retrieves entries with sequence > after, ordered by sequence ASC.
func (s *JournalStore) GetAfterSequence(_ context.Context, after uint64) ([]*domain.JournalEntry, error) {
	return s.filter(func(e *domain.JournalEntry) bool {
		return e.Sequence > after
	}), nil
}

// LastSequence returns the highest stored sequence, or 0 if empty.
func (s *JournalStore) LastSequence(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeq, nil
}

func (s *JournalStore) filter(match func(*domain.JournalEntry) bool) []*domain.JournalEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.JournalEntry
	for _, e := range s.data {
		if match(e) {
			result = append(result, e.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Sequence < result[j].Sequence
	})
	return result
}

var _ storage.JournalStore = (*JournalStore)(nil)
