package storage

import (
	"context"

	"soulverse-ledger/internal/domain"
)

// JournalStore provides append-only access to journal entries.
type JournalStore interface {
	// Insert adds a new entry. Returns ErrDuplicateKey if entry_id exists.
	Insert(ctx context.Context, e *domain.JournalEntry) error

	// InsertBulk adds multiple entries atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, entries []*domain.JournalEntry) error

	// GetByAccount retrieves entries where addr is caller, from or to, ordered by sequence ASC.
	GetByAccount(ctx context.Context, addr domain.Address) ([]*domain.JournalEntry, error)

	// GetByTimeRange retrieves entries with timestamp in [start, end] (inclusive, ms), ordered by sequence ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.JournalEntry, error)

	// GetAfterSequence retrieves entries with sequence > after, ordered by sequence ASC.
	GetAfterSequence(ctx context.Context, after uint64) ([]*domain.JournalEntry, error)

	// LastSequence returns the highest stored sequence, or 0 if the journal is empty.
	LastSequence(ctx context.Context) (uint64, error)
}
