package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/storage"
)

// JournalStore implements storage.JournalStore using PostgreSQL.
type JournalStore struct {
	pool *Pool
}

// NewJournalStore creates a new JournalStore.
func NewJournalStore(pool *Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.JournalStore = (*JournalStore)(nil)

const insertJournalEntry = `
	INSERT INTO journal_entries (
		entry_id, sequence, kind, caller, from_address, to_address, amount, timestamp_ms
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const selectJournalEntry = `
	SELECT entry_id, sequence, kind, caller, from_address, to_address, amount::text, timestamp_ms
	FROM journal_entries
`

func journalArgs(e *domain.JournalEntry) []any {
	return []any{
		e.EntryID, int64(e.Sequence), string(e.Kind),
		addressText(e.Caller), addressText(e.From), addressText(e.To),
		numeric(e.Amount), e.TimestampMs,
	}
}

// Insert adds a new entry. Returns ErrDuplicateKey if entry_id or sequence exists.
func (s *JournalStore) Insert(ctx context.Context, e *domain.JournalEntry) error {
	if e == nil || e.EntryID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertJournalEntry, journalArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// InsertBulk adds multiple entries atomically. Fails entire batch on any duplicate.
func (s *JournalStore) InsertBulk(ctx context.Context, entries []*domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e == nil || e.EntryID == "" {
			return storage.ErrInvalidInput
		}
	}

	return s.pool.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, e := range entries {
			if _, err := tx.Exec(ctx, insertJournalEntry, journalArgs(e)...); err != nil {
				if isDuplicateKeyError(err) {
					return storage.ErrDuplicateKey
				}
				return fmt.Errorf("insert journal entry in bulk: %w", err)
			}
		}
		return nil
	})
}

// GetByAccount retrieves entries where addr is caller, from or to, ordered by sequence ASC.
func (s *JournalStore) GetByAccount(ctx context.Context, addr domain.Address) ([]*domain.JournalEntry, error) {
	query := selectJournalEntry + `
		WHERE caller = $1 OR from_address = $1 OR to_address = $1
		ORDER BY sequence ASC
	`

	rows, err := s.pool.Query(ctx, query, addressText(addr))
	if err != nil {
		return nil, fmt.Errorf("get journal entries by account: %w", err)
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

// GetByTimeRange retrieves entries within [start, end] (inclusive), ordered by sequence ASC.
func (s *JournalStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.JournalEntry, error) {
	query := selectJournalEntry + `
		WHERE timestamp_ms >= $1 AND timestamp_ms <= $2
		ORDER BY sequence ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get journal entries by time range: %w", err)
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

// GetAfterSequence retrieves entries with sequence > after, ordered by sequence ASC.
func (s *JournalStore) GetAfterSequence(ctx context.Context, after uint64) ([]*domain.JournalEntry, error) {
	query := selectJournalEntry + `
		WHERE sequence > $1
		ORDER BY sequence ASC
	`

	rows, err := s.pool.Query(ctx, query, int64(after))
	if err != nil {
		return nil, fmt.Errorf("get journal entries after sequence: %w", err)
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

// LastSequence returns the highest stored sequence, or 0 if the journal is empty.
func (s *JournalStore) LastSequence(ctx context.Context) (uint64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM journal_entries`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last journal sequence: %w", err)
	}
	return uint64(seq), nil
}

// scanJournalEntries scans multiple rows into a slice of JournalEntry.
func scanJournalEntries(rows pgx.Rows) ([]*domain.JournalEntry, error) {
	var entries []*domain.JournalEntry

	for rows.Next() {
		var (
			e                     domain.JournalEntry
			seq                   int64
			kind                  string
			caller, from, to, amt string
		)
		err := rows.Scan(&e.EntryID, &seq, &kind, &caller, &from, &to, &amt, &e.TimestampMs)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}

		e.Sequence = uint64(seq)
		e.Kind = domain.OperationKind(kind)
		if e.Caller, err = domain.ParseAddress(caller); err != nil {
			return nil, err
		}
		if e.From, err = domain.ParseAddress(from); err != nil {
			return nil, err
		}
		if e.To, err = domain.ParseAddress(to); err != nil {
			return nil, err
		}
		if e.Amount, err = parseAmount(amt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}

	return entries, nil
}
