package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/storage"
)

// JournalStore implements storage.JournalStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicates are rejected by
// explicit checks before each batch is sent.
type JournalStore struct {
	conn *Conn
}

// NewJournalStore creates a new JournalStore.
func NewJournalStore(conn *Conn) *JournalStore {
	return &JournalStore{conn: conn}
}

// Compile-time interface check.
var _ storage.JournalStore = (*JournalStore)(nil)

const selectJournalEntry = `
	SELECT entry_id, sequence, kind, caller, from_address, to_address, amount, timestamp_ms
	FROM journal_entries
`

// Insert adds a new entry. Returns ErrDuplicateKey if entry_id exists.
func (s *JournalStore) Insert(ctx context.Context, e *domain.JournalEntry) error {
	return s.InsertBulk(ctx, []*domain.JournalEntry{e})
}

// InsertBulk adds multiple entries in one batch. Fails entire batch on duplicate.
func (s *JournalStore) InsertBulk(ctx context.Context, entries []*domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e == nil || e.EntryID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.EntryID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.EntryID] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, e := range entries {
		exists, err := s.exists(ctx, e.EntryID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO journal_entries (
			entry_id, sequence, kind, caller, from_address, to_address, amount, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		err = batch.Append(
			e.EntryID, e.Sequence, string(e.Kind),
			addressText(e.Caller), addressText(e.From), addressText(e.To),
			domain.CopyAmount(e.Amount).ToBig(), e.TimestampMs,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAccount retrieves entries where addr is caller, from or to, ordered by sequence ASC.
func (s *JournalStore) GetByAccount(ctx context.Context, addr domain.Address) ([]*domain.JournalEntry, error) {
	query := selectJournalEntry + `
		WHERE caller = ? OR from_address = ? OR to_address = ?
		ORDER BY sequence ASC
	`

	a := addressText(addr)
	rows, err := s.conn.Query(ctx, query, a, a, a)
	if err != nil {
		return nil, fmt.Errorf("query by account: %w", err)
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

// GetByTimeRange retrieves entries within [start, end] (inclusive), ordered by sequence ASC.
func (s *JournalStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.JournalEntry, error) {
	query := selectJournalEntry + `
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY sequence ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

// GetAfterSequence retrieves entries with sequence > after, ordered by sequence ASC.
func (s *JournalStore) GetAfterSequence(ctx context.Context, after uint64) ([]*domain.JournalEntry, error) {
	query := selectJournalEntry + `
		WHERE sequence > ?
		ORDER BY sequence ASC
	`

	rows, err := s.conn.Query(ctx, query, after)
	if err != nil {
		return nil, fmt.Errorf("query after sequence: %w", err)
	}
	defer rows.Close()

	return scanJournalEntries(rows)
}

// LastSequence returns the highest stored sequence, or 0 if the journal is empty.
func (s *JournalStore) LastSequence(ctx context.Context) (uint64, error) {
	var seq uint64
	if err := s.conn.QueryRow(ctx, `SELECT max(sequence) FROM journal_entries`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last sequence: %w", err)
	}
	return seq, nil
}

// exists checks if an entry with the given ID exists.
func (s *JournalStore) exists(ctx context.Context, entryID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM journal_entries WHERE entry_id = ?`, entryID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows used for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanJournalEntries scans multiple rows.
func scanJournalEntries(rows chRows) ([]*domain.JournalEntry, error) {
	var entries []*domain.JournalEntry

	for rows.Next() {
		var (
			e                domain.JournalEntry
			kind             string
			caller, from, to string
			amount           big.Int
		)
		err := rows.Scan(&e.EntryID, &e.Sequence, &kind, &caller, &from, &to, &amount, &e.TimestampMs)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry row: %w", err)
		}

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
		var overflow bool
		if e.Amount, overflow = uint256.FromBig(&amount); overflow {
			return nil, fmt.Errorf("journal entry %s amount overflows uint256", e.EntryID)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entry rows: %w", err)
	}

	return entries, nil
}

func addressText(a domain.Address) string {
	return strings.ToLower(a.Hex())
}
