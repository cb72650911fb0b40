package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Uses four tables:
//   - ledger_state: single row with roles, limits, parameters and sequence
//   - ledger_accounts: balances and policy flags
//   - ledger_allowances: (owner, spender) amounts
//   - ledger_daily_counts: per-account daily transfer counters
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Save replaces the stored snapshot in a single transaction.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	return s.pool.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO ledger_state (
				id, owner, operator, transfer_limit, total_burned,
				min_wallet_holding, max_wallet_holding, max_daily_transactions,
				sequence, taken_at, updated_at
			) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			ON CONFLICT (id) DO UPDATE
			SET owner = EXCLUDED.owner,
			    operator = EXCLUDED.operator,
			    transfer_limit = EXCLUDED.transfer_limit,
			    total_burned = EXCLUDED.total_burned,
			    min_wallet_holding = EXCLUDED.min_wallet_holding,
			    max_wallet_holding = EXCLUDED.max_wallet_holding,
			    max_daily_transactions = EXCLUDED.max_daily_transactions,
			    sequence = EXCLUDED.sequence,
			    taken_at = EXCLUDED.taken_at,
			    updated_at = NOW()
		`,
			addressText(snap.Owner), addressText(snap.Operator),
			numeric(snap.TransferLimit), numeric(snap.TotalBurned),
			numeric(snap.Params.MinWalletHolding), numeric(snap.Params.MaxWalletHolding),
			int64(snap.Params.MaxDailyTransactions),
			int64(snap.Sequence), snap.TakenAt,
		)
		if err != nil {
			return fmt.Errorf("upsert ledger state: %w", err)
		}

		for _, table := range []string{"ledger_accounts", "ledger_allowances", "ledger_daily_counts"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"ledger_accounts"},
			[]string{"address", "balance", "blacklisted", "whitelisted"},
			pgx.CopyFromSlice(len(snap.Accounts), func(i int) ([]any, error) {
				a := snap.Accounts[i]
				return []any{addressText(a.Address), numeric(a.Balance), a.Blacklisted, a.Whitelisted}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy ledger accounts: %w", err)
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"ledger_allowances"},
			[]string{"owner", "spender", "amount"},
			pgx.CopyFromSlice(len(snap.Allowances), func(i int) ([]any, error) {
				a := snap.Allowances[i]
				return []any{addressText(a.Owner), addressText(a.Spender), numeric(a.Amount)}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy ledger allowances: %w", err)
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"ledger_daily_counts"},
			[]string{"address", "count", "day"},
			pgx.CopyFromSlice(len(snap.DailyCounts), func(i int) ([]any, error) {
				c := snap.DailyCounts[i]
				return []any{addressText(c.Address), int64(c.Count), c.Day}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy ledger daily counts: %w", err)
		}
		return nil
	})
}

// Load returns the stored snapshot. Returns ErrNotFound if none has been saved.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := s.pool.inTx(ctx, readOnlyTx, func(tx pgx.Tx) error {
		var err error
		if snap, err = loadState(ctx, tx); err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("load ledger state: %w", err)
		}
		if snap.Accounts, err = loadAccounts(ctx, tx); err != nil {
			return err
		}
		if snap.Allowances, err = loadAllowances(ctx, tx); err != nil {
			return err
		}
		snap.DailyCounts, err = loadDailyCounts(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// readOnlyTx gives Load a consistent view across the four snapshot tables.
var readOnlyTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

func loadState(ctx context.Context, tx pgx.Tx) (*domain.Snapshot, error) {
	row := tx.QueryRow(ctx, `
		SELECT owner, operator, transfer_limit::text, total_burned::text,
		       min_wallet_holding::text, max_wallet_holding::text, max_daily_transactions,
		       sequence, taken_at
		FROM ledger_state
		WHERE id = 1
	`)

	var (
		owner, operator                 string
		limit, burned, minimum, maximum string
		maxDaily, sequence              int64
		snap                            domain.Snapshot
	)
	err := row.Scan(&owner, &operator, &limit, &burned, &minimum, &maximum, &maxDaily, &sequence, &snap.TakenAt)
	if err != nil {
		return nil, err
	}

	if snap.Owner, err = domain.ParseAddress(owner); err != nil {
		return nil, err
	}
	if snap.Operator, err = domain.ParseAddress(operator); err != nil {
		return nil, err
	}
	if snap.TransferLimit, err = parseAmount(limit); err != nil {
		return nil, err
	}
	if snap.TotalBurned, err = parseAmount(burned); err != nil {
		return nil, err
	}
	if snap.Params.MinWalletHolding, err = parseAmount(minimum); err != nil {
		return nil, err
	}
	if snap.Params.MaxWalletHolding, err = parseAmount(maximum); err != nil {
		return nil, err
	}
	snap.Params.MaxDailyTransactions = uint64(maxDaily)
	snap.Sequence = uint64(sequence)
	return &snap, nil
}

func loadAccounts(ctx context.Context, tx pgx.Tx) ([]domain.Account, error) {
	rows, err := tx.Query(ctx, `
		SELECT address, balance::text, blacklisted, whitelisted
		FROM ledger_accounts
		ORDER BY address COLLATE "C" ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query ledger accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		var (
			a             domain.Account
			addr, balance string
		)
		if err := rows.Scan(&addr, &balance, &a.Blacklisted, &a.Whitelisted); err != nil {
			return nil, fmt.Errorf("scan ledger account: %w", err)
		}
		if a.Address, err = domain.ParseAddress(addr); err != nil {
			return nil, err
		}
		if a.Balance, err = parseAmount(balance); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger accounts: %w", err)
	}
	return accounts, nil
}

func loadAllowances(ctx context.Context, tx pgx.Tx) ([]domain.Allowance, error) {
	rows, err := tx.Query(ctx, `
		SELECT owner, spender, amount::text
		FROM ledger_allowances
		ORDER BY owner COLLATE "C" ASC, spender COLLATE "C" ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query ledger allowances: %w", err)
	}
	defer rows.Close()

	allowances := []domain.Allowance{}
	for rows.Next() {
		var (
			a                      domain.Allowance
			owner, spender, amount string
		)
		if err := rows.Scan(&owner, &spender, &amount); err != nil {
			return nil, fmt.Errorf("scan ledger allowance: %w", err)
		}
		if a.Owner, err = domain.ParseAddress(owner); err != nil {
			return nil, err
		}
		if a.Spender, err = domain.ParseAddress(spender); err != nil {
			return nil, err
		}
		if a.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		allowances = append(allowances, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger allowances: %w", err)
	}
	return allowances, nil
}

func loadDailyCounts(ctx context.Context, tx pgx.Tx) ([]domain.DailyCount, error) {
	rows, err := tx.Query(ctx, `
		SELECT address, count, day
		FROM ledger_daily_counts
		ORDER BY address COLLATE "C" ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query ledger daily counts: %w", err)
	}
	defer rows.Close()

	counts := []domain.DailyCount{}
	for rows.Next() {
		var (
			c     domain.DailyCount
			addr  string
			count int64
		)
		if err := rows.Scan(&addr, &count, &c.Day); err != nil {
			return nil, fmt.Errorf("scan ledger daily count: %w", err)
		}
		if c.Address, err = domain.ParseAddress(addr); err != nil {
			return nil, err
		}
		c.Count = uint64(count)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger daily counts: %w", err)
	}
	return counts, nil
}
