package service

import (
	"context"
	"fmt"

	"soulverse-ledger/internal/config"
	"soulverse-ledger/internal/storage"
	chstore "soulverse-ledger/internal/storage/clickhouse"
	"soulverse-ledger/internal/storage/memory"
	"soulverse-ledger/internal/storage/migrations"
	pgstore "soulverse-ledger/internal/storage/postgres"
)

// Backend names used in logs and metric labels.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
)

// Stores groups the persistence a Service needs.
type Stores struct {
	Snapshots storage.SnapshotStore
	Journal   storage.JournalStore
	Backend   string // backend of Snapshots and Journal

	// Analytics is an optional second journal receiving a copy of every entry.
	// It is never read back on restore.
	Analytics storage.JournalStore
}

// MemoryStores returns fresh in-memory stores.
func MemoryStores() *Stores {
	return &Stores{
		Snapshots: memory.NewSnapshotStore(),
		Journal:   memory.NewJournalStore(),
		Backend:   BackendMemory,
	}
}

// NewStores creates stores for cfg, applying embedded migrations to each
// database. The returned cleanup closes all connections.
func NewStores(ctx context.Context, cfg *config.Config) (*Stores, func(), error) {
	if cfg.UseMemory {
		return MemoryStores(), func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	stores := &Stores{
		Snapshots: pgstore.NewSnapshotStore(pool),
		Journal:   pgstore.NewJournalStore(pool),
		Backend:   BackendPostgres,
	}

	if cfg.ClickhouseDSN == "" {
		return stores, pool.Close, nil
	}

	// ClickHouse (analytics)
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}
	stores.Analytics = chstore.NewJournalStore(chConn)

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}
