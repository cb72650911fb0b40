// Package service hosts a single token ledger.
//
// Service serializes every call, journals each successful state change,
// exports metrics and logs, and checkpoints full snapshots. On Open it restores
// the last snapshot (or creates the genesis state) and replays the journal
// entries recorded after it.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"soulverse-ledger/internal/config"
	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/idhash"
	"soulverse-ledger/internal/ledgererr"
	"soulverse-ledger/internal/observability"
	"soulverse-ledger/internal/replay"
	"soulverse-ledger/internal/storage"
	"soulverse-ledger/internal/token"
)

// ErrNotDurable is returned by mutating calls while the journal is missing an
// entry that no saved snapshot covers.
var ErrNotDurable = errors.New("ledger state not durable: journal entry lost and checkpoint pending")

// Service is one hosted ledger instance. It is safe for concurrent use.
type Service struct {
	mu     sync.Mutex
	token  *token.Token
	stores *Stores
	seq    uint64    // last journal sequence assigned
	at     time.Time // time of the call in progress

	// unsaved is set when a journal entry was lost and the covering
	// checkpoint failed. Mutations stay blocked until a checkpoint succeeds.
	unsaved bool

	clock   func() time.Time
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for daily windows and journal timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Open restores the ledger persisted in stores, or creates it with the whole
// fixed supply minted to owner if no snapshot exists. Journal entries recorded
// after the snapshot are replayed. A restored snapshot keeps its own owner and
// parameters.
func Open(ctx context.Context, owner domain.Address, params domain.PolicyParams, stores *Stores, opts ...Option) (*Service, error) {
	s := &Service{
		stores: stores,
		clock:  time.Now,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics("", prometheus.NewRegistry())
	}
	log := s.log.WithField("backend", stores.Backend)

	snap, err := stores.Snapshots.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.token, err = token.New(owner, params, token.WithClock(s.now))
		if err != nil {
			return nil, fmt.Errorf("create ledger: %w", err)
		}
		log.WithField("owner", owner.Hex()).Info("created genesis ledger")
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	default:
		s.token, err = token.Restore(snap, token.WithClock(s.now))
		if err != nil {
			return nil, fmt.Errorf("restore snapshot: %w", err)
		}
		s.seq = snap.Sequence
		if snap.Owner != owner {
			log.WithFields(logrus.Fields{
				"configured_owner": owner.Hex(),
				"snapshot_owner":   snap.Owner.Hex(),
			}).Warn("configured owner differs from snapshot; keeping snapshot owner")
		}
		log.WithField("sequence", snap.Sequence).Info("restored ledger snapshot")
	}

	base := s.seq
	s.seq, err = replay.NewRunner(stores.Journal).Run(ctx, base, s)
	s.at = time.Time{}
	if err != nil {
		return nil, fmt.Errorf("replay journal after sequence %d: %w", base, err)
	}
	if s.seq > base {
		log.WithFields(logrus.Fields{"from": base + 1, "to": s.seq}).Info("replayed journal")
	}

	if err := s.token.CheckInvariant(); err != nil {
		return nil, err
	}
	s.metrics.UpdateSupply(s.token.TotalSupply(), s.token.TotalBurned())
	return s, nil
}

// OpenFromConfig builds stores from cfg and opens the ledger on them.
// The returned cleanup closes the stores.
func OpenFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, func(), error) {
	params, err := cfg.PolicyParams()
	if err != nil {
		return nil, nil, err
	}

	stores, cleanup, err := NewStores(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	s, err := Open(ctx, cfg.Owner, params, stores, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return s, cleanup, nil
}

// OnEntry re-applies a journal entry at its recorded time. Only Open calls it.
func (s *Service) OnEntry(_ context.Context, e *domain.JournalEntry) error {
	s.at = time.UnixMilli(e.TimestampMs).UTC()
	return replay.Apply(s.token, e)
}

func (s *Service) now() time.Time {
	return s.at
}

// Transfer moves amount from caller to recipient.
func (s *Service) Transfer(ctx context.Context, caller, recipient domain.Address, amount *uint256.Int) error {
	return s.exec(ctx, domain.OpTransfer, func() (*domain.JournalEntry, error) {
		if err := s.token.Transfer(caller, recipient, amount); err != nil {
			return nil, err
		}
		return &domain.JournalEntry{Caller: caller, From: caller, To: recipient, Amount: amount}, nil
	})
}

// TransferFrom moves amount from owner to recipient on spender's allowance.
func (s *Service) TransferFrom(ctx context.Context, spender, owner, recipient domain.Address, amount *uint256.Int) error {
	return s.exec(ctx, domain.OpTransferFrom, func() (*domain.JournalEntry, error) {
		if err := s.token.TransferFrom(spender, owner, recipient, amount); err != nil {
			return nil, err
		}
		return &domain.JournalEntry{Caller: spender, From: owner, To: recipient, Amount: amount}, nil
	})
}

// Approve sets spender's allowance over caller's balance.
func (s *Service) Approve(ctx context.Context, caller, spender domain.Address, amount *uint256.Int) error {
	return s.exec(ctx, domain.OpApprove, func() (*domain.JournalEntry, error) {
		if err := s.token.Approve(caller, spender, amount); err != nil {
			return nil, err
		}
		return &domain.JournalEntry{Caller: caller, From: caller, To: spender, Amount: amount}, nil
	})
}

// Burn destroys amount of caller's tokens.
func (s *Service) Burn(ctx context.Context, caller domain.Address, amount *uint256.Int) error {
	return s.exec(ctx, domain.OpBurn, func() (*domain.JournalEntry, error) {
		if err := s.token.Burn(caller, amount); err != nil {
			return nil, err
		}
		return &domain.JournalEntry{Caller: caller, From: caller, Amount: amount}, nil
	})
}

// SetOperator assigns the operator role.
func (s *Service) SetOperator(ctx context.Context, caller, operator domain.Address) error {
	return s.exec(ctx, domain.OpSetOperator, func() (*domain.JournalEntry, error) {
		if err := s.token.SetOperator(caller, operator); err != nil {
			return nil, err
		}
		return &domain.JournalEntry{Caller: caller, To: operator}, nil
	})
}

// SetTransferLimit sets the per-transaction limit; zero removes it.
func (s *Service) SetTransferLimit(ctx context.Context, caller domain.Address, limit *uint256.Int) error {
	return s.exec(ctx, domain.OpSetTransferLimit, func() (*domain.JournalEntry, error) {
		if err := s.token.SetTransferLimit(caller, limit); err != nil {
			return nil, err
		}
		return &domain.JournalEntry{Caller: caller, Amount: limit}, nil
	})
}

// BlacklistAccount forbids addr from receiving transfers.
func (s *Service) BlacklistAccount(ctx context.Context, caller, addr domain.Address) error {
	return s.exec(ctx, domain.OpBlacklist, s.flag(caller, addr, s.token.BlacklistAccount))
}

// UnBlacklistAccount lifts addr's blacklist flag.
func (s *Service) UnBlacklistAccount(ctx context.Context, caller, addr domain.Address) error {
	return s.exec(ctx, domain.OpUnblacklist, s.flag(caller, addr, s.token.UnBlacklistAccount))
}

// WhitelistAccount exempts addr from limit, holding and daily-count checks.
func (s *Service) WhitelistAccount(ctx context.Context, caller, addr domain.Address) error {
	return s.exec(ctx, domain.OpWhitelist, s.flag(caller, addr, s.token.WhitelistAccount))
}

// UnWhitelistAccount lifts addr's whitelist flag.
func (s *Service) UnWhitelistAccount(ctx context.Context, caller, addr domain.Address) error {
	return s.exec(ctx, domain.OpUnwhitelist, s.flag(caller, addr, s.token.UnWhitelistAccount))
}

// ResetDailyTransferCount zeroes every account's daily counter.
func (s *Service) ResetDailyTransferCount(ctx context.Context, caller domain.Address) error {
	return s.exec(ctx, domain.OpResetDailyCounts, func() (*domain.JournalEntry, error) {
		if err := s.token.ResetDailyTransferCount(caller); err != nil {
			return nil, err
		}
		return &domain.JournalEntry{Caller: caller}, nil
	})
}

func (s *Service) flag(caller, addr domain.Address, op func(caller, addr domain.Address) error) func() (*domain.JournalEntry, error) {
	return func() (*domain.JournalEntry, error) {
		if err := op(caller, addr); err != nil {
			return nil, err
		}
		return &domain.JournalEntry{Caller: caller, To: addr}, nil
	}
}

// exec runs one mutating operation under the lock and journals it on success.
// fn returns the entry with caller, addresses and amount filled in.
func (s *Service) exec(ctx context.Context, kind domain.OperationKind, fn func() (*domain.JournalEntry, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	op := strings.ToLower(string(kind))
	if s.unsaved {
		if err := s.checkpoint(ctx); err != nil {
			s.metrics.RecordOperation(op, ErrNotDurable)
			return fmt.Errorf("%w: %w", ErrNotDurable, err)
		}
	}

	s.at = s.clock()

	e, err := fn()
	s.metrics.RecordOperation(op, err)
	if err != nil {
		s.logRejection(op, err)
		return err
	}

	s.seq++
	e.Sequence = s.seq
	e.Kind = kind
	e.Amount = domain.CopyAmount(e.Amount)
	e.TimestampMs = s.at.UnixMilli()
	e.EntryID = idhash.EntryID(e)

	s.append(ctx, e)
	if kind == domain.OpBurn {
		s.metrics.UpdateSupply(s.token.TotalSupply(), s.token.TotalBurned())
	}

	s.log.WithFields(logrus.Fields{
		"op":       op,
		"caller":   e.Caller.Hex(),
		"sequence": e.Sequence,
	}).Debug("operation applied")
	return nil
}

func (s *Service) logRejection(op string, err error) {
	fields := logrus.Fields{"op": op}
	var lerr *ledgererr.Error
	if errors.As(err, &lerr) {
		fields["code"] = lerr.Code
		for k, v := range lerr.Metadata {
			fields[k] = v
		}
		s.log.WithFields(fields).Debug(lerr.Message)
		return
	}
	s.log.WithFields(fields).WithError(err).Error("operation failed")
}

// append writes e to the journal and the analytics copy. Failures do not undo
// the operation. A failed primary write is covered by an immediate checkpoint
// so that replay never needs the missing entry; if that also fails, the next
// mutation retries it first. Caller must hold the lock.
func (s *Service) append(ctx context.Context, e *domain.JournalEntry) {
	if err := s.insert(ctx, s.stores.Journal, s.stores.Backend, e); err != nil {
		if err := s.checkpoint(ctx); err != nil {
			s.unsaved = true
			s.log.WithError(err).WithField("sequence", e.Sequence).
				Error("checkpoint after journal failure failed; mutations blocked until a checkpoint succeeds")
		}
	}
	if s.stores.Analytics != nil {
		_ = s.insert(ctx, s.stores.Analytics, BackendClickhouse, e)
	}
}

func (s *Service) insert(ctx context.Context, store storage.JournalStore, backend string, e *domain.JournalEntry) error {
	start := time.Now()
	err := store.Insert(ctx, e)
	s.metrics.RecordDBQuery(backend, "journal_insert", time.Since(start).Seconds(), err)
	if err != nil {
		s.metrics.RecordJournalError(backend)
		s.log.WithError(err).WithFields(logrus.Fields{
			"store":    backend,
			"sequence": e.Sequence,
			"entry_id": e.EntryID,
		}).Error("journal append failed")
	}
	return err
}

// Checkpoint saves a full snapshot of the current state.
func (s *Service) Checkpoint(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoint(ctx)
}

func (s *Service) checkpoint(ctx context.Context) error {
	s.at = s.clock()
	snap := s.token.Snapshot()
	snap.Sequence = s.seq

	start := time.Now()
	err := s.stores.Snapshots.Save(ctx, snap)
	s.metrics.RecordDBQuery(s.stores.Backend, "snapshot_save", time.Since(start).Seconds(), err)
	s.metrics.RecordCheckpoint(s.at.Unix(), err)
	if err != nil {
		s.log.WithError(err).WithField("sequence", snap.Sequence).Error("snapshot checkpoint failed")
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.unsaved = false

	s.log.WithFields(logrus.Fields{
		"sequence": snap.Sequence,
		"accounts": len(snap.Accounts),
	}).Info("snapshot checkpoint saved")
	return nil
}

// History returns the journal entries touching addr, oldest first.
func (s *Service) History(ctx context.Context, addr domain.Address) ([]*domain.JournalEntry, error) {
	return s.stores.Journal.GetByAccount(ctx, addr)
}

// read runs fn under the lock with the current time set.
func read[T any](s *Service, fn func() T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.at = s.clock()
	return fn()
}

// BalanceOf returns addr's balance.
func (s *Service) BalanceOf(addr domain.Address) *uint256.Int {
	return read(s, func() *uint256.Int { return s.token.BalanceOf(addr) })
}

// Allowance returns the amount spender may still move from owner.
func (s *Service) Allowance(owner, spender domain.Address) *uint256.Int {
	return read(s, func() *uint256.Int { return s.token.Allowance(owner, spender) })
}

// IsBlacklisted reports whether addr is barred from receiving transfers.
func (s *Service) IsBlacklisted(addr domain.Address) bool {
	return read(s, func() bool { return s.token.IsBlacklisted(addr) })
}

// IsWhitelisted reports whether addr is exempt from sender-side policy checks.
func (s *Service) IsWhitelisted(addr domain.Address) bool {
	return read(s, func() bool { return s.token.IsWhitelisted(addr) })
}

// Owner returns the ledger owner.
func (s *Service) Owner() domain.Address {
	return read(s, s.token.Owner)
}

// Operator returns the operator, or the zero address if none is set.
func (s *Service) Operator() domain.Address {
	return read(s, s.token.Operator)
}

// TransferLimit returns the per-transaction limit; zero means no limit.
func (s *Service) TransferLimit() *uint256.Int {
	return read(s, s.token.TransferLimit)
}

// Params returns the policy thresholds.
func (s *Service) Params() domain.PolicyParams {
	return read(s, s.token.Params)
}

// FixedSupply returns the amount minted at creation.
func (s *Service) FixedSupply() *uint256.Int {
	return domain.FixedSupply()
}

// TotalSupply returns the circulating supply.
func (s *Service) TotalSupply() *uint256.Int {
	return read(s, s.token.TotalSupply)
}

// TotalBurned returns the amount destroyed so far.
func (s *Service) TotalBurned() *uint256.Int {
	return read(s, s.token.TotalBurned)
}

// DailyTransferCount returns addr's outbound transfer count for the current day.
func (s *Service) DailyTransferCount(addr domain.Address) uint64 {
	return read(s, func() uint64 { return s.token.DailyTransferCount(addr) })
}

// Sequence returns the last journal sequence assigned.
func (s *Service) Sequence() uint64 {
	return read(s, func() uint64 { return s.seq })
}

// Snapshot exports the current state with its journal sequence.
func (s *Service) Snapshot() *domain.Snapshot {
	return read(s, func() *domain.Snapshot {
		snap := s.token.Snapshot()
		snap.Sequence = s.seq
		return snap
	})
}
