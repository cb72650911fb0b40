// Package token implements the ledger's external operations.
//
// Token wires access control, the ledger, the daily counter and the policy
// engine together. Each operation either applies all of its changes or none.
// Token is not safe for concurrent use; the host serializes calls (see
// service.Service).
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"soulverse-ledger/internal/access"
	"soulverse-ledger/internal/counter"
	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/ledger"
	"soulverse-ledger/internal/ledgererr"
	"soulverse-ledger/internal/policy"
)

// Token is one ledger instance.
type Token struct {
	roles  *access.Control
	book   *ledger.Ledger
	counts *counter.Daily
	policy *policy.Engine
	clock  func() time.Time
}

// Option configures a Token.
type Option func(*Token)

// WithClock sets the time source used for daily counting windows.
func WithClock(clock func() time.Time) Option {
	return func(t *Token) {
		t.clock = clock
	}
}

// New creates a token with the whole fixed supply minted to owner.
func New(owner domain.Address, params domain.PolicyParams, opts ...Option) (*Token, error) {
	if owner == domain.ZeroAddress {
		return nil, errors.New("owner must not be the zero address")
	}
	if err := validateParams(params); err != nil {
		return nil, err
	}

	roles := access.New(owner)
	book := ledger.New(owner)
	counts := counter.New()

	t := &Token{
		roles:  roles,
		book:   book,
		counts: counts,
		policy: policy.New(roles, book, counts, params),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Restore recreates a token from a snapshot. The supply invariant is verified.
func Restore(s *domain.Snapshot, opts ...Option) (*Token, error) {
	if s == nil {
		return nil, errors.New("nil snapshot")
	}
	if s.Owner == domain.ZeroAddress {
		return nil, errors.New("snapshot owner must not be the zero address")
	}
	if err := validateParams(s.Params); err != nil {
		return nil, err
	}

	book, err := ledger.Restore(s.Accounts, s.Allowances, s.TotalBurned)
	if err != nil {
		return nil, fmt.Errorf("restore ledger: %w", err)
	}
	roles := access.Restore(s.Owner, s.Operator)
	counts := counter.Restore(s.DailyCounts)

	t := &Token{
		roles:  roles,
		book:   book,
		counts: counts,
		policy: policy.Restore(roles, book, counts, s.Params, s.Accounts, s.TransferLimit),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func validateParams(p domain.PolicyParams) error {
	minimum := domain.CopyAmount(p.MinWalletHolding)
	maximum := domain.CopyAmount(p.MaxWalletHolding)
	if !minimum.IsZero() && !maximum.IsZero() && minimum.Gt(maximum) {
		return fmt.Errorf("minimum wallet holding %s exceeds maximum %s",
			domain.FormatTokens(minimum), domain.FormatTokens(maximum))
	}
	return nil
}

// Transfer moves amount from caller to recipient, subject to policy.
// A nil amount is treated as zero, as in every amount-taking operation.
func (t *Token) Transfer(caller, recipient domain.Address, amount *uint256.Int) error {
	amount = domain.CopyAmount(amount)
	if err := requireRecipient(recipient); err != nil {
		return err
	}

	now := t.clock()
	if err := t.policy.Check(caller, recipient, amount, now); err != nil {
		return err
	}
	if err := t.book.Move(caller, recipient, amount); err != nil {
		return err
	}
	t.policy.Record(caller, now)
	return nil
}

// TransferFrom moves amount from owner to recipient using spender's allowance.
// Policy is evaluated with owner as the sender.
func (t *Token) TransferFrom(spender, owner, recipient domain.Address, amount *uint256.Int) error {
	amount = domain.CopyAmount(amount)
	if err := requireRecipient(recipient); err != nil {
		return err
	}
	if err := t.book.CheckAllowance(owner, spender, amount); err != nil {
		return err
	}

	now := t.clock()
	if err := t.policy.Check(owner, recipient, amount, now); err != nil {
		return err
	}
	if err := t.book.Move(owner, recipient, amount); err != nil {
		return err
	}
	if err := t.book.SpendAllowance(owner, spender, amount); err != nil {
		// Unreachable: the allowance was checked above and nothing in between touches it.
		panic(fmt.Sprintf("allowance changed during transferFrom: %v", err))
	}
	t.policy.Record(owner, now)
	return nil
}

// Approve sets spender's allowance over caller's balance to exactly amount.
func (t *Token) Approve(caller, spender domain.Address, amount *uint256.Int) error {
	if spender == domain.ZeroAddress {
		return ledgererr.Reject(ledgererr.ErrInvalidAddress, map[string]string{"spender": spender.Hex()})
	}
	t.book.Approve(caller, spender, domain.CopyAmount(amount))
	return nil
}

// Burn destroys amount of caller's own tokens. No role is required.
func (t *Token) Burn(caller domain.Address, amount *uint256.Int) error {
	return t.book.Burn(caller, domain.CopyAmount(amount))
}

// SetOperator assigns the operator role. Owner-only.
func (t *Token) SetOperator(caller, operator domain.Address) error {
	return t.roles.SetOperator(caller, operator)
}

// SetTransferLimit sets the global per-transaction limit; zero removes it. Owner-only.
func (t *Token) SetTransferLimit(caller domain.Address, limit *uint256.Int) error {
	return t.policy.SetTransferLimit(caller, domain.CopyAmount(limit))
}

// BlacklistAccount forbids addr from receiving transfers. Owner-only.
func (t *Token) BlacklistAccount(caller, addr domain.Address) error {
	return t.policy.BlacklistAccount(caller, addr)
}

// UnBlacklistAccount lifts addr's blacklist flag. Owner-only.
func (t *Token) UnBlacklistAccount(caller, addr domain.Address) error {
	return t.policy.UnBlacklistAccount(caller, addr)
}

// WhitelistAccount exempts addr from limit, holding and daily-count checks. Owner-only.
func (t *Token) WhitelistAccount(caller, addr domain.Address) error {
	return t.policy.WhitelistAccount(caller, addr)
}

// UnWhitelistAccount lifts addr's whitelist flag. Owner-only.
func (t *Token) UnWhitelistAccount(caller, addr domain.Address) error {
	return t.policy.UnWhitelistAccount(caller, addr)
}

// ResetDailyTransferCount zeroes every account's daily counter. Owner-only.
func (t *Token) ResetDailyTransferCount(caller domain.Address) error {
	return t.policy.ResetDailyTransferCount(caller)
}

func requireRecipient(recipient domain.Address) error {
	if recipient == domain.ZeroAddress {
		return ledgererr.Reject(ledgererr.ErrInvalidAddress, map[string]string{"recipient": recipient.Hex()})
	}
	return nil
}

// BalanceOf returns addr's balance. Unknown accounts hold zero.
func (t *Token) BalanceOf(addr domain.Address) *uint256.Int { return t.book.BalanceOf(addr) }

// Allowance returns the amount spender may still move from owner.
func (t *Token) Allowance(owner, spender domain.Address) *uint256.Int {
	return t.book.Allowance(owner, spender)
}

// IsBlacklisted reports whether addr is barred from receiving transfers.
func (t *Token) IsBlacklisted(addr domain.Address) bool { return t.policy.IsBlacklisted(addr) }

// IsWhitelisted reports whether addr is exempt from sender-side policy checks.
func (t *Token) IsWhitelisted(addr domain.Address) bool { return t.policy.IsWhitelisted(addr) }

// Owner returns the immutable owner.
func (t *Token) Owner() domain.Address { return t.roles.Owner() }

// Operator returns the operator, or the zero address if none is set.
func (t *Token) Operator() domain.Address { return t.roles.Operator() }

// TransferLimit returns the per-transaction limit; zero means no limit.
func (t *Token) TransferLimit() *uint256.Int { return t.policy.TransferLimit() }

// Params returns the wallet holding and daily count thresholds.
func (t *Token) Params() domain.PolicyParams { return t.policy.Params() }

// FixedSupply returns the amount minted at creation.
func (t *Token) FixedSupply() *uint256.Int { return domain.FixedSupply() }

// TotalSupply returns the circulating supply: fixed supply less burned.
func (t *Token) TotalSupply() *uint256.Int { return t.book.TotalSupply() }

// TotalBurned returns the amount destroyed so far.
func (t *Token) TotalBurned() *uint256.Int { return t.book.TotalBurned() }

// DailyTransferCount returns addr's outbound transfer count for the current day.
func (t *Token) DailyTransferCount(addr domain.Address) uint64 {
	return t.policy.DailyTransferCount(addr, t.clock())
}

// CheckInvariant verifies the supply invariant.
func (t *Token) CheckInvariant() error {
	return t.book.CheckInvariant()
}

// Snapshot exports the complete state. Sequence is left for the caller to set.
func (t *Token) Snapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Owner:         t.roles.Owner(),
		Operator:      t.roles.Operator(),
		TransferLimit: t.policy.TransferLimit(),
		TotalBurned:   t.book.TotalBurned(),
		Params:        t.policy.Params(),
		Accounts:      mergeAccounts(t.book.Balances(), t.policy.Flagged()),
		Allowances:    t.book.Allowances(),
		DailyCounts:   t.counts.Entries(),
		TakenAt:       t.clock().UnixMilli(),
	}
}
