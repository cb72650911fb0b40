// Package policy decides whether a transfer is eligible.
//
// Checks run in a fixed order and the first failure aborts:
//  1. recipient blacklisted
//  2. whitelisted sender skips 3-5
//  3. global per-transaction transfer limit
//  4. minimum holding (sender side), maximum holding (recipient side)
//  5. daily transaction count
//
// Check never mutates state. Record is called only after the ledger has
// applied the transfer.
package policy

import (
	"bytes"
	"sort"
	"strconv"
	"time"

	"github.com/holiman/uint256"

	"soulverse-ledger/internal/access"
	"soulverse-ledger/internal/counter"
	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/ledgererr"
)

// Balances is the read access the engine needs to the ledger.
type Balances interface {
	BalanceOf(addr domain.Address) *uint256.Int
}

// Engine holds policy state: flags, the transfer limit and the daily counters.
type Engine struct {
	roles    *access.Control
	balances Balances
	counts   *counter.Daily
	params   domain.PolicyParams

	transferLimit *uint256.Int
	blacklist     map[domain.Address]struct{}
	whitelist     map[domain.Address]struct{}
}

// New creates an engine with no flags set and no transfer limit.
func New(roles *access.Control, balances Balances, counts *counter.Daily, params domain.PolicyParams) *Engine {
	return &Engine{
		roles:         roles,
		balances:      balances,
		counts:        counts,
		params:        params.Copy(),
		transferLimit: new(uint256.Int),
		blacklist:     make(map[domain.Address]struct{}),
		whitelist:     make(map[domain.Address]struct{}),
	}
}

// Check evaluates whether sender may move amount to recipient at now.
func (e *Engine) Check(sender, recipient domain.Address, amount *uint256.Int, now time.Time) error {
	if e.IsBlacklisted(recipient) {
		return ledgererr.Reject(ledgererr.ErrRecipientBlacklisted, map[string]string{
			"recipient": recipient.Hex(),
		})
	}

	if e.IsWhitelisted(sender) {
		return nil
	}

	if !e.transferLimit.IsZero() && amount.Gt(e.transferLimit) {
		return ledgererr.Reject(ledgererr.ErrTransferLimitExceeded, map[string]string{
			"amount": amount.Dec(),
			"limit":  e.transferLimit.Dec(),
		})
	}

	if err := e.checkMinimumHolding(sender, amount); err != nil {
		return err
	}
	if err := e.checkMaximumHolding(sender, recipient, amount); err != nil {
		return err
	}

	maxDaily := e.params.MaxDailyTransactions
	if count := e.counts.Count(sender, now); maxDaily != 0 && count >= maxDaily {
		return ledgererr.Reject(ledgererr.ErrDailyTransactionLimitExceeded, map[string]string{
			"sender": sender.Hex(),
			"count":  strconv.FormatUint(count, 10),
			"max":    strconv.FormatUint(maxDaily, 10),
		})
	}

	return nil
}

// checkMinimumHolding rejects amounts below the minimum and transfers that
// leave a non-zero remainder below the minimum. Emptying the account is allowed.
func (e *Engine) checkMinimumHolding(sender domain.Address, amount *uint256.Int) error {
	minimum := e.params.MinWalletHolding
	if minimum.IsZero() {
		return nil
	}

	balance := e.balances.BalanceOf(sender)
	if amount.Eq(balance) {
		return nil
	}

	reject := func() error {
		return ledgererr.Reject(ledgererr.ErrBelowMinimumWalletHolding, map[string]string{
			"sender":  sender.Hex(),
			"amount":  amount.Dec(),
			"balance": balance.Dec(),
			"minimum": minimum.Dec(),
		})
	}

	if amount.Lt(minimum) {
		return reject()
	}
	// amount > balance is left for the ledger's balance check.
	if amount.Lt(balance) {
		remainder := new(uint256.Int).Sub(balance, amount)
		if remainder.Lt(minimum) {
			return reject()
		}
	}
	return nil
}

// checkMaximumHolding rejects transfers that raise a non-whitelisted
// recipient's balance above the maximum. A self-transfer leaves the balance
// unchanged and is never rejected here.
func (e *Engine) checkMaximumHolding(sender, recipient domain.Address, amount *uint256.Int) error {
	maximum := e.params.MaxWalletHolding
	if maximum.IsZero() || sender == recipient || e.IsWhitelisted(recipient) {
		return nil
	}

	balance := e.balances.BalanceOf(recipient)
	resulting, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow || resulting.Gt(maximum) {
		return ledgererr.Reject(ledgererr.ErrAboveMaximumWalletHolding, map[string]string{
			"recipient": recipient.Hex(),
			"amount":    amount.Dec(),
			"balance":   balance.Dec(),
			"maximum":   maximum.Dec(),
		})
	}
	return nil
}

// Record counts one successful outbound transfer for sender.
func (e *Engine) Record(sender domain.Address, now time.Time) uint64 {
	return e.counts.Increment(sender, now)
}

// SetTransferLimit sets the global per-transaction limit. Zero removes it. Owner-only.
func (e *Engine) SetTransferLimit(caller domain.Address, limit *uint256.Int) error {
	if err := e.roles.RequireOwner(caller); err != nil {
		return err
	}
	e.transferLimit = domain.CopyAmount(limit)
	return nil
}

// BlacklistAccount forbids addr from receiving transfers. Owner-only.
func (e *Engine) BlacklistAccount(caller, addr domain.Address) error {
	if err := e.roles.RequireOwner(caller); err != nil {
		return err
	}
	e.blacklist[addr] = struct{}{}
	return nil
}

// UnBlacklistAccount lifts a blacklist entry. Owner-only.
func (e *Engine) UnBlacklistAccount(caller, addr domain.Address) error {
	if err := e.roles.RequireOwner(caller); err != nil {
		return err
	}
	delete(e.blacklist, addr)
	return nil
}

// WhitelistAccount exempts addr from limit, holding and daily-count checks. Owner-only.
func (e *Engine) WhitelistAccount(caller, addr domain.Address) error {
	if err := e.roles.RequireOwner(caller); err != nil {
		return err
	}
	e.whitelist[addr] = struct{}{}
	return nil
}

// UnWhitelistAccount removes a whitelist entry. Owner-only.
func (e *Engine) UnWhitelistAccount(caller, addr domain.Address) error {
	if err := e.roles.RequireOwner(caller); err != nil {
		return err
	}
	delete(e.whitelist, addr)
	return nil
}

// ResetDailyTransferCount clears every account's daily counter. Owner-only.
func (e *Engine) ResetDailyTransferCount(caller domain.Address) error {
	if err := e.roles.RequireOwner(caller); err != nil {
		return err
	}
	e.counts.ResetAll()
	return nil
}

// IsBlacklisted reports whether addr may not receive transfers.
func (e *Engine) IsBlacklisted(addr domain.Address) bool {
	_, ok := e.blacklist[addr]
	return ok
}

// IsWhitelisted reports whether addr is exempt from limit, holding and count checks.
func (e *Engine) IsWhitelisted(addr domain.Address) bool {
	_, ok := e.whitelist[addr]
	return ok
}

// TransferLimit returns the current limit; zero means unset.
func (e *Engine) TransferLimit() *uint256.Int {
	return domain.CopyAmount(e.transferLimit)
}

// Params returns the fixed policy thresholds.
func (e *Engine) Params() domain.PolicyParams {
	return e.params.Copy()
}

// DailyTransferCount returns addr's transfer count for the day containing now.
func (e *Engine) DailyTransferCount(addr domain.Address, now time.Time) uint64 {
	return e.counts.Count(addr, now)
}

// Flagged returns every address with a blacklist or whitelist flag, sorted.
func (e *Engine) Flagged() []domain.Account {
	seen := make(map[domain.Address]*domain.Account)
	for addr := range e.blacklist {
		seen[addr] = &domain.Account{Address: addr, Blacklisted: true}
	}
	for addr := range e.whitelist {
		if a, ok := seen[addr]; ok {
			a.Whitelisted = true
			continue
		}
		seen[addr] = &domain.Account{Address: addr, Whitelisted: true}
	}

	out := make([]domain.Account, 0, len(seen))
	for _, a := range seen {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}

// Restore recreates an engine from persisted flags and transfer limit.
func Restore(roles *access.Control, balances Balances, counts *counter.Daily, params domain.PolicyParams,
	accounts []domain.Account, limit *uint256.Int) *Engine {
	e := New(roles, balances, counts, params)
	e.transferLimit = domain.CopyAmount(limit)
	for _, a := range accounts {
		if a.Blacklisted {
			e.blacklist[a.Address] = struct{}{}
		}
		if a.Whitelisted {
			e.whitelist[a.Address] = struct{}{}
		}
	}
	return e
}
