// Package ledger keeps balances, allowances and burn accounting for the
// fixed-supply token.
//
// Invariant: the sum of all balances plus TotalBurned equals FixedSupply.
// Ledger performs no policy checks; callers gate transfers before Move.
package ledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/ledgererr"
)

type allowanceKey struct {
	owner   domain.Address
	spender domain.Address
}

// Ledger is the authoritative record of balances and allowances.
type Ledger struct {
	balances    map[domain.Address]*uint256.Int
	allowances  map[allowanceKey]*uint256.Int
	totalBurned *uint256.Int
}

// New creates a ledger with the whole fixed supply minted to owner.
func New(owner domain.Address) *Ledger {
	l := &Ledger{
		balances:    make(map[domain.Address]*uint256.Int),
		allowances:  make(map[allowanceKey]*uint256.Int),
		totalBurned: new(uint256.Int),
	}
	l.balances[owner] = domain.FixedSupply()
	return l
}

// Restore recreates a ledger from persisted balances and allowances.
// Returns an error if the supply invariant does not hold.
func Restore(accounts []domain.Account, allowances []domain.Allowance, totalBurned *uint256.Int) (*Ledger, error) {
	l := &Ledger{
		balances:    make(map[domain.Address]*uint256.Int, len(accounts)),
		allowances:  make(map[allowanceKey]*uint256.Int, len(allowances)),
		totalBurned: domain.CopyAmount(totalBurned),
	}
	for _, a := range accounts {
		if _, dup := l.balances[a.Address]; dup {
			return nil, fmt.Errorf("duplicate account %s", a.Address.Hex())
		}
		l.balances[a.Address] = domain.CopyAmount(a.Balance)
	}
	for _, a := range allowances {
		l.allowances[allowanceKey{a.Owner, a.Spender}] = domain.CopyAmount(a.Amount)
	}
	if err := l.CheckInvariant(); err != nil {
		return nil, err
	}
	return l, nil
}

// BalanceOf returns a copy of addr's balance. Unknown accounts hold zero.
func (l *Ledger) BalanceOf(addr domain.Address) *uint256.Int {
	return domain.CopyAmount(l.balances[addr])
}

// Allowance returns the amount spender may still move from owner.
func (l *Ledger) Allowance(owner, spender domain.Address) *uint256.Int {
	return domain.CopyAmount(l.allowances[allowanceKey{owner, spender}])
}

// Approve sets the allowance absolutely. No balance check is made.
func (l *Ledger) Approve(owner, spender domain.Address, amount *uint256.Int) {
	key := allowanceKey{owner, spender}
	if amount.IsZero() {
		delete(l.allowances, key)
		return
	}
	l.allowances[key] = domain.CopyAmount(amount)
}

// CheckBalance returns ErrInsufficientBalance if addr holds less than amount.
func (l *Ledger) CheckBalance(addr domain.Address, amount *uint256.Int) error {
	bal := l.balances[addr]
	if bal == nil {
		bal = new(uint256.Int)
	}
	if bal.Lt(amount) {
		return ledgererr.Reject(ledgererr.ErrInsufficientBalance, map[string]string{
			"account": addr.Hex(),
			"balance": bal.Dec(),
			"amount":  amount.Dec(),
		})
	}
	return nil
}

// CheckAllowance returns ErrInsufficientAllowance if spender may not move amount from owner.
func (l *Ledger) CheckAllowance(owner, spender domain.Address, amount *uint256.Int) error {
	allowed := l.Allowance(owner, spender)
	if allowed.Lt(amount) {
		return ledgererr.Reject(ledgererr.ErrInsufficientAllowance, map[string]string{
			"owner":     owner.Hex(),
			"spender":   spender.Hex(),
			"allowance": allowed.Dec(),
			"amount":    amount.Dec(),
		})
	}
	return nil
}

// Move transfers amount from one account to another.
// Nothing changes when the balance check fails.
func (l *Ledger) Move(from, to domain.Address, amount *uint256.Int) error {
	if err := l.CheckBalance(from, amount); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	l.balances[from] = new(uint256.Int).Sub(l.BalanceOf(from), amount)
	l.balances[to] = new(uint256.Int).Add(l.BalanceOf(to), amount)
	return nil
}

// SpendAllowance decrements owner's allowance for spender.
func (l *Ledger) SpendAllowance(owner, spender domain.Address, amount *uint256.Int) error {
	if err := l.CheckAllowance(owner, spender, amount); err != nil {
		return err
	}
	remaining := new(uint256.Int).Sub(l.Allowance(owner, spender), amount)
	l.Approve(owner, spender, remaining)
	return nil
}

// Burn destroys amount of holder's tokens irreversibly.
func (l *Ledger) Burn(holder domain.Address, amount *uint256.Int) error {
	if err := l.CheckBalance(holder, amount); err != nil {
		return err
	}
	l.balances[holder] = new(uint256.Int).Sub(l.BalanceOf(holder), amount)
	l.totalBurned = new(uint256.Int).Add(l.totalBurned, amount)
	return nil
}

// TotalBurned returns the cumulative amount destroyed.
func (l *Ledger) TotalBurned() *uint256.Int {
	return domain.CopyAmount(l.totalBurned)
}

// TotalSupply returns the circulating supply, FixedSupply - TotalBurned.
func (l *Ledger) TotalSupply() *uint256.Int {
	return new(uint256.Int).Sub(domain.FixedSupply(), l.totalBurned)
}

// CheckInvariant verifies that balances plus burned tokens equal the fixed supply.
func (l *Ledger) CheckInvariant() error {
	sum := domain.CopyAmount(l.totalBurned)
	for addr, bal := range l.balances {
		if _, overflow := sum.AddOverflow(sum, bal); overflow {
			return fmt.Errorf("balance sum overflows at %s", addr.Hex())
		}
	}
	if !sum.Eq(domain.FixedSupply()) {
		return fmt.Errorf("supply invariant violated: balances+burned=%s, fixed supply=%s",
			sum.Dec(), domain.FixedSupply().Dec())
	}
	return nil
}

// Balances returns every known account balance, sorted by address.
func (l *Ledger) Balances() []domain.Account {
	out := make([]domain.Account, 0, len(l.balances))
	for addr, bal := range l.balances {
		out = append(out, domain.Account{Address: addr, Balance: domain.CopyAmount(bal)})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}

// Allowances returns every non-zero allowance, sorted by (owner, spender).
func (l *Ledger) Allowances() []domain.Allowance {
	out := make([]domain.Allowance, 0, len(l.allowances))
	for key, amt := range l.allowances {
		out = append(out, domain.Allowance{Owner: key.owner, Spender: key.spender, Amount: domain.CopyAmount(amt)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Owner[:], out[j].Owner[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].Spender[:], out[j].Spender[:]) < 0
	})
	return out
}
