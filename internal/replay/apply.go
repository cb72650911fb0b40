package replay

import (
	"fmt"

	"github.com/holiman/uint256"

	"soulverse-ledger/internal/domain"
)

// Ledger is the set of state-changing operations a journal entry can record.
type Ledger interface {
	Transfer(caller, recipient domain.Address, amount *uint256.Int) error
	TransferFrom(spender, owner, recipient domain.Address, amount *uint256.Int) error
	Approve(caller, spender domain.Address, amount *uint256.Int) error
	Burn(caller domain.Address, amount *uint256.Int) error
	SetOperator(caller, operator domain.Address) error
	SetTransferLimit(caller domain.Address, limit *uint256.Int) error
	BlacklistAccount(caller, addr domain.Address) error
	UnBlacklistAccount(caller, addr domain.Address) error
	WhitelistAccount(caller, addr domain.Address) error
	UnWhitelistAccount(caller, addr domain.Address) error
	ResetDailyTransferCount(caller domain.Address) error
}

// Apply re-executes the operation recorded by e against l.
func Apply(l Ledger, e *domain.JournalEntry) error {
	amount := domain.CopyAmount(e.Amount)

	var err error
	switch e.Kind {
	case domain.OpTransfer:
		err = l.Transfer(e.From, e.To, amount)
	case domain.OpTransferFrom:
		err = l.TransferFrom(e.Caller, e.From, e.To, amount)
	case domain.OpApprove:
		err = l.Approve(e.From, e.To, amount)
	case domain.OpBurn:
		err = l.Burn(e.From, amount)
	case domain.OpSetOperator:
		err = l.SetOperator(e.Caller, e.To)
	case domain.OpSetTransferLimit:
		err = l.SetTransferLimit(e.Caller, amount)
	case domain.OpBlacklist:
		err = l.BlacklistAccount(e.Caller, e.To)
	case domain.OpUnblacklist:
		err = l.UnBlacklistAccount(e.Caller, e.To)
	case domain.OpWhitelist:
		err = l.WhitelistAccount(e.Caller, e.To)
	case domain.OpUnwhitelist:
		err = l.UnWhitelistAccount(e.Caller, e.To)
	case domain.OpResetDailyCounts:
		err = l.ResetDailyTransferCount(e.Caller)
	default:
		return fmt.Errorf("%w: %q at sequence %d", ErrUnknownOperation, e.Kind, e.Sequence)
	}
	if err != nil {
		return fmt.Errorf("apply %s at sequence %d: %w", e.Kind, e.Sequence, err)
	}
	return nil
}
