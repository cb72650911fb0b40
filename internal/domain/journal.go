package domain

import "github.com/holiman/uint256"

// OperationKind names a state-changing ledger operation.
type OperationKind string

// Operation kinds recorded in the journal.
const (
	OpTransfer         OperationKind = "TRANSFER"
	OpTransferFrom     OperationKind = "TRANSFER_FROM"
	OpApprove          OperationKind = "APPROVE"
	OpBurn             OperationKind = "BURN"
	OpSetOperator      OperationKind = "SET_OPERATOR"
	OpSetTransferLimit OperationKind = "SET_TRANSFER_LIMIT"
	OpBlacklist        OperationKind = "BLACKLIST"
	OpUnblacklist      OperationKind = "UNBLACKLIST"
	OpWhitelist        OperationKind = "WHITELIST"
	OpUnwhitelist      OperationKind = "UNWHITELIST"
	OpResetDailyCounts OperationKind = "RESET_DAILY_COUNTS"
)

// JournalEntry records one successful state-changing operation.
// Field usage by kind:
//   - TRANSFER, BURN: From = holder, To = recipient (zero for BURN)
//   - TRANSFER_FROM: Caller = spender, From = owner, To = recipient
//   - APPROVE: From = owner, To = spender
//   - SET_OPERATOR, (UN)BLACKLIST, (UN)WHITELIST: To = target address
//   - SET_TRANSFER_LIMIT: Amount = new limit
type JournalEntry struct {
	EntryID     string // deterministic hash, see idhash
	Sequence    uint64 // strictly increasing per ledger
	Kind        OperationKind
	Caller      Address
	From        Address
	To          Address
	Amount      *uint256.Int // base units, zero when not applicable
	TimestampMs int64
}

// Clone returns a deep copy of e.
func (e *JournalEntry) Clone() *JournalEntry {
	c := *e
	c.Amount = CopyAmount(e.Amount)
	return &c
}
