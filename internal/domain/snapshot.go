package domain

import "github.com/holiman/uint256"

// Snapshot is the complete persisted state of one ledger instance.
// Accounts, Allowances and DailyCounts are sorted by address for stable output.
type Snapshot struct {
	Owner         Address
	Operator      Address
	TransferLimit *uint256.Int // zero = no limit
	TotalBurned   *uint256.Int
	Params        PolicyParams

	Accounts    []Account
	Allowances  []Allowance
	DailyCounts []DailyCount

	// Sequence is the last journal sequence number applied to this state.
	Sequence uint64
	// TakenAt is the snapshot creation time (Unix ms).
	TakenAt int64
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.TransferLimit = CopyAmount(s.TransferLimit)
	c.TotalBurned = CopyAmount(s.TotalBurned)
	c.Params = s.Params.Copy()

	c.Accounts = make([]Account, len(s.Accounts))
	for i, a := range s.Accounts {
		a.Balance = CopyAmount(a.Balance)
		c.Accounts[i] = a
	}
	c.Allowances = make([]Allowance, len(s.Allowances))
	for i, a := range s.Allowances {
		a.Amount = CopyAmount(a.Amount)
		c.Allowances[i] = a
	}
	c.DailyCounts = make([]DailyCount, len(s.DailyCounts))
	copy(c.DailyCounts, s.DailyCounts)
	return &c
}
