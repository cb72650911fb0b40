package domain

import "github.com/holiman/uint256"

// Account is the exported view of a single address's ledger and policy state.
type Account struct {
	Address     Address
	Balance     *uint256.Int // base units
	Blacklisted bool         // may not receive transfers
	Whitelisted bool         // exempt from limit, holding and daily-count checks
}

// Allowance is the amount Spender may move out of Owner's balance.
type Allowance struct {
	Owner   Address
	Spender Address
	Amount  *uint256.Int // base units
}

// DailyCount is an account's outbound transfer count within one UTC day.
type DailyCount struct {
	Address Address
	Count   uint64
	Day     int64 // days since Unix epoch, UTC
}

// PolicyParams are the policy thresholds fixed when a ledger is created.
// A zero value for any threshold disables that check.
type PolicyParams struct {
	MinWalletHolding     *uint256.Int // base units
	MaxWalletHolding     *uint256.Int // base units
	MaxDailyTransactions uint64
}

// DefaultPolicyParams returns the thresholds used by the deployed token.
func DefaultPolicyParams() PolicyParams {
	return PolicyParams{
		MinWalletHolding:     Tokens(100),
		MaxWalletHolding:     Tokens(1_000_000),
		MaxDailyTransactions: 100,
	}
}

// Copy returns a deep copy of p.
func (p PolicyParams) Copy() PolicyParams {
	return PolicyParams{
		MinWalletHolding:     CopyAmount(p.MinWalletHolding),
		MaxWalletHolding:     CopyAmount(p.MaxWalletHolding),
		MaxDailyTransactions: p.MaxDailyTransactions,
	}
}
