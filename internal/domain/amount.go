package domain

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of fixed-point decimal places of one token.
const Decimals = 18

// FixedSupplyTokens is the whole-token supply minted to the owner at creation.
const FixedSupplyTokens = 21_000_000_000

var unit = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))

// Unit returns the number of base units in one token (10^18).
func Unit() *uint256.Int {
	return new(uint256.Int).Set(unit)
}

// Tokens converts a whole-token count to base units.
func Tokens(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), unit)
}

// FixedSupply returns FIXED_SUPPLY in base units.
// A fresh value is returned on every call; callers may mutate it.
func FixedSupply() *uint256.Int {
	return Tokens(FixedSupplyTokens)
}

// ParseTokens parses a decimal token amount ("1000", "0.5") into base units.
func ParseTokens(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse token amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("token amount %q is negative", s)
	}

	base := d.Shift(Decimals)
	if !base.Equal(base.Truncate(0)) {
		return nil, fmt.Errorf("token amount %q has more than %d decimals", s, Decimals)
	}

	v, overflow := uint256.FromBig(base.BigInt())
	if overflow {
		return nil, errors.New("token amount overflows uint256")
	}
	return v, nil
}

// FormatTokens renders a base-unit amount as a decimal token string.
func FormatTokens(a *uint256.Int) string {
	if a == nil {
		return "0"
	}
	return decimal.NewFromBigInt(a.ToBig(), -Decimals).String()
}

// TokensFloat converts a base-unit amount to a float64 token count for metrics.
func TokensFloat(a *uint256.Int) float64 {
	if a == nil {
		return 0
	}
	return decimal.NewFromBigInt(a.ToBig(), -Decimals).InexactFloat64()
}

// CopyAmount returns an independent copy of a, treating nil as zero.
func CopyAmount(a *uint256.Int) *uint256.Int {
	if a == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(a)
}
