package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies an account. Accounts exist implicitly once referenced.
type Address = common.Address

// ZeroAddress is never a valid transfer recipient.
var ZeroAddress = Address{}

// ParseAddress parses a 0x-prefixed hex account address.
func ParseAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return ZeroAddress, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// MustParseAddress is ParseAddress for constants and tests. Panics on invalid input.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}
