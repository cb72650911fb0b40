package postgres

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5/pgtype"

	"soulverse-ledger/internal/domain"
)

// numeric encodes a base-unit amount for a NUMERIC(78,0) column.
func numeric(a *uint256.Int) pgtype.Numeric {
	return pgtype.Numeric{Int: domain.CopyAmount(a).ToBig(), Exp: 0, Valid: true}
}

// parseAmount decodes a NUMERIC column selected as ::text.
func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

// addressText is the stored form of an address: lowercase 0x-hex, so that
// lexical order under the C collation matches byte order.
func addressText(a domain.Address) string {
	return strings.ToLower(a.Hex())
}
