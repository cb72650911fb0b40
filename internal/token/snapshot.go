package token

import (
	"bytes"

	"soulverse-ledger/internal/domain"
)

// mergeAccounts joins address-sorted balances and flags into one sorted list.
// Flagged accounts that never held a balance appear with a zero balance.
func mergeAccounts(balances, flagged []domain.Account) []domain.Account {
	out := make([]domain.Account, 0, len(balances)+len(flagged))
	i, j := 0, 0
	for i < len(balances) || j < len(flagged) {
		switch {
		case j == len(flagged):
			out = append(out, balances[i])
			i++
		case i == len(balances):
			f := flagged[j]
			f.Balance = domain.CopyAmount(nil)
			out = append(out, f)
			j++
		default:
			c := bytes.Compare(balances[i].Address[:], flagged[j].Address[:])
			switch {
			case c < 0:
				out = append(out, balances[i])
				i++
			case c > 0:
				f := flagged[j]
				f.Balance = domain.CopyAmount(nil)
				out = append(out, f)
				j++
			default:
				a := balances[i]
				a.Blacklisted = flagged[j].Blacklisted
				a.Whitelisted = flagged[j].Whitelisted
				out = append(out, a)
				i++
				j++
			}
		}
	}
	return out
}
