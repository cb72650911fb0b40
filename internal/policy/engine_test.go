package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"soulverse-ledger/internal/access"
	"soulverse-ledger/internal/counter"
	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/ledgererr"
)

var (
	owner     = domain.MustParseAddress("0x1000000000000000000000000000000000000001")
	sender    = domain.MustParseAddress("0x3000000000000000000000000000000000000003")
	recipient = domain.MustParseAddress("0x4000000000000000000000000000000000000004")
	now       = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

// stubBalances is a map-backed Balances for policy tests.
type stubBalances map[domain.Address]*uint256.Int

func (s stubBalances) BalanceOf(addr domain.Address) *uint256.Int {
	return domain.CopyAmount(s[addr])
}

func newEngine(balances stubBalances, params domain.PolicyParams) *Engine {
	return New(access.New(owner), balances, counter.New(), params)
}

func TestCheck_Order(t *testing.T) {
	balances := stubBalances{sender: domain.Tokens(5000)}
	params := domain.PolicyParams{
		MinWalletHolding:     domain.Tokens(100),
		MaxWalletHolding:     domain.Tokens(1_000_000),
		MaxDailyTransactions: 1,
	}

	tests := []struct {
		name    string
		setup   func(e *Engine)
		amount  *uint256.Int
		wantErr error
	}{
		{
			name:   "eligible transfer",
			amount: domain.Tokens(1000),
		},
		{
			name: "blacklist precedes whitelist bypass",
			setup: func(e *Engine) {
				_ = e.BlacklistAccount(owner, recipient)
				_ = e.WhitelistAccount(owner, sender)
				_ = e.WhitelistAccount(owner, recipient)
			},
			amount:  domain.Tokens(1000),
			wantErr: ledgererr.ErrRecipientBlacklisted,
		},
		{
			name: "limit precedes holding checks",
			setup: func(e *Engine) {
				_ = e.SetTransferLimit(owner, domain.Tokens(10))
			},
			amount:  domain.Tokens(50),
			wantErr: ledgererr.ErrTransferLimitExceeded,
		},
		{
			name:    "amount below minimum",
			amount:  domain.Tokens(50),
			wantErr: ledgererr.ErrBelowMinimumWalletHolding,
		},
		{
			name:    "remainder below minimum",
			amount:  domain.Tokens(4950),
			wantErr: ledgererr.ErrBelowMinimumWalletHolding,
		},
		{
			name: "daily count exhausted",
			setup: func(e *Engine) {
				e.Record(sender, now)
			},
			amount:  domain.Tokens(1000),
			wantErr: ledgererr.ErrDailyTransactionLimitExceeded,
		},
		{
			name: "whitelisted sender skips limit, holding and count",
			setup: func(e *Engine) {
				_ = e.SetTransferLimit(owner, domain.Tokens(10))
				_ = e.WhitelistAccount(owner, sender)
				e.Record(sender, now)
			},
			amount: domain.Tokens(50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(balances, params)
			if tt.setup != nil {
				tt.setup(e)
			}

			err := e.Check(sender, recipient, tt.amount, now)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected eligible, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCheck_EmptyingAccountWaivesMinimum(t *testing.T) {
	balances := stubBalances{sender: domain.Tokens(50)}
	e := newEngine(balances, domain.DefaultPolicyParams())

	if err := e.Check(sender, recipient, domain.Tokens(50), now); err != nil {
		t.Fatalf("full-balance transfer should be eligible, got %v", err)
	}
	if err := e.Check(sender, recipient, domain.Tokens(49), now); !errors.Is(err, ledgererr.ErrBelowMinimumWalletHolding) {
		t.Fatalf("expected ErrBelowMinimumWalletHolding, got %v", err)
	}
}

func TestCheck_MaximumHolding(t *testing.T) {
	balances := stubBalances{
		sender:    domain.Tokens(5_000_000),
		recipient: domain.Tokens(999_000),
	}
	e := newEngine(balances, domain.DefaultPolicyParams())

	if err := e.Check(sender, recipient, domain.Tokens(1000), now); err != nil {
		t.Fatalf("reaching exactly the maximum should be eligible, got %v", err)
	}

	err := e.Check(sender, recipient, domain.Tokens(1001), now)
	if !errors.Is(err, ledgererr.ErrAboveMaximumWalletHolding) {
		t.Fatalf("expected ErrAboveMaximumWalletHolding, got %v", err)
	}

	if err := e.WhitelistAccount(owner, recipient); err != nil {
		t.Fatalf("WhitelistAccount failed: %v", err)
	}
	if err := e.Check(sender, recipient, domain.Tokens(1001), now); err != nil {
		t.Fatalf("whitelisted recipient should be exempt from maximum, got %v", err)
	}
}

func TestCheck_SelfTransferSkipsMaximum(t *testing.T) {
	balances := stubBalances{recipient: domain.Tokens(600_000)}
	e := newEngine(balances, domain.DefaultPolicyParams())

	if err := e.Check(recipient, recipient, domain.Tokens(500_000), now); err != nil {
		t.Fatalf("self-transfer leaves the balance unchanged, got %v", err)
	}
}

func TestCheck_ZeroParamsDisableChecks(t *testing.T) {
	balances := stubBalances{sender: domain.Tokens(10)}
	e := newEngine(balances, domain.PolicyParams{})

	for i := 0; i < 5; i++ {
		if err := e.Check(sender, recipient, uint256.NewInt(1), now); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		e.Record(sender, now)
	}
}

func TestCheck_LimitIsPerTransaction(t *testing.T) {
	balances := stubBalances{sender: domain.Tokens(50_000)}
	e := newEngine(balances, domain.DefaultPolicyParams())
	if err := e.SetTransferLimit(owner, domain.Tokens(10_000)); err != nil {
		t.Fatalf("SetTransferLimit failed: %v", err)
	}

	if err := e.Check(sender, recipient, domain.Tokens(10_000), now); err != nil {
		t.Fatalf("amount equal to the limit should be eligible, got %v", err)
	}
	if err := e.Check(sender, recipient, domain.Tokens(11_000), now); !errors.Is(err, ledgererr.ErrTransferLimitExceeded) {
		t.Fatalf("expected ErrTransferLimitExceeded, got %v", err)
	}

	if err := e.SetTransferLimit(owner, new(uint256.Int)); err != nil {
		t.Fatalf("SetTransferLimit failed: %v", err)
	}
	if err := e.Check(sender, recipient, domain.Tokens(11_000), now); err != nil {
		t.Fatalf("zero limit should disable the check, got %v", err)
	}
}

func TestMutators_OwnerOnly(t *testing.T) {
	e := newEngine(stubBalances{}, domain.DefaultPolicyParams())

	calls := map[string]func() error{
		"SetTransferLimit":        func() error { return e.SetTransferLimit(sender, domain.Tokens(1)) },
		"BlacklistAccount":        func() error { return e.BlacklistAccount(sender, recipient) },
		"UnBlacklistAccount":      func() error { return e.UnBlacklistAccount(sender, recipient) },
		"WhitelistAccount":        func() error { return e.WhitelistAccount(sender, recipient) },
		"UnWhitelistAccount":      func() error { return e.UnWhitelistAccount(sender, recipient) },
		"ResetDailyTransferCount": func() error { return e.ResetDailyTransferCount(sender) },
	}

	for name, call := range calls {
		if err := call(); !errors.Is(err, ledgererr.ErrUnauthorized) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}

	if e.IsBlacklisted(recipient) || e.IsWhitelisted(recipient) || !e.TransferLimit().IsZero() {
		t.Error("rejected mutators changed state")
	}
}

func TestFlagged(t *testing.T) {
	e := newEngine(stubBalances{}, domain.DefaultPolicyParams())
	_ = e.BlacklistAccount(owner, recipient)
	_ = e.WhitelistAccount(owner, recipient)
	_ = e.WhitelistAccount(owner, sender)

	flagged := e.Flagged()
	if len(flagged) != 2 {
		t.Fatalf("expected 2 flagged accounts, got %d", len(flagged))
	}
	if flagged[0].Address != sender || !flagged[0].Whitelisted || flagged[0].Blacklisted {
		t.Errorf("unexpected first entry %+v", flagged[0])
	}
	if flagged[1].Address != recipient || !flagged[1].Whitelisted || !flagged[1].Blacklisted {
		t.Errorf("unexpected second entry %+v", flagged[1])
	}

	restored := Restore(access.New(owner), stubBalances{}, counter.New(), domain.DefaultPolicyParams(), flagged, domain.Tokens(3))
	if !restored.IsBlacklisted(recipient) || !restored.IsWhitelisted(sender) {
		t.Error("flags not restored")
	}
	if !restored.TransferLimit().Eq(domain.Tokens(3)) {
		t.Error("transfer limit not restored")
	}
}
