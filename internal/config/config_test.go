package config

import (
	"strings"
	"testing"

	"soulverse-ledger/internal/domain"
)

const testOwner = "0x1000000000000000000000000000000000000001"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SOULVERSE_OWNER", testOwner)
	t.Setenv("SOULVERSE_USE_MEMORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Owner != domain.MustParseAddress(testOwner) {
		t.Fatalf("unexpected owner %s", cfg.Owner.Hex())
	}
	if cfg.LogLevel != "info" || cfg.MetricsNamespace != "soulverse" {
		t.Fatalf("unexpected defaults: level=%q namespace=%q", cfg.LogLevel, cfg.MetricsNamespace)
	}

	params, err := cfg.PolicyParams()
	if err != nil {
		t.Fatalf("policy params: %v", err)
	}
	want := domain.DefaultPolicyParams()
	if !params.MinWalletHolding.Eq(want.MinWalletHolding) || !params.MaxWalletHolding.Eq(want.MaxWalletHolding) {
		t.Fatalf("unexpected holding thresholds: %s..%s",
			domain.FormatTokens(params.MinWalletHolding), domain.FormatTokens(params.MaxWalletHolding))
	}
	if params.MaxDailyTransactions != want.MaxDailyTransactions {
		t.Fatalf("expected %d daily transactions, got %d", want.MaxDailyTransactions, params.MaxDailyTransactions)
	}
}

func TestLoadFractionalThreshold(t *testing.T) {
	t.Setenv("SOULVERSE_OWNER", testOwner)
	t.Setenv("SOULVERSE_USE_MEMORY", "true")
	t.Setenv("SOULVERSE_MIN_WALLET_HOLDING", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	params, _ := cfg.PolicyParams()
	half, _ := domain.ParseTokens("0.5")
	if !params.MinWalletHolding.Eq(half) {
		t.Fatalf("expected 0.5 tokens, got %s", domain.FormatTokens(params.MinWalletHolding))
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing owner",
			env:     map[string]string{"SOULVERSE_USE_MEMORY": "true"},
			wantErr: "parse env:",
		},
		{
			name:    "malformed owner",
			env:     map[string]string{"SOULVERSE_OWNER": "not-an-address", "SOULVERSE_USE_MEMORY": "true"},
			wantErr: "parse env:",
		},
		{
			name:    "zero owner",
			env:     map[string]string{"SOULVERSE_OWNER": "0x0000000000000000000000000000000000000000", "SOULVERSE_USE_MEMORY": "true"},
			wantErr: "zero address",
		},
		{
			name:    "minimum above maximum",
			env:     map[string]string{"SOULVERSE_OWNER": testOwner, "SOULVERSE_USE_MEMORY": "true", "SOULVERSE_MIN_WALLET_HOLDING": "10", "SOULVERSE_MAX_WALLET_HOLDING": "5"},
			wantErr: "exceeds maximum",
		},
		{
			name:    "bad amount",
			env:     map[string]string{"SOULVERSE_OWNER": testOwner, "SOULVERSE_USE_MEMORY": "true", "SOULVERSE_MAX_WALLET_HOLDING": "lots"},
			wantErr: "SOULVERSE_MAX_WALLET_HOLDING",
		},
		{
			name:    "postgres required",
			env:     map[string]string{"SOULVERSE_OWNER": testOwner},
			wantErr: "SOULVERSE_POSTGRES_DSN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q in error, got %v", tt.wantErr, err)
			}
		})
	}
}
