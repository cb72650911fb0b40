// Package config loads ledger host settings from the environment.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"

	"soulverse-ledger/internal/domain"
)

// Config holds host settings. Token amounts are whole-token decimal strings.
type Config struct {
	Owner domain.Address `env:"SOULVERSE_OWNER,required"`

	MinWalletHolding     string `env:"SOULVERSE_MIN_WALLET_HOLDING" envDefault:"100"`
	MaxWalletHolding     string `env:"SOULVERSE_MAX_WALLET_HOLDING" envDefault:"1000000"`
	MaxDailyTransactions uint64 `env:"SOULVERSE_MAX_DAILY_TRANSACTIONS" envDefault:"100"`

	PostgresDSN   string `env:"SOULVERSE_POSTGRES_DSN"`
	ClickhouseDSN string `env:"SOULVERSE_CLICKHOUSE_DSN"`
	UseMemory     bool   `env:"SOULVERSE_USE_MEMORY" envDefault:"false"`

	LogLevel         string `env:"SOULVERSE_LOG_LEVEL" envDefault:"info"`
	MetricsNamespace string `env:"SOULVERSE_METRICS_NAMESPACE" envDefault:"soulverse"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Owner == domain.ZeroAddress {
		return errors.New("SOULVERSE_OWNER must not be the zero address")
	}
	params, err := c.PolicyParams()
	if err != nil {
		return err
	}
	if !params.MinWalletHolding.IsZero() && !params.MaxWalletHolding.IsZero() &&
		params.MinWalletHolding.Gt(params.MaxWalletHolding) {
		return fmt.Errorf("minimum wallet holding %s exceeds maximum %s", c.MinWalletHolding, c.MaxWalletHolding)
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		return errors.New("SOULVERSE_POSTGRES_DSN is required unless SOULVERSE_USE_MEMORY is set")
	}
	return nil
}

// PolicyParams converts the configured thresholds to base units.
func (c *Config) PolicyParams() (domain.PolicyParams, error) {
	minimum, err := domain.ParseTokens(c.MinWalletHolding)
	if err != nil {
		return domain.PolicyParams{}, fmt.Errorf("SOULVERSE_MIN_WALLET_HOLDING: %w", err)
	}
	maximum, err := domain.ParseTokens(c.MaxWalletHolding)
	if err != nil {
		return domain.PolicyParams{}, fmt.Errorf("SOULVERSE_MAX_WALLET_HOLDING: %w", err)
	}
	return domain.PolicyParams{
		MinWalletHolding:     minimum,
		MaxWalletHolding:     maximum,
		MaxDailyTransactions: c.MaxDailyTransactions,
	}, nil
}
