package config

import (
	"time"

	"github.com/gaze-network/ido-ledger/internal/postgres"
	"github.com/gaze-network/ido-ledger/pkg/bandclient"
)

type Config struct {
	Database string          `mapstructure:"database"` // Database to store the ledger. `memory` (default) or `postgres`.
	Postgres postgres.Config `mapstructure:"postgres"`

	Address    string `mapstructure:"address"` // Account holding the collateral.
	Admin      string `mapstructure:"admin"`
	Validator  string `mapstructure:"validator"`
	Denom      string `mapstructure:"denom"`      // Collateral denomination. Default `uscrt`.
	Variant    string `mapstructure:"variant"`    // `delegation` (default) or `flat`.
	Saturation string `mapstructure:"saturation"` // `saturate` (default), `refund` or `reject`.

	UnbondingPeriod time.Duration `mapstructure:"unbonding_period"` // Default 21 days.
	Tiers           []TierConfig  `mapstructure:"tiers"`            // Tier 1 first.
	Oracle          OracleConfig  `mapstructure:"oracle"`
}

type TierConfig struct {
	Deposit    string        `mapstructure:"deposit"` // USD for the delegation variant, native amount for the flat variant.
	LockPeriod time.Duration `mapstructure:"lock_period"`
	LockMonths int           `mapstructure:"lock_months"`
}

type OracleConfig struct {
	Source     string            `mapstructure:"source"` // `band` or `static` (default).
	Band       bandclient.Config `mapstructure:"band"`
	StaticRate string            `mapstructure:"static_rate"` // e.g. "0.52" USD per base unit.
	Base       string            `mapstructure:"base"`        // Default `SCRT`.
	Quote      string            `mapstructure:"quote"`       // Default `USD`.
}
