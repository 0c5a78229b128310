package config

import (
	"time"

	"github.com/gaze-network/ido-ledger/internal/postgres"
)

type Config struct {
	Database string          `mapstructure:"database"` // Database to store the registry. `memory` (default) or `postgres`.
	Postgres postgres.Config `mapstructure:"postgres"`

	Address      string `mapstructure:"address"` // Account holding sale tokens and payments in transit.
	Admin        string `mapstructure:"admin"`
	NativeDenom  string `mapstructure:"native_denom"`  // Default `uscrt`.
	NftContract  string `mapstructure:"nft_contract"`  // Contract of tier NFTs. Empty disables the NFT override.
	UnlockAnchor string `mapstructure:"unlock_anchor"` // Default anchor of new sales, `sale_end` (default) or `purchase`.

	MaxPayments []string        `mapstructure:"max_payments"` // Worst tier first, strictly increasing.
	LockPeriods []time.Duration `mapstructure:"lock_periods"` // Worst tier first.

	Export ExportConfig `mapstructure:"export"`
}

type ExportConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Prefix   string `mapstructure:"prefix"`
	Endpoint string `mapstructure:"endpoint"` // Custom S3 endpoint, e.g. a local MinIO.
}
