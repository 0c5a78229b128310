package cmd

import (
	"context"
	"log/slog"

	"github.com/gaze-network/ido-ledger/internal/config"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/spf13/cobra"
)

var cmd = &cobra.Command{
	Use:  "ido-ledger",
	Long: `Tier-gated token sale service: staking tiers, sale registry and vesting.`,
}

func init() {
	var configFile string

	// Add global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file, E.g.  `./config.yaml`")
	flags.String("address-prefix", "", "bech32 prefix of account addresses, E.g. `secret`")

	// Bind flags to configuration
	config.BindPFlag("address_prefix", flags.Lookup("address-prefix"))

	// Initialize configuration and logger on start command
	cobra.OnInitialize(func() {
		// Initialize configuration
		config := config.Parse(configFile)

		// Initialize logger
		if err := logger.Init(config.Logger); err != nil {
			logger.Panic("Failed to initialize logger: %v", slogx.Error(err), slog.Any("config", config.Logger))
		}
	})
}

func Execute(ctx context.Context) {
	// Register sub-commands
	cmd.AddCommand(
		NewVersionCommand(),
		NewRunCommand(),
		NewMigrateCommand(),
		NewExportArchiveCommand(),
	)

	// Execute command
	if err := cmd.ExecuteContext(ctx); err != nil {
		logger.Panic("Failed to execute root command", slogx.Error(err))
	}
}
