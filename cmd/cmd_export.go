package cmd

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/internal/config"
	"github.com/gaze-network/ido-ledger/modules/ido"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/spf13/cobra"
)

type exportArchiveCmdOptions struct {
	SaleIDs []uint64
}

func NewExportArchiveCommand() *cobra.Command {
	opts := &exportArchiveCmdOptions{}

	cmd := &cobra.Command{
		Use:     "export-archive",
		Short:   "Export received purchases of sales to parquet files on S3",
		Example: `ido-ledger export-archive --sale 1 --sale 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportArchiveHandler(opts, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.Uint64SliceVar(&opts.SaleIDs, "sale", nil, "Id of a sale to export. Repeat to export several sales.")

	return cmd
}

func exportArchiveHandler(opts *exportArchiveCmdOptions, cmd *cobra.Command, _ []string) error {
	if len(opts.SaleIDs) == 0 {
		return errors.New("--sale is required")
	}
	conf := config.Load()
	ctx := cmd.Context()

	injector := newInjector(ctx, conf)
	defer func() {
		if err := injector.Shutdown(); err != nil {
			logger.ErrorContext(ctx, "Failed to release modules", err)
		}
	}()

	modules, err := invokeModules(injector, []string{common.ModuleIDO.String()})
	if err != nil {
		return errors.WithStack(err)
	}
	registry, ok := modules[common.ModuleIDO.String()].(*ido.Module)
	if !ok {
		return errors.New("sale registry module is not available")
	}

	for _, id := range opts.SaleIDs {
		result, err := registry.ExportArchive(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "failed to export sale %d", id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sale %d: %d purchases exported to %s\n", id, result.Records, result.Location)
	}
	return nil
}
