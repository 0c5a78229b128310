package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/core"
	"github.com/gaze-network/ido-ledger/core/contracts/simulated"
	"github.com/gaze-network/ido-ledger/internal/config"
	"github.com/gaze-network/ido-ledger/modules/ido"
	"github.com/gaze-network/ido-ledger/modules/tier"
	"github.com/gaze-network/ido-ledger/pkg/address"
	"github.com/gaze-network/ido-ledger/pkg/automaxprocs"
	"github.com/gaze-network/ido-ledger/pkg/errorhandler"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/gaze-network/ido-ledger/pkg/middleware/requestcontext"
	"github.com/gaze-network/ido-ledger/pkg/middleware/requestlogger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// Register Modules
var Modules = do.Package(
	do.LazyNamed(common.ModuleTier.String(), tier.New),
	do.LazyNamed(common.ModuleIDO.String(), ido.New),
)

var defaultModules = []string{common.ModuleTier.String(), common.ModuleIDO.String()}

func NewRunCommand() *cobra.Command {
	// Create command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start ido-ledger service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := automaxprocs.Init(); err != nil {
				logger.Error("Failed to set GOMAXPROCS", slogx.Error(err))
			}
			return runHandler(cmd, args)
		},
	}

	// Add local flags
	flags := runCmd.Flags()
	flags.String("modules", "", "Enable specific modules to run. E.g. `tier,ido`")
	flags.Int("port", 8080, "Port of the HTTP server")

	// Bind flags to configuration
	config.BindPFlag("enable_modules", flags.Lookup("modules"))
	config.BindPFlag("http_server.port", flags.Lookup("port"))

	return runCmd
}

const (
	shutdownTimeout = 60 * time.Second
)

// newInjector provides the configuration, the simulated chain and the HTTP server to modules.
func newInjector(ctx context.Context, conf config.Config) do.Injector {
	injector := do.New(Modules)
	do.ProvideValue(injector, conf)
	do.ProvideValue(injector, ctx)

	// Initialize chain
	do.Provide(injector, func(i do.Injector) (*simulated.Chain, error) {
		conf := do.MustInvoke[config.Config](i)

		chain, err := simulated.NewFromConfig(conf.Chain)
		if err != nil {
			return nil, errors.Wrap(err, "invalid chain configuration")
		}
		logger.InfoContext(ctx, "Initialized simulated chain",
			slogx.String("bondDenom", chain.BondDenom()),
			slogx.Int("accounts", len(conf.Chain.Accounts)),
			slogx.Int("tokens", len(conf.Chain.Tokens)),
			slogx.Int("nfts", len(conf.Chain.Nfts)),
		)
		return chain, nil
	})

	// Initialize HTTP server
	do.Provide(injector, func(i do.Injector) (*fiber.App, error) {
		app := fiber.New(fiber.Config{
			AppName:      "IDO Ledger",
			ErrorHandler: errorhandler.NewHTTPErrorHandler(),
		})
		app.
			Use(favicon.New()).
			Use(cors.New()).
			Use(requestid.New()).
			Use(requestcontext.New(
				requestcontext.WithRequestId(),
				requestcontext.WithSender(address.Validator{Prefix: conf.AddressPrefix}.Validate),
			)).
			Use(requestlogger.New(conf.HTTPServer.Logger)).
			Use(fiberrecover.New(fiberrecover.Config{
				EnableStackTrace: true,
				StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
					buf := make([]byte, 1024) // bufLen = 1024
					buf = buf[:runtime.Stack(buf, false)]
					logger.ErrorContext(c.UserContext(), "Something went wrong, panic in http handler", nil, slogx.Any("panic", e), slog.String("stacktrace", string(buf)))
				},
			})).
			Use(compress.New(compress.Config{
				Level: compress.LevelDefault,
			}))

		// Health check
		app.Get("/", func(c *fiber.Ctx) error {
			return errors.WithStack(c.SendStatus(http.StatusOK))
		})

		return app, nil
	})
	return injector
}

// invokeModules creates the named modules, which mount their API on creation.
func invokeModules(injector do.Injector, names []string) (map[string]core.Module, error) {
	names = lo.Map(names, func(item string, _ int) string { return strings.TrimSpace(item) })
	names = lo.Uniq(lo.Filter(names, func(item string, _ int) bool { return item != "" }))
	if len(names) == 0 {
		names = defaultModules
	}
	modules := make(map[string]core.Module, len(names))
	for _, name := range names {
		module, err := do.InvokeNamed[core.Module](injector, name)
		if err != nil {
			if errors.Is(err, do.ErrServiceNotFound) {
				return nil, errors.Errorf("Module %q is not supported", name)
			}
			return nil, errors.Wrapf(err, "can't init module %q", name)
		}
		modules[name] = module
	}
	return modules, nil
}

func runHandler(cmd *cobra.Command, _ []string) error {
	conf := config.Load()

	// Initialize application process context
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector := newInjector(ctx, conf)

	// Run modules
	modules, err := invokeModules(injector, conf.EnableModules)
	if err != nil {
		return errors.WithStack(err)
	}

	// Run API server
	httpServer := do.MustInvoke[*fiber.App](injector)
	go func() {
		// stop main process if API stopped
		defer stop()

		logger.InfoContext(ctx, "Started HTTP server", slog.Int("port", conf.HTTPServer.Port))
		if err := httpServer.Listen(fmt.Sprintf(":%d", conf.HTTPServer.Port)); err != nil {
			logger.PanicContext(ctx, "Something went wrong, error during running HTTP server", slogx.Error(err))
		}
	}()

	logger.InfoContext(ctx, "IDO Ledger started", slogx.Strings("modules", lo.Keys(modules)))

	// Wait for interrupt signal to gracefully stop the server
	<-ctx.Done()

	// Force shutdown if timeout exceeded or got signal again
	go func() {
		defer os.Exit(1)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		select {
		case <-ctx.Done():
			logger.FatalContext(ctx, "Received exit signal again. Force shutdown...")
		case <-time.After(shutdownTimeout + 15*time.Second):
			logger.FatalContext(ctx, "Shutdown timeout exceeded. Force shutdown...")
		}
	}()

	if err := httpServer.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.ErrorContext(ctx, "Failed to shutdown HTTP server", err)
	}
	if err := injector.Shutdown(); err != nil {
		logger.PanicContext(ctx, "Failed while gracefully shutting down", slogx.Error(err))
	}

	return nil
}
