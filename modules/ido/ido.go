package ido

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core"
	"github.com/gaze-network/ido-ledger/core/contracts/simulated"
	"github.com/gaze-network/ido-ledger/internal/config"
	"github.com/gaze-network/ido-ledger/internal/postgres"
	"github.com/gaze-network/ido-ledger/modules/ido/api/httphandler"
	idoconfig "github.com/gaze-network/ido-ledger/modules/ido/config"
	"github.com/gaze-network/ido-ledger/modules/ido/datagateway"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/usecase"
	"github.com/gaze-network/ido-ledger/modules/ido/repository/archivestore"
	idomemory "github.com/gaze-network/ido-ledger/modules/ido/repository/memory"
	idopostgres "github.com/gaze-network/ido-ledger/modules/ido/repository/postgres"
	"github.com/gaze-network/ido-ledger/pkg/address"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
)

const Version = "v0.1.0"

var _ core.Module = (*Module)(nil)

// Module serves the sale registry. It grades participants with the tier module.
type Module struct {
	*usecase.Usecase
	cleanupFuncs []func(context.Context) error
}

func New(injector do.Injector) (core.Module, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	ctx = logger.WithContext(ctx, slogx.String("module", common.ModuleIDO.String()))

	tierModule, err := do.InvokeNamed[core.Module](injector, common.ModuleTier.String())
	if err != nil {
		return nil, errors.Wrap(err, "sale registry requires the tier module")
	}
	tiers, ok := tierModule.(usecase.TierReader)
	if !ok {
		return nil, errors.Wrapf(errs.Unsupported, "%T does not grade participants", tierModule)
	}

	var idoDg datagateway.IDODataGateway
	var cleanupFuncs []func(context.Context) error
	switch strings.ToLower(conf.Modules.IDO.Database) {
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, conf.Modules.IDO.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "Invalid Postgres configuration for sale registry")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
			pg.Close()
			return nil
		})
		idoDg = idopostgres.NewRepository(pg)
	case "", "memory":
		idoDg = idomemory.NewRepository()
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for sale registry is not supported", conf.Modules.IDO.Database)
	}

	opts := usecase.Options{
		Address:      conf.Modules.IDO.Address,
		Addresses:    address.Validator{Prefix: conf.AddressPrefix},
		ExportPrefix: conf.Modules.IDO.Export.Prefix,
	}
	if conf.Modules.IDO.Export.Bucket != "" {
		store, err := archivestore.NewS3Store(ctx, conf.Modules.IDO.Export)
		if err != nil {
			return nil, errors.Wrap(err, "can't create archive store")
		}
		opts.Uploader = store
	}

	chain := do.MustInvoke[*simulated.Chain](injector)
	uc := usecase.New(idoDg, tiers, chain, opts)

	params, err := initParams(conf.Modules.IDO)
	if err != nil {
		return nil, errors.Wrap(err, "invalid sale registry configuration")
	}
	if _, err := uc.Init(ctx, params); err != nil {
		return nil, errors.Wrap(err, "can't initialize sale registry")
	}

	// Mount API
	httpServer := do.MustInvoke[*fiber.App](injector)
	if err := httphandler.New(uc).Mount(httpServer); err != nil {
		return nil, errors.Wrap(err, "can't mount API")
	}
	logger.InfoContext(ctx, "Mounted HTTP handler")

	return &Module{Usecase: uc, cleanupFuncs: cleanupFuncs}, nil
}

func (m *Module) Shutdown(ctx context.Context) error {
	var errList []error
	for _, cleanup := range m.cleanupFuncs {
		if err := cleanup(ctx); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.WithStack(errors.Join(errList...))
}

func initParams(conf idoconfig.Config) (usecase.InitParams, error) {
	maxPayments := make([]uint128.Uint128, 0, len(conf.MaxPayments))
	for i, raw := range conf.MaxPayments {
		amount, err := uint128.FromString(raw)
		if err != nil {
			return usecase.InitParams{}, errors.Wrapf(errs.InvalidArgument, "max payment %d: %q", i, raw)
		}
		maxPayments = append(maxPayments, amount)
	}
	return usecase.InitParams{
		Admin:        conf.Admin,
		NativeDenom:  conf.NativeDenom,
		NftContract:  conf.NftContract,
		UnlockAnchor: entity.UnlockAnchor(strings.ToLower(conf.UnlockAnchor)),
		MaxPayments:  maxPayments,
		LockPeriods:  conf.LockPeriods,
	}, nil
}
