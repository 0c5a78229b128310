package tier

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/contracts/simulated"
	"github.com/gaze-network/ido-ledger/internal/config"
	"github.com/gaze-network/ido-ledger/internal/postgres"
	"github.com/gaze-network/ido-ledger/modules/tier/api/httphandler"
	tierconfig "github.com/gaze-network/ido-ledger/modules/tier/config"
	"github.com/gaze-network/ido-ledger/modules/tier/datagateway"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/usecase"
	tiermemory "github.com/gaze-network/ido-ledger/modules/tier/repository/memory"
	tierpostgres "github.com/gaze-network/ido-ledger/modules/tier/repository/postgres"
	"github.com/gaze-network/ido-ledger/pkg/address"
	"github.com/gaze-network/ido-ledger/pkg/bandclient"
	"github.com/gaze-network/ido-ledger/pkg/decimals"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	"github.com/shopspring/decimal"
)

const Version = "v0.1.0"

var _ core.Module = (*Module)(nil)

// Module serves the tier ledger. Other modules read tiers through its TierOf and MinTier methods.
type Module struct {
	*usecase.Usecase
	cleanupFuncs []func(context.Context) error
}

func New(injector do.Injector) (core.Module, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	ctx = logger.WithContext(ctx, slogx.String("module", common.ModuleTier.String()))

	var tierDg datagateway.TierDataGateway
	var cleanupFuncs []func(context.Context) error
	switch strings.ToLower(conf.Modules.Tier.Database) {
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, conf.Modules.Tier.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "Invalid Postgres configuration for tier ledger")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
			pg.Close()
			return nil
		})
		tierDg = tierpostgres.NewRepository(pg)
	case "", "memory":
		tierDg = tiermemory.NewRepository()
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for tier ledger is not supported", conf.Modules.Tier.Database)
	}

	oracle, err := newOracle(conf.Modules.Tier.Oracle)
	if err != nil {
		return nil, errors.Wrap(err, "can't create price oracle")
	}

	chain := do.MustInvoke[*simulated.Chain](injector)
	uc := usecase.New(tierDg, oracle, chain, usecase.Options{
		Address:   conf.Modules.Tier.Address,
		Base:      conf.Modules.Tier.Oracle.Base,
		Quote:     conf.Modules.Tier.Oracle.Quote,
		Addresses: address.Validator{Prefix: conf.AddressPrefix},
	})

	params, err := initParams(conf.Modules.Tier)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tier ledger configuration")
	}
	if _, err := uc.Init(ctx, params); err != nil {
		return nil, errors.Wrap(err, "can't initialize tier ledger")
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

func newOracle(conf tierconfig.OracleConfig) (contracts.PriceOracle, error) {
	switch strings.ToLower(conf.Source) {
	case "band":
		client, err := bandclient.New(conf.Band)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return client, nil
	case "", "static":
		if conf.StaticRate == "" {
			return contracts.StaticOracle{}, nil
		}
		rate, err := decimal.NewFromString(conf.StaticRate)
		if err != nil {
			return nil, errors.Wrapf(errs.InvalidArgument, "invalid static rate %q", conf.StaticRate)
		}
		value, err := decimals.RateFromDecimal(rate)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return contracts.StaticOracle{Value: value}, nil
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q oracle is not supported", conf.Source)
	}
}

func initParams(conf tierconfig.Config) (usecase.InitParams, error) {
	tiers := make([]entity.Tier, 0, len(conf.Tiers))
	for i, t := range conf.Tiers {
		deposit, err := uint128.FromString(t.Deposit)
		if err != nil {
			return usecase.InitParams{}, errors.Wrapf(errs.InvalidArgument, "deposit of tier %d: %q", i+1, t.Deposit)
		}
		tiers = append(tiers, entity.Tier{
			Deposit:    deposit,
			LockPeriod: t.LockPeriod,
			LockMonths: t.LockMonths,
		})
	}
	return usecase.InitParams{
		Admin:           conf.Admin,
		Validator:       conf.Validator,
		Denom:           conf.Denom,
		Variant:         entity.Variant(strings.ToLower(conf.Variant)),
		Saturation:      entity.Saturation(strings.ToLower(conf.Saturation)),
		UnbondingPeriod: conf.UnbondingPeriod,
		Tiers:           tiers,
	}, nil
}
