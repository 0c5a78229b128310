package usecase

import (
	"context"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/modules/tier/datagateway"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/gaze-network/ido-ledger/pkg/address"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
)

const (
	DefaultUnbondingPeriod = 21 * 24 * time.Hour
	DefaultDenom           = "uscrt"
	DefaultBase            = "SCRT"
	DefaultQuote           = "USD"

	DefaultClaimLimit = 50
)

// Chain is what the ledger needs from the chain it runs on.
type Chain interface {
	contracts.Staking
	contracts.Dispatcher
}

type Options struct {
	Address   string // account holding the collateral
	Base      string
	Quote     string
	Addresses address.Validator
}

type Usecase struct {
	dg        datagateway.TierDataGateway
	oracle    contracts.PriceOracle
	chain     Chain
	address   string
	base      string
	quote     string
	addresses address.Validator
}

func New(dg datagateway.TierDataGateway, oracle contracts.PriceOracle, chain Chain, opts Options) *Usecase {
	return &Usecase{
		dg:        dg,
		oracle:    oracle,
		chain:     chain,
		address:   opts.Address,
		base:      utils.Default(opts.Base, DefaultBase),
		quote:     utils.Default(opts.Quote, DefaultQuote),
		addresses: opts.Addresses,
	}
}

// Address is the account holding the collateral.
func (u *Usecase) Address() string {
	return u.address
}

type InitParams struct {
	Admin           string
	Validator       string
	Denom           string
	Variant         entity.Variant
	Saturation      entity.Saturation
	UnbondingPeriod time.Duration
	Tiers           []entity.Tier
}

// Init persists the initial configuration. It's a no-op when the ledger is already initialized.
func (u *Usecase) Init(ctx context.Context, params InitParams) (*entity.Config, error) {
	config := entity.Config{
		AdminConfig: types.AdminConfig{
			Admin:  params.Admin,
			Status: types.StatusActive,
		},
		Validator:       params.Validator,
		Denom:           utils.Default(params.Denom, DefaultDenom),
		Variant:         utils.Default(params.Variant, entity.VariantDelegation),
		Saturation:      utils.Default(params.Saturation, entity.SaturationSaturate),
		UnbondingPeriod: utils.Default(params.UnbondingPeriod, DefaultUnbondingPeriod),
		Tiers:           params.Tiers,
	}
	if err := u.validateConfig(config); err != nil {
		return nil, errors.WithStack(err)
	}

	tx, err := u.dg.BeginTierTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "failed to rollback transaction", slogx.Error(err))
		}
	}()

	current, err := tx.GetConfig(ctx)
	if err == nil {
		logger.InfoContext(ctx, "tier ledger already initialized", slogx.String("admin", current.Admin))
		return current, nil
	}
	if !errors.Is(err, errs.NotFound) {
		return nil, errors.Wrap(err, "failed to get config")
	}
	if err := tx.SaveConfig(ctx, config); err != nil {
		return nil, errors.Wrap(err, "failed to save config")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}

	logger.InfoContext(ctx, "tier ledger initialized",
		slogx.String("admin", config.Admin),
		slogx.String("variant", string(config.Variant)),
		slogx.String("saturation", string(config.Saturation)),
		slogx.Int("tiers", len(config.Tiers)),
	)
	return &config, nil
}

func (u *Usecase) validateConfig(config entity.Config) error {
	if u.address == "" {
		return errors.Wrap(errs.InvalidArgument, "ledger address is required")
	}
	if err := u.addresses.Validate(config.Admin); err != nil {
		return errors.Wrap(err, "invalid admin")
	}
	if !config.Variant.IsValid() {
		return errors.Wrapf(errs.InvalidArgument, "unknown variant %q", config.Variant)
	}
	if !config.Saturation.IsValid() {
		return errors.Wrapf(errs.InvalidArgument, "unknown saturation %q", config.Saturation)
	}
	if config.Variant == entity.VariantDelegation && config.Validator == "" {
		return errors.Wrap(errs.InvalidArgument, "validator is required by the delegation variant")
	}
	if err := config.Thresholds().Validate(); err != nil {
		return errors.WithStack(err)
	}
	for i, tier := range config.Tiers {
		if tier.LockPeriod < 0 || tier.LockMonths < 0 {
			return errors.Wrapf(errs.InvalidArgument, "lock period of tier %d must not be negative", i+1)
		}
	}
	return nil
}
