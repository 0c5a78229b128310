package usecase

import (
	"context"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/modules/ido/datagateway"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/gaze-network/ido-ledger/pkg/address"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/gaze-network/uint128"
)

const (
	DefaultDenom = "uscrt"

	DefaultRecvLimit = 300
	DefaultPageLimit = 50
)

// TierReader grades participants by their stake.
type TierReader interface {
	// TierOf returns the staking tier of address, the minimum tier without stake.
	TierOf(ctx context.Context, address string) (uint8, error)
	MinTier(ctx context.Context) (uint8, error)
}

// Chain is what the registry needs from the chain it runs on.
type Chain interface {
	contracts.FungibleToken
	contracts.NonFungibleToken
	contracts.Dispatcher
}

// Uploader stores exported archive files.
type Uploader interface {
	// Upload stores body under key and returns its location.
	Upload(ctx context.Context, key string, body []byte) (string, error)
}

type Options struct {
	Address      string // account holding sale tokens
	Addresses    address.Validator
	Uploader     Uploader // nil disables archive export
	ExportPrefix string
}

type Usecase struct {
	dg           datagateway.IDODataGateway
	tiers        TierReader
	chain        Chain
	address      string
	addresses    address.Validator
	uploader     Uploader
	exportPrefix string
}

func New(dg datagateway.IDODataGateway, tiers TierReader, chain Chain, opts Options) *Usecase {
	return &Usecase{
		dg:           dg,
		tiers:        tiers,
		chain:        chain,
		address:      opts.Address,
		addresses:    opts.Addresses,
		uploader:     opts.Uploader,
		exportPrefix: opts.ExportPrefix,
	}
}

// Address is the account holding sale tokens.
func (u *Usecase) Address() string {
	return u.address
}

type InitParams struct {
	Admin        string
	NativeDenom  string
	NftContract  string
	UnlockAnchor entity.UnlockAnchor
	MaxPayments  []uint128.Uint128 // worst tier first
	LockPeriods  []time.Duration   // worst tier first
}

// Init persists the initial configuration. It's a no-op when the registry is already initialized.
func (u *Usecase) Init(ctx context.Context, params InitParams) (*entity.Config, error) {
	config := entity.Config{
		AdminConfig: types.AdminConfig{
			Admin:  params.Admin,
			Status: types.StatusActive,
		},
		NativeDenom:  utils.Default(params.NativeDenom, DefaultDenom),
		NftContract:  params.NftContract,
		UnlockAnchor: utils.Default(params.UnlockAnchor, entity.UnlockAtSaleEnd),
		MaxPayments:  params.MaxPayments,
		LockPeriods:  params.LockPeriods,
	}
	if err := u.validateConfig(ctx, config); err != nil {
		return nil, errors.WithStack(err)
	}

	tx, err := u.dg.BeginIDOTx(ctx)
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
		logger.InfoContext(ctx, "sale registry already initialized", slogx.String("admin", current.Admin))
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

	logger.InfoContext(ctx, "sale registry initialized",
		slogx.String("admin", config.Admin),
		slogx.String("unlockAnchor", string(config.UnlockAnchor)),
		slogx.Int("tiers", config.Tiers()),
	)
	return &config, nil
}

func (u *Usecase) validateConfig(ctx context.Context, config entity.Config) error {
	if u.address == "" {
		return errors.Wrap(errs.InvalidArgument, "registry address is required")
	}
	if err := u.addresses.Validate(config.Admin); err != nil {
		return errors.Wrap(err, "invalid admin")
	}
	if !config.UnlockAnchor.IsValid() {
		return errors.Wrapf(errs.InvalidArgument, "unknown unlock anchor %q", config.UnlockAnchor)
	}
	if _, err := config.Ladder(); err != nil {
		return errors.Wrap(err, "invalid max payments")
	}
	if len(config.LockPeriods) != len(config.MaxPayments) {
		return errors.Wrapf(errs.InvalidArgument, "got %d lock periods for %d tiers", len(config.LockPeriods), len(config.MaxPayments))
	}
	for i, period := range config.LockPeriods {
		if period < 0 {
			return errors.Wrapf(errs.InvalidArgument, "lock period of tier %d must not be negative", len(config.LockPeriods)-i)
		}
	}
	minTier, err := u.tiers.MinTier(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get tier count")
	}
	if minTier != config.MinTier() {
		return errors.Wrapf(errs.InvalidArgument, "max payments cover %d tiers, the tier ledger grades %d", config.MinTier(), minTier)
	}
	return nil
}
