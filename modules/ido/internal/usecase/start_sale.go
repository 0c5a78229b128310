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
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
)

type StartSaleParams struct {
	StartTime     time.Time
	EndTime       time.Time
	Price         uint128.Uint128 // payment units per sale token
	Payment       entity.PaymentMethod
	TokenContract string
	Total         uint128.Uint128
	// TokensPerTier splits Total between tiers, worst tier first. Empty for one shared pool.
	TokensPerTier []uint128.Uint128
	WhitelistMode entity.WhitelistMode // default private
	UnlockAnchor  entity.UnlockAnchor  // default from config
	// Whitelist is admitted to private sales and blocked from the others.
	Whitelist []string
}

type StartSaleResult struct {
	SaleID        uint64
	WhitelistSize uint64
}

// StartSale registers a sale owned by the sender and pulls its tokens from the owner through an allowance.
func (u *Usecase) StartSale(ctx context.Context, env types.Env, params StartSaleParams) (*StartSaleResult, error) {
	var result StartSaleResult
	err := u.execute(ctx, "start_sale", env, false, func(ctx context.Context, tx datagateway.IDODataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertActive(); err != nil {
			return nil, errors.WithStack(err)
		}
		sale := entity.Sale{
			Owner:         env.Sender,
			StartTime:     params.StartTime,
			EndTime:       params.EndTime,
			Price:         params.Price,
			Payment:       params.Payment,
			TokenContract: params.TokenContract,
			Total:         params.Total,
			WhitelistMode: utils.Default(params.WhitelistMode, entity.WhitelistPrivate),
			UnlockAnchor:  utils.Default(params.UnlockAnchor, config.UnlockAnchor),
		}
		if len(params.TokensPerTier) > 0 {
			sale.TokensPerTier = params.TokensPerTier
			sale.RemainingPerTier = append([]uint128.Uint128(nil), params.TokensPerTier...)
		}
		if err := u.validateSale(ctx, env, config, sale); err != nil {
			return nil, errors.WithStack(err)
		}
		whitelist := lo.Uniq(params.Whitelist)
		if err := u.addresses.ValidateAll(whitelist); err != nil {
			return nil, errors.Wrap(err, "invalid whitelist")
		}

		id, err := tx.CreateSale(ctx, sale)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create sale")
		}
		if len(whitelist) > 0 {
			if err := tx.SetWhitelistEntries(ctx, datagateway.SetWhitelistEntriesParams{
				SaleID:    &id,
				Addresses: whitelist,
				Allowed:   sale.WhitelistMode == entity.WhitelistPrivate,
			}); err != nil {
				return nil, errors.Wrap(err, "failed to set whitelist entries")
			}
		}
		size, err := tx.CountWhitelist(ctx, &id)
		if err != nil {
			return nil, errors.Wrap(err, "failed to count whitelist")
		}
		result = StartSaleResult{SaleID: id, WhitelistSize: size}

		logger.InfoContext(ctx, "sale started",
			slogx.Uint64("saleId", id),
			slogx.String("token", sale.TokenContract),
			slogx.Stringer("total", sale.Total),
			slogx.Stringer("price", sale.Price),
			slogx.String("payment", string(sale.Payment.Kind)),
			slogx.String("whitelistMode", string(sale.WhitelistMode)),
			slogx.Bool("perTier", sale.PerTier()),
		)
		return []contracts.Msg{contracts.TokenTransferFrom{
			Contract:  sale.TokenContract,
			Spender:   u.address,
			Owner:     env.Sender,
			Recipient: u.address,
			Amount:    sale.Total,
		}}, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &result, nil
}

func (u *Usecase) validateSale(ctx context.Context, env types.Env, config *entity.Config, sale entity.Sale) error {
	if !sale.StartTime.Before(sale.EndTime) {
		return errors.Wrap(errs.InvalidArgument, "start time must be before end time")
	}
	if !env.BlockTime.Before(sale.EndTime) {
		return errors.Wrap(errs.InvalidArgument, "end time must be in the future")
	}
	if sale.Price.IsZero() {
		return errors.Wrap(errs.InvalidArgument, "price must be positive")
	}
	if sale.Total.IsZero() {
		return errors.Wrap(errs.InvalidArgument, "total amount must be positive")
	}
	if !sale.WhitelistMode.IsValid() {
		return errors.Wrapf(errs.InvalidArgument, "unknown whitelist mode %q", sale.WhitelistMode)
	}
	if !sale.UnlockAnchor.IsValid() {
		return errors.Wrapf(errs.InvalidArgument, "unknown unlock anchor %q", sale.UnlockAnchor)
	}
	if sale.PerTier() {
		if len(sale.TokensPerTier) != config.Tiers() {
			return errors.Wrapf(errs.InvalidArgument, "got %d tier allocations for %d tiers", len(sale.TokensPerTier), config.Tiers())
		}
		sum := uint128.Zero
		for _, amount := range sale.TokensPerTier {
			var overflow bool
			sum, overflow = sum.AddOverflow(amount)
			if overflow {
				return errors.Wrap(errs.InvalidArgument, "tier allocations overflow")
			}
		}
		if sum.Cmp(sale.Total) > 0 {
			return errors.Wrapf(errs.InvalidArgument, "tier allocations sum %s exceeds total amount %s", sum, sale.Total)
		}
	}
	if err := sale.Payment.Validate(); err != nil {
		return errors.WithStack(err)
	}
	if sale.Payment.Kind == entity.PaymentToken {
		if err := u.resolveToken(ctx, sale.Payment.Contract); err != nil {
			return errors.Wrap(err, "invalid payment token")
		}
	}
	if err := u.resolveToken(ctx, sale.TokenContract); err != nil {
		return errors.Wrap(err, "invalid sale token")
	}
	return nil
}

func (u *Usecase) resolveToken(ctx context.Context, contract string) error {
	if contract == "" {
		return errors.Wrap(errs.InvalidArgument, "token contract is required")
	}
	if _, err := u.chain.Resolve(ctx, contract); err != nil {
		if errors.Is(err, errs.NotFound) {
			return errors.Wrapf(errs.InvalidArgument, "unknown token contract %q", contract)
		}
		return errors.Wrapf(err, "failed to resolve %q", contract)
	}
	return nil
}
