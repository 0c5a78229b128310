package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/modules/tier/datagateway"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/gaze-network/ido-ledger/pkg/decimals"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/gaze-network/uint128"
)

type DepositResult struct {
	Deposit       uint128.Uint128
	NativeDeposit uint128.Uint128
	Tier          uint8
	Refund        uint128.Uint128
}

// Deposit locks the attached collateral and raises the tier of the sender.
func (u *Usecase) Deposit(ctx context.Context, env types.Env) (*DepositResult, error) {
	var result DepositResult
	err := u.execute(ctx, "deposit", env, true, func(ctx context.Context, tx datagateway.TierDataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		amount, err := env.Funds.AmountOf(config.Denom)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if err := config.AssertActive(); err != nil {
			return nil, errors.WithStack(err)
		}

		stake, err := tx.GetStake(ctx, env.Sender)
		if err != nil && !errors.Is(err, errs.NotFound) {
			return nil, errors.Wrap(err, "failed to get stake")
		}
		if stake == nil {
			stake = &entity.Stake{Address: env.Sender}
		}
		if stake.Tier == 1 {
			return nil, errors.WithStack(errs.ReachedMaxTier)
		}

		valuer, err := u.valuer(ctx, config)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		value, err := valuer.toValue(amount)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		cumulative, overflow := stake.Deposit.AddOverflow(value)
		if overflow {
			return nil, errors.WithStack(errs.OverflowUint128)
		}

		thresholds := config.Thresholds()
		tier := thresholds.TierFor(cumulative)
		if tier == 0 {
			lowest := thresholds[len(thresholds)-1]
			return nil, errors.WithStack(valuer.belowMinimum(lowest.Sub(cumulative), config.Denom, "to reach the lowest tier"))
		}
		if amount.IsZero() {
			return nil, errors.Wrap(errs.BelowMinimum, "nothing deposited")
		}

		credited := cumulative
		refund := uint128.Zero
		switch config.Saturation {
		case entity.SaturationSaturate:
			if credited.Cmp(thresholds.Top()) > 0 {
				credited = thresholds.Top()
			}
		case entity.SaturationReject:
			if credited.Cmp(thresholds.Top()) > 0 {
				return nil, errors.Wrapf(errs.ReachedMaxTier, "deposit exceeds the tier 1 threshold by %s", credited.Sub(thresholds.Top()))
			}
		case entity.SaturationRefund:
			if stake.Tier != 0 && tier >= stake.Tier {
				next, err := thresholds.Of(stake.Tier - 1)
				if err != nil {
					return nil, errors.WithStack(err)
				}
				return nil, errors.WithStack(valuer.belowMinimum(next.Sub(cumulative), config.Denom, "for the next tier"))
			}
			threshold, err := thresholds.Of(tier)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			credited = threshold
			refund, err = valuer.toNative(cumulative.Sub(threshold))
			if err != nil {
				return nil, errors.WithStack(err)
			}
			if refund.Cmp(amount) > 0 {
				refund = amount
			}
		default:
			return nil, errors.Wrapf(errs.Unsupported, "saturation %q", config.Saturation)
		}
		locked := amount.Sub(refund)

		nativeDeposit, overflow := stake.NativeDeposit.AddOverflow(locked)
		if overflow {
			return nil, errors.WithStack(errs.OverflowUint128)
		}
		now := env.BlockTime
		updated := entity.Stake{
			Address:        env.Sender,
			Deposit:        credited,
			NativeDeposit:  nativeDeposit,
			DepositedAt:    now,
			Tier:           tier,
			WithdrawableAt: config.Tiers[tier-1].UnlockAt(now),
		}
		if err := tx.SaveStake(ctx, updated); err != nil {
			return nil, errors.Wrap(err, "failed to save stake")
		}

		var msgs []contracts.Msg
		if !refund.IsZero() {
			msgs = append(msgs, contracts.BankSend{
				From:  u.address,
				To:    env.Sender,
				Coins: types.Coins{types.NewCoin(config.Denom, refund)},
			})
		}
		switch config.Variant {
		case entity.VariantDelegation:
			if !locked.IsZero() {
				msgs = append(msgs, contracts.Delegate{
					Delegator: u.address,
					Validator: config.Validator,
					Amount:    types.NewCoin(config.Denom, locked),
				})
			}
		case entity.VariantFlat:
			balance, overflow := config.Balance.AddOverflow(locked)
			if overflow {
				return nil, errors.WithStack(errs.OverflowUint128)
			}
			config.Balance = balance
			if err := tx.SaveConfig(ctx, *config); err != nil {
				return nil, errors.Wrap(err, "failed to save config")
			}
		}

		logger.DebugContext(ctx, "deposit accepted",
			slogx.Stringer("amount", amount),
			slogx.Stringer("credited", credited),
			slogx.Stringer("refund", refund),
			slogx.Int("tier", int(tier)),
		)
		result = DepositResult{
			Deposit:       credited,
			NativeDeposit: nativeDeposit,
			Tier:          tier,
			Refund:        refund,
		}
		return msgs, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &result, nil
}

// valuer converts between native collateral and the credited value of a variant.
type valuer struct {
	rate uint128.Uint128 // zero for the flat variant
}

func (u *Usecase) valuer(ctx context.Context, config *entity.Config) (valuer, error) {
	if config.Variant == entity.VariantFlat {
		return valuer{}, nil
	}
	rate, err := u.oracle.Rate(ctx, u.base, u.quote)
	if err != nil {
		return valuer{}, errors.Wrapf(err, "failed to query %s/%s rate", u.base, u.quote)
	}
	if rate.IsZero() {
		return valuer{}, errors.Wrapf(errs.InvalidArgument, "oracle quoted a zero %s/%s rate", u.base, u.quote)
	}
	return valuer{rate: rate}, nil
}

func (v valuer) toValue(native uint128.Uint128) (uint128.Uint128, error) {
	if v.rate.IsZero() {
		return native, nil
	}
	usd, err := decimals.NativeToUSD(native, v.rate)
	return usd, errors.WithStack(err)
}

// toNative rounds down, it's used for amounts paid back.
func (v valuer) toNative(value uint128.Uint128) (uint128.Uint128, error) {
	if v.rate.IsZero() {
		return value, nil
	}
	native, err := decimals.MulDiv(value, decimals.OneUSD, v.rate, false)
	return native, errors.WithStack(err)
}

// belowMinimum reports the missing value and the native amount that covers it.
func (v valuer) belowMinimum(missing uint128.Uint128, denom string, goal string) error {
	if v.rate.IsZero() {
		return errors.Wrapf(errs.BelowMinimum, "deposit at least %s%s %s", missing, denom, goal)
	}
	native, err := decimals.USDToNative(missing, v.rate)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrapf(errs.BelowMinimum, "missing %s USD, deposit at least %s%s %s", missing, native, denom, goal)
}
