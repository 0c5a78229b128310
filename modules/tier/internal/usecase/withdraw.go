package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/modules/tier/datagateway"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
)

// Withdraw releases the stake of the sender once its lock period is over.
// The collateral becomes claimable after the unbonding period.
func (u *Usecase) Withdraw(ctx context.Context, env types.Env) (*entity.Withdrawal, error) {
	var withdrawal entity.Withdrawal
	err := u.execute(ctx, "withdraw", env, false, func(ctx context.Context, tx datagateway.TierDataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertActive(); err != nil {
			return nil, errors.WithStack(err)
		}
		stake, err := tx.GetStake(ctx, env.Sender)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get stake")
		}
		now := env.BlockTime
		if now.Before(stake.WithdrawableAt) {
			return nil, errors.Wrapf(errs.LockPeriodNotElapsed, "withdrawable at %s", stake.WithdrawableAt.UTC())
		}

		if err := tx.DeleteStake(ctx, env.Sender); err != nil {
			return nil, errors.Wrap(err, "failed to delete stake")
		}
		params := datagateway.CreateWithdrawalParams{
			Address:     env.Sender,
			Amount:      stake.NativeDeposit,
			RequestedAt: now,
			ClaimableAt: now.Add(config.UnbondingPeriod),
		}
		id, err := tx.CreateWithdrawal(ctx, params)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create withdrawal")
		}
		withdrawal = entity.Withdrawal{
			ID:          id,
			Address:     params.Address,
			Amount:      params.Amount,
			RequestedAt: params.RequestedAt,
			ClaimableAt: params.ClaimableAt,
		}

		var msgs []contracts.Msg
		switch config.Variant {
		case entity.VariantDelegation:
			if !stake.NativeDeposit.IsZero() {
				msgs = append(msgs, contracts.Undelegate{
					Delegator: u.address,
					Validator: config.Validator,
					Amount:    types.NewCoin(config.Denom, stake.NativeDeposit),
				})
			}
		case entity.VariantFlat:
			if config.Balance.Cmp(stake.NativeDeposit) < 0 {
				return nil, errors.Errorf("ledger balance %s is lower than the stake %s", config.Balance, stake.NativeDeposit)
			}
			config.Balance = config.Balance.Sub(stake.NativeDeposit)
			config.Unbonding = config.Unbonding.Add(stake.NativeDeposit)
			if err := tx.SaveConfig(ctx, *config); err != nil {
				return nil, errors.Wrap(err, "failed to save config")
			}
		}

		logger.DebugContext(ctx, "stake withdrawn",
			slogx.Stringer("amount", stake.NativeDeposit),
			slogx.Time("claimableAt", withdrawal.ClaimableAt),
		)
		return msgs, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &withdrawal, nil
}

type ClaimParams struct {
	Recipient string // defaults to the sender
	Offset    uint64
	Limit     uint64 // defaults to DefaultClaimLimit
}

// Claim pays out the withdrawals of the sender whose unbonding period is over, among one page of the queue.
func (u *Usecase) Claim(ctx context.Context, env types.Env, params ClaimParams) (uint128.Uint128, error) {
	var claimed uint128.Uint128
	err := u.execute(ctx, "claim", env, false, func(ctx context.Context, tx datagateway.TierDataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertActive(); err != nil {
			return nil, errors.WithStack(err)
		}
		recipient := lo.Ternary(params.Recipient == "", env.Sender, params.Recipient)
		if err := u.addresses.Validate(recipient); err != nil {
			return nil, errors.Wrap(err, "invalid recipient")
		}

		withdrawals, err := tx.GetWithdrawals(ctx, datagateway.GetWithdrawalsParams{
			Address: env.Sender,
			Offset:  params.Offset,
			Limit:   lo.Ternary(params.Limit == 0, uint64(DefaultClaimLimit), params.Limit),
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get withdrawals")
		}
		claimable := lo.Filter(withdrawals, func(w *entity.Withdrawal, _ int) bool {
			return w.IsClaimable(env.BlockTime)
		})
		if len(claimable) == 0 {
			return nil, errors.WithStack(errs.NothingToClaim)
		}

		sum := uint128.Zero
		for _, w := range claimable {
			var overflow bool
			sum, overflow = sum.AddOverflow(w.Amount)
			if overflow {
				return nil, errors.WithStack(errs.OverflowUint128)
			}
		}
		ids := lo.Map(claimable, func(w *entity.Withdrawal, _ int) uint64 { return w.ID })
		if err := tx.DeleteWithdrawals(ctx, env.Sender, ids); err != nil {
			return nil, errors.Wrap(err, "failed to delete withdrawals")
		}
		if config.Variant == entity.VariantFlat {
			if config.Unbonding.Cmp(sum) < 0 {
				return nil, errors.Errorf("unbonding pool %s is lower than the claim %s", config.Unbonding, sum)
			}
			config.Unbonding = config.Unbonding.Sub(sum)
			if err := tx.SaveConfig(ctx, *config); err != nil {
				return nil, errors.Wrap(err, "failed to save config")
			}
		}

		claimed = sum
		logger.DebugContext(ctx, "withdrawals claimed",
			slogx.String("recipient", recipient),
			slogx.Int("withdrawals", len(claimable)),
			slogx.Stringer("amount", sum),
		)
		if sum.IsZero() {
			return nil, nil
		}
		return []contracts.Msg{contracts.BankSend{
			From:  u.address,
			To:    recipient,
			Coins: types.Coins{types.NewCoin(config.Denom, sum)},
		}}, nil
	})
	if err != nil {
		return uint128.Zero, errors.WithStack(err)
	}
	return claimed, nil
}
