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

type RedelegateParams struct {
	Validator string
	Recipient string // receives the pending rewards, defaults to the sender
}

// Redelegate moves the whole delegation of the ledger to another validator.
func (u *Usecase) Redelegate(ctx context.Context, env types.Env, params RedelegateParams) error {
	return u.execute(ctx, "redelegate", env, false, func(ctx context.Context, tx datagateway.TierDataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertAdmin(env.Sender); err != nil {
			return nil, errors.WithStack(err)
		}
		if config.Variant == entity.VariantFlat {
			return nil, errors.Wrap(errs.Unsupported, "the flat variant doesn't delegate")
		}
		if params.Validator == "" {
			return nil, errors.Wrap(errs.InvalidArgument, "validator is required")
		}
		if params.Validator == config.Validator {
			return nil, errors.Wrapf(errs.InvalidArgument, "already delegating to %s", params.Validator)
		}
		recipient := lo.Ternary(params.Recipient == "", env.Sender, params.Recipient)
		if err := u.addresses.Validate(recipient); err != nil {
			return nil, errors.Wrap(err, "invalid recipient")
		}

		delegation, err := u.chain.Delegation(ctx, u.address, config.Validator)
		if err != nil {
			return nil, errors.Wrap(err, "failed to query delegation")
		}
		if delegation == nil {
			return nil, errors.Wrapf(errs.NotFound, "no delegation to %s", config.Validator)
		}
		if delegation.CanRedelegate.Amount.Cmp(delegation.Amount.Amount) != 0 {
			return nil, errors.Wrapf(errs.InvalidArgument, "only %s of %s can be redelegated", delegation.CanRedelegate, delegation.Amount)
		}

		var msgs []contracts.Msg
		if !delegation.AccumulatedRewards.Amount.IsZero() {
			msgs = append(msgs, contracts.WithdrawRewards{
				Delegator: u.address,
				Validator: config.Validator,
				Recipient: recipient,
			})
		}
		msgs = append(msgs, contracts.Redelegate{
			Delegator:    u.address,
			SrcValidator: config.Validator,
			DstValidator: params.Validator,
			Amount:       delegation.Amount,
		})

		logger.InfoContext(ctx, "redelegating",
			slogx.String("from", config.Validator),
			slogx.String("to", params.Validator),
			slogx.Stringer("amount", delegation.Amount),
		)
		config.Validator = params.Validator
		if err := tx.SaveConfig(ctx, *config); err != nil {
			return nil, errors.Wrap(err, "failed to save config")
		}
		return msgs, nil
	})
}

// WithdrawRewards pays the staking rewards accrued by the ledger's delegation to recipient.
func (u *Usecase) WithdrawRewards(ctx context.Context, env types.Env, recipient string) (uint128.Uint128, error) {
	var rewards uint128.Uint128
	err := u.execute(ctx, "withdraw_rewards", env, false, func(ctx context.Context, tx datagateway.TierDataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertAdmin(env.Sender); err != nil {
			return nil, errors.WithStack(err)
		}
		if config.Variant == entity.VariantFlat {
			return nil, errors.Wrap(errs.Unsupported, "the flat variant doesn't delegate")
		}
		recipient = lo.Ternary(recipient == "", env.Sender, recipient)
		if err := u.addresses.Validate(recipient); err != nil {
			return nil, errors.Wrap(err, "invalid recipient")
		}
		delegation, err := u.chain.Delegation(ctx, u.address, config.Validator)
		if err != nil {
			return nil, errors.Wrap(err, "failed to query delegation")
		}
		if delegation == nil || delegation.AccumulatedRewards.Amount.IsZero() {
			return nil, errors.Wrap(errs.NothingToClaim, "no rewards accrued")
		}
		rewards = delegation.AccumulatedRewards.Amount
		return []contracts.Msg{contracts.WithdrawRewards{
			Delegator: u.address,
			Validator: config.Validator,
			Recipient: recipient,
		}}, nil
	})
	if err != nil {
		return uint128.Zero, errors.WithStack(err)
	}
	return rewards, nil
}

func (u *Usecase) ChangeStatus(ctx context.Context, env types.Env, status types.Status) error {
	return u.execute(ctx, "change_status", env, false, func(ctx context.Context, tx datagateway.TierDataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertAdmin(env.Sender); err != nil {
			return nil, errors.WithStack(err)
		}
		if !status.IsValid() {
			return nil, errors.Wrapf(errs.InvalidArgument, "unknown status %q", status)
		}
		config.Status = status
		return nil, errors.Wrap(tx.SaveConfig(ctx, *config), "failed to save config")
	})
}

func (u *Usecase) ChangeAdmin(ctx context.Context, env types.Env, admin string) error {
	return u.execute(ctx, "change_admin", env, false, func(ctx context.Context, tx datagateway.TierDataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertAdmin(env.Sender); err != nil {
			return nil, errors.WithStack(err)
		}
		if err := u.addresses.Validate(admin); err != nil {
			return nil, errors.Wrap(err, "invalid admin")
		}
		config.Admin = admin
		return nil, errors.Wrap(tx.SaveConfig(ctx, *config), "failed to save config")
	})
}
