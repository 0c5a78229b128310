package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/modules/tier/datagateway"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
)

type handler func(ctx context.Context, tx datagateway.TierDataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error)

// execute runs fn as one atomic call. Attached funds are moved to the ledger account
// before the messages emitted by fn, and nothing is committed unless every message is dispatched.
func (u *Usecase) execute(ctx context.Context, op string, env types.Env, acceptFunds bool, fn handler) (err error) {
	ctx = logger.WithContext(ctx,
		slogx.String("module", common.ModuleTier.String()),
		slogx.String("op", op),
		slogx.String("sender", env.Sender),
	)
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "call rejected", slogx.Error(err))
		}
	}()

	if env.Sender == "" {
		return errors.Wrap(errs.InvalidArgument, "sender is required")
	}
	if !acceptFunds && !env.Funds.IsZero() {
		return errors.Wrapf(errs.InvalidArgument, "%s doesn't accept funds", op)
	}

	tx, err := u.dg.BeginTierTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "failed to rollback transaction", slogx.Error(err))
		}
	}()

	config, err := tx.GetConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get config")
	}

	msgs, err := fn(ctx, tx, config)
	if err != nil {
		return errors.WithStack(err)
	}
	if !env.Funds.IsZero() {
		msgs = append([]contracts.Msg{contracts.BankSend{From: env.Sender, To: u.address, Coins: env.Funds}}, msgs...)
	}
	if len(msgs) > 0 {
		if err := u.chain.Dispatch(ctx, msgs...); err != nil {
			return errors.Wrap(err, "failed to dispatch messages")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	logger.InfoContext(ctx, "call executed", slogx.Int("messages", len(msgs)))
	return nil
}
