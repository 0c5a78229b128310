package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/modules/ido/datagateway"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/gaze-network/uint128"
)

// Withdraw returns the unsold tokens of a finished sale to its owner.
// Payments reach the owner at purchase time, so only tokens are left to return.
func (u *Usecase) Withdraw(ctx context.Context, env types.Env, saleID uint64) (uint128.Uint128, error) {
	var unsold uint128.Uint128
	err := u.execute(ctx, "withdraw", env, false, func(ctx context.Context, tx datagateway.IDODataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertActive(); err != nil {
			return nil, errors.WithStack(err)
		}
		sale, err := tx.GetSale(ctx, saleID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get sale")
		}
		if sale.Owner != env.Sender {
			return nil, errors.Wrapf(errs.Unauthorized, "%q is not the owner of sale %d", env.Sender, sale.ID)
		}
		if !sale.IsFinished(env.BlockTime) {
			return nil, errors.Wrapf(errs.SaleNotFinished, "sale %d ends at %s", sale.ID, sale.EndTime.UTC())
		}
		if sale.Withdrawn {
			return nil, errors.Wrapf(errs.AlreadyWithdrawn, "sale %d", sale.ID)
		}

		sale.Withdrawn = true
		if err := tx.UpdateSale(ctx, *sale); err != nil {
			return nil, errors.Wrap(err, "failed to update sale")
		}
		unsold = sale.Unsold()

		logger.InfoContext(ctx, "sale withdrawn",
			slogx.Uint64("saleId", sale.ID),
			slogx.Stringer("sold", sale.Sold),
			slogx.Stringer("unsold", unsold),
		)
		if unsold.IsZero() {
			return nil, nil
		}
		return []contracts.Msg{contracts.TokenTransfer{
			Contract:  sale.TokenContract,
			From:      u.address,
			Recipient: sale.Owner,
			Amount:    unsold,
		}}, nil
	})
	if err != nil {
		return uint128.Zero, errors.WithStack(err)
	}
	return unsold, nil
}
