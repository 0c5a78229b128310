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
	"github.com/samber/lo"
)

type RecvTokensParams struct {
	SaleID uint64
	Offset uint64
	Limit  uint64 // defaults to DefaultRecvLimit
}

type RecvTokensResult struct {
	Tokens    uint128.Uint128
	Purchases int
}

// RecvTokens pays the sender the tokens of their unlocked purchases among one page of
// their purchases in the sale, and archives those purchases.
func (u *Usecase) RecvTokens(ctx context.Context, env types.Env, params RecvTokensParams) (*RecvTokensResult, error) {
	var result RecvTokensResult
	err := u.execute(ctx, "recv_tokens", env, false, func(ctx context.Context, tx datagateway.IDODataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertActive(); err != nil {
			return nil, errors.WithStack(err)
		}
		sale, err := tx.GetSale(ctx, params.SaleID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get sale")
		}
		purchases, err := tx.GetPurchases(ctx, datagateway.GetPurchasesParams{
			Address: env.Sender,
			SaleID:  sale.ID,
			Offset:  params.Offset,
			Limit:   lo.Ternary(params.Limit == 0, uint64(DefaultRecvLimit), params.Limit),
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get purchases")
		}
		now := env.BlockTime
		unlocked := lo.Filter(purchases, func(p *entity.Purchase, _ int) bool {
			return p.IsUnlocked(now)
		})
		if len(unlocked) == 0 {
			return nil, errors.Wrapf(errs.NothingToReceive, "no purchase of sale %d is unlocked", sale.ID)
		}

		sum := uint128.Zero
		archived := make([]entity.ArchivedPurchase, 0, len(unlocked))
		for _, p := range unlocked {
			var overflow bool
			if sum, overflow = sum.AddOverflow(p.Tokens); overflow {
				return nil, errors.WithStack(errs.OverflowUint128)
			}
			archived = append(archived, entity.ArchivedPurchase{Purchase: *p, ReceivedAt: now})
		}
		indices := lo.Map(unlocked, func(p *entity.Purchase, _ int) uint64 { return p.Index })
		if err := tx.DeletePurchases(ctx, env.Sender, sale.ID, indices); err != nil {
			return nil, errors.Wrap(err, "failed to delete purchases")
		}
		if err := tx.CreateArchivedPurchases(ctx, archived); err != nil {
			return nil, errors.Wrap(err, "failed to archive purchases")
		}

		pending, err := u.addReceived(ctx, tx, env.Sender, sale.ID, sum)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if pending.IsZero() {
			if err := tx.RemoveActiveSale(ctx, env.Sender, sale.ID); err != nil {
				return nil, errors.Wrap(err, "failed to remove active sale")
			}
		}

		result = RecvTokensResult{Tokens: sum, Purchases: len(unlocked)}
		logger.InfoContext(ctx, "tokens received",
			slogx.Uint64("saleId", sale.ID),
			slogx.Int("purchases", len(unlocked)),
			slogx.Stringer("tokens", sum),
			slogx.Stringer("pending", pending),
		)
		return []contracts.Msg{contracts.TokenTransfer{
			Contract:  sale.TokenContract,
			From:      u.address,
			Recipient: env.Sender,
			Amount:    sum,
		}}, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &result, nil
}

// addReceived credits received tokens to the user info of address and returns what is still pending in the sale.
func (u *Usecase) addReceived(ctx context.Context, tx datagateway.IDODataGatewayWithTx, address string, saleID uint64, tokens uint128.Uint128) (uint128.Uint128, error) {
	var pending uint128.Uint128
	for _, scope := range []*uint64{&saleID, nil} {
		info, err := tx.GetUserInfo(ctx, address, scope)
		if err != nil {
			return uint128.Zero, errors.Wrap(err, "failed to get user info")
		}
		info.TotalTokensReceived = info.TotalTokensReceived.Add(tokens)
		if info.TotalTokensReceived.Cmp(info.TotalTokensBought) > 0 {
			return uint128.Zero, errors.Errorf("%s received %s tokens, more than the %s bought", address, info.TotalTokensReceived, info.TotalTokensBought)
		}
		if err := tx.SaveUserInfo(ctx, *info); err != nil {
			return uint128.Zero, errors.Wrap(err, "failed to save user info")
		}
		if scope != nil {
			pending = info.Pending()
		}
	}
	return pending, nil
}
