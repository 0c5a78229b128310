package usecase

import (
	"context"
	"time"

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

type BuyParams struct {
	SaleID uint64
	// Amount is the payment of token sales. Native sales are paid with the attached funds.
	Amount uint128.Uint128
	Proof  *NftProof
}

type BuyResult struct {
	Tier     uint8
	Index    uint64
	Payment  uint128.Uint128
	Tokens   uint128.Uint128
	UnlockAt time.Time
}

// Buy records a purchase of the sender, bounded by the cumulative cap of their tier.
// Tokens are held by the registry until the purchase unlocks.
func (u *Usecase) Buy(ctx context.Context, env types.Env, params BuyParams) (*BuyResult, error) {
	var result BuyResult
	err := u.execute(ctx, "buy", env, true, func(ctx context.Context, tx datagateway.IDODataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertActive(); err != nil {
			return nil, errors.WithStack(err)
		}
		sale, err := tx.GetSale(ctx, params.SaleID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get sale")
		}
		now := env.BlockTime
		if !sale.IsActive(now) {
			return nil, errors.Wrapf(errs.SaleNotActive, "sale %d runs from %s to %s", sale.ID, sale.StartTime.UTC(), sale.EndTime.UTC())
		}
		eligible, err := isEligible(ctx, tx, env.Sender, sale)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if !eligible {
			return nil, errors.Wrapf(errs.NotWhitelisted, "%s can't buy in sale %d", env.Sender, sale.ID)
		}
		tier, err := u.effectiveTier(ctx, config, env.Sender, params.Proof)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		payment, err := paymentOf(env, params, config, sale)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		alloc, err := allocationOf(config, sale, tier)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		info, err := tx.GetUserInfo(ctx, env.Sender, &sale.ID)
		firstPurchase := errors.Is(err, errs.NotFound)
		if err != nil && !firstPurchase {
			return nil, errors.Wrap(err, "failed to get user info")
		}
		if firstPurchase {
			info = &entity.UserInfo{Address: env.Sender, SaleID: &sale.ID}
		}
		total, overflow := info.TotalPayment.AddOverflow(payment)
		if overflow || total.Cmp(alloc.maxPayment) > 0 {
			return nil, errors.Wrapf(errs.ExceedsTierCap, "You cannot buy more tokens with current tier: cap %s, paid %s", alloc.maxPayment, info.TotalPayment)
		}
		if alloc.pool.IsZero() {
			return nil, errors.Wrap(errs.TierSoldOut, "All tokens are sold for your tier")
		}
		tokens := payment.Div(sale.Price)
		if tokens.IsZero() {
			return nil, errors.Wrapf(errs.ZeroTokens, "payment %s buys no token at price %s", payment, sale.Price)
		}
		if tokens.Cmp(alloc.pool) > 0 {
			return nil, errors.Wrapf(errs.TierSoldOut, "All tokens are sold for your tier: %s left, %s requested", alloc.pool, tokens)
		}

		period, err := config.LockPeriod(tier)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		purchase := entity.Purchase{
			Address:     env.Sender,
			SaleID:      sale.ID,
			Payment:     payment,
			Tokens:      tokens,
			PurchasedAt: now,
			UnlockAt:    sale.UnlockAt(now, period),
		}
		index, err := tx.CreatePurchase(ctx, purchase)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create purchase")
		}

		if sale.TotalPayment, overflow = sale.TotalPayment.AddOverflow(payment); overflow {
			return nil, errors.WithStack(errs.OverflowUint128)
		}
		sale.Sold = sale.Sold.Add(tokens)
		if sale.PerTier() {
			sale.RemainingPerTier[alloc.index] = sale.RemainingPerTier[alloc.index].Sub(tokens)
		}
		if firstPurchase {
			sale.Participants++
		}
		if err := tx.UpdateSale(ctx, *sale); err != nil {
			return nil, errors.Wrap(err, "failed to update sale")
		}
		if err := u.addBought(ctx, tx, env.Sender, sale.ID, payment, tokens); err != nil {
			return nil, errors.WithStack(err)
		}
		if err := tx.AddActiveSale(ctx, env.Sender, sale.ID); err != nil {
			return nil, errors.Wrap(err, "failed to add active sale")
		}

		result = BuyResult{
			Tier:     tier,
			Index:    index,
			Payment:  payment,
			Tokens:   tokens,
			UnlockAt: purchase.UnlockAt,
		}
		logger.InfoContext(ctx, "purchase accepted",
			slogx.Uint64("saleId", sale.ID),
			slogx.Int("tier", int(tier)),
			slogx.Stringer("payment", payment),
			slogx.Stringer("tokens", tokens),
			slogx.Time("unlockAt", purchase.UnlockAt),
		)
		return []contracts.Msg{debitOf(u.address, env.Sender, config, sale, payment)}, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &result, nil
}

func paymentOf(env types.Env, params BuyParams, config *entity.Config, sale *entity.Sale) (uint128.Uint128, error) {
	switch sale.Payment.Kind {
	case entity.PaymentNative:
		attached, err := env.Funds.AmountOf(config.NativeDenom)
		if err != nil {
			return uint128.Zero, errors.WithStack(err)
		}
		if !params.Amount.IsZero() && !params.Amount.Equals(attached) {
			return uint128.Zero, errors.Wrapf(errs.InvalidArgument, "amount %s doesn't match attached %s%s", params.Amount, attached, config.NativeDenom)
		}
		return attached, nil
	case entity.PaymentToken:
		if !env.Funds.IsZero() {
			return uint128.Zero, errors.Wrapf(errs.UnsupportedDenom, "sale %d is paid with %s", sale.ID, sale.Payment.Contract)
		}
		return params.Amount, nil
	default:
		return uint128.Zero, errors.Wrapf(errs.Unsupported, "payment kind %q", sale.Payment.Kind)
	}
}

// debitOf forwards a payment to the sale owner. Native payments were attached to the call.
func debitOf(registry, buyer string, config *entity.Config, sale *entity.Sale, payment uint128.Uint128) contracts.Msg {
	if sale.Payment.Kind == entity.PaymentToken {
		return contracts.TokenTransferFrom{
			Contract:  sale.Payment.Contract,
			Spender:   registry,
			Owner:     buyer,
			Recipient: sale.Owner,
			Amount:    payment,
		}
	}
	return contracts.BankSend{
		From:  registry,
		To:    sale.Owner,
		Coins: types.Coins{types.NewCoin(config.NativeDenom, payment)},
	}
}

type allocation struct {
	maxPayment uint128.Uint128 // cumulative payment allowed to one participant
	pool       uint128.Uint128 // tokens left for the tier
	index      int
}

// allocationOf bounds a purchase of tier. Sales with per-tier allocations cap each tier by its own pool.
func allocationOf(config *entity.Config, sale *entity.Sale, tier uint8) (allocation, error) {
	ladder, err := config.Ladder()
	if err != nil {
		return allocation{}, errors.WithStack(err)
	}
	idx, err := ladder.Index(tier)
	if err != nil {
		return allocation{}, errors.WithStack(err)
	}
	maxPayment, err := ladder.Cap(tier)
	if err != nil {
		return allocation{}, errors.WithStack(err)
	}
	if !sale.PerTier() {
		return allocation{maxPayment: maxPayment, pool: sale.Unsold(), index: idx}, nil
	}

	tierCap, overflow := sale.Price.MulOverflow(sale.TokensPerTier[idx])
	if !overflow && tierCap.Cmp(maxPayment) < 0 {
		maxPayment = tierCap
	}
	return allocation{
		maxPayment: maxPayment,
		pool:       lo.Ternary(sale.Unsold().Cmp(sale.RemainingPerTier[idx]) < 0, sale.Unsold(), sale.RemainingPerTier[idx]),
		index:      idx,
	}, nil
}

func (u *Usecase) addBought(ctx context.Context, tx datagateway.IDODataGatewayWithTx, address string, saleID uint64, payment, tokens uint128.Uint128) error {
	for _, scope := range []*uint64{&saleID, nil} {
		info, err := tx.GetUserInfo(ctx, address, scope)
		if err != nil {
			if !errors.Is(err, errs.NotFound) {
				return errors.Wrap(err, "failed to get user info")
			}
			info = &entity.UserInfo{Address: address, SaleID: scope}
		}
		var overflow bool
		if info.TotalPayment, overflow = info.TotalPayment.AddOverflow(payment); overflow {
			return errors.WithStack(errs.OverflowUint128)
		}
		if info.TotalTokensBought, overflow = info.TotalTokensBought.AddOverflow(tokens); overflow {
			return errors.WithStack(errs.OverflowUint128)
		}
		if err := tx.SaveUserInfo(ctx, *info); err != nil {
			return errors.Wrap(err, "failed to save user info")
		}
	}
	return nil
}
