package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/modules/ido/datagateway"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/samber/lo"
)

func (u *Usecase) Config(ctx context.Context) (*entity.Config, error) {
	config, err := u.dg.GetConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get config")
	}
	return config, nil
}

func (u *Usecase) SaleInfo(ctx context.Context, id uint64) (*entity.Sale, error) {
	sale, err := u.dg.GetSale(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sale")
	}
	return sale, nil
}

// SaleAmount is the number of sales ever started.
func (u *Usecase) SaleAmount(ctx context.Context) (uint64, error) {
	count, err := u.dg.CountSales(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count sales")
	}
	return count, nil
}

func (u *Usecase) SalesOwnedBy(ctx context.Context, owner string, offset, limit uint64) ([]*entity.Sale, uint64, error) {
	sales, err := u.dg.GetSalesByOwner(ctx, datagateway.GetSalesByOwnerParams{
		Owner:  owner,
		Offset: offset,
		Limit:  lo.Ternary(limit == 0, uint64(DefaultPageLimit), limit),
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get sales")
	}
	total, err := u.dg.CountSalesByOwner(ctx, owner)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count sales")
	}
	return sales, total, nil
}

// UserInfo returns the purchase totals of address in one sale, or in every sale when saleID is nil.
func (u *Usecase) UserInfo(ctx context.Context, address string, saleID *uint64) (*entity.UserInfo, error) {
	if saleID != nil {
		if _, err := u.dg.GetSale(ctx, *saleID); err != nil {
			return nil, errors.Wrap(err, "failed to get sale")
		}
	}
	info, err := u.dg.GetUserInfo(ctx, address, saleID)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return &entity.UserInfo{Address: address, SaleID: saleID}, nil
		}
		return nil, errors.Wrap(err, "failed to get user info")
	}
	return info, nil
}

// Purchases returns one page of the live purchases of address in a sale and their count.
func (u *Usecase) Purchases(ctx context.Context, address string, saleID, offset, limit uint64) ([]*entity.Purchase, uint64, error) {
	purchases, err := u.dg.GetPurchases(ctx, datagateway.GetPurchasesParams{
		Address: address,
		SaleID:  saleID,
		Offset:  offset,
		Limit:   lo.Ternary(limit == 0, uint64(DefaultPageLimit), limit),
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get purchases")
	}
	total, err := u.dg.CountPurchases(ctx, address, saleID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count purchases")
	}
	return purchases, total, nil
}

// ArchivedPurchases returns one page of the received purchases of address in a sale, in the order they were received.
func (u *Usecase) ArchivedPurchases(ctx context.Context, address string, saleID, offset, limit uint64) ([]*entity.ArchivedPurchase, uint64, error) {
	archived, err := u.dg.GetArchivedPurchases(ctx, datagateway.GetPurchasesParams{
		Address: address,
		SaleID:  saleID,
		Offset:  offset,
		Limit:   lo.Ternary(limit == 0, uint64(DefaultPageLimit), limit),
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get archived purchases")
	}
	total, err := u.dg.CountArchivedPurchases(ctx, address, saleID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count archived purchases")
	}
	return archived, total, nil
}

// ActiveSales returns the sales in which address has tokens to receive.
func (u *Usecase) ActiveSales(ctx context.Context, address string) ([]uint64, error) {
	ids, err := u.dg.GetActiveSales(ctx, address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get active sales")
	}
	return ids, nil
}
