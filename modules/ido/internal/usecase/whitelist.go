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
	"github.com/samber/lo"
)

// WhitelistAdd admits addresses to the whitelist of a sale, or to the shared whitelist when saleID is nil.
// It returns the size of the list.
func (u *Usecase) WhitelistAdd(ctx context.Context, env types.Env, saleID *uint64, addresses []string) (uint64, error) {
	return u.setWhitelist(ctx, "whitelist_add", env, saleID, addresses, true)
}

// WhitelistRemove removes addresses from a whitelist. A removal overrides the shared whitelist and open sales.
func (u *Usecase) WhitelistRemove(ctx context.Context, env types.Env, saleID *uint64, addresses []string) (uint64, error) {
	return u.setWhitelist(ctx, "whitelist_remove", env, saleID, addresses, false)
}

func (u *Usecase) setWhitelist(ctx context.Context, op string, env types.Env, saleID *uint64, addresses []string, allowed bool) (uint64, error) {
	var size uint64
	err := u.execute(ctx, op, env, false, func(ctx context.Context, tx datagateway.IDODataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if saleID == nil {
			if err := config.AssertAdmin(env.Sender); err != nil {
				return nil, errors.WithStack(err)
			}
		} else {
			sale, err := tx.GetSale(ctx, *saleID)
			if err != nil {
				return nil, errors.Wrap(err, "failed to get sale")
			}
			if sale.Owner != env.Sender && config.Admin != env.Sender {
				return nil, errors.Wrapf(errs.Unauthorized, "%q is neither the owner of sale %d nor the admin", env.Sender, sale.ID)
			}
		}
		if len(addresses) == 0 {
			return nil, errors.Wrap(errs.InvalidArgument, "addresses are required")
		}
		if err := u.addresses.ValidateAll(addresses); err != nil {
			return nil, errors.WithStack(err)
		}

		if err := tx.SetWhitelistEntries(ctx, datagateway.SetWhitelistEntriesParams{
			SaleID:    saleID,
			Addresses: lo.Uniq(addresses),
			Allowed:   allowed,
		}); err != nil {
			return nil, errors.Wrap(err, "failed to set whitelist entries")
		}
		var err error
		size, err = tx.CountWhitelist(ctx, saleID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to count whitelist")
		}

		logger.DebugContext(ctx, "whitelist updated",
			slogx.Any("saleId", saleID),
			slogx.Bool("allowed", allowed),
			slogx.Int("addresses", len(addresses)),
			slogx.Uint64("size", size),
		)
		return nil, nil
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return size, nil
}

// IsEligible reports whether address may buy in sale.
func (u *Usecase) IsEligible(ctx context.Context, address string, saleID uint64) (bool, error) {
	sale, err := u.dg.GetSale(ctx, saleID)
	if err != nil {
		return false, errors.Wrap(err, "failed to get sale")
	}
	eligible, err := isEligible(ctx, u.dg, address, sale)
	return eligible, errors.WithStack(err)
}

// isEligible applies the explicit entry of the sale list first, then the whitelist mode of the sale.
func isEligible(ctx context.Context, dg datagateway.IDOReaderDataGateway, address string, sale *entity.Sale) (bool, error) {
	entry, err := dg.GetWhitelistEntry(ctx, &sale.ID, address)
	if err == nil {
		return entry.Allowed, nil
	}
	if !errors.Is(err, errs.NotFound) {
		return false, errors.Wrap(err, "failed to get whitelist entry")
	}

	switch sale.WhitelistMode {
	case entity.WhitelistOpen:
		return true, nil
	case entity.WhitelistShared:
		entry, err := dg.GetWhitelistEntry(ctx, nil, address)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				return false, nil
			}
			return false, errors.Wrap(err, "failed to get shared whitelist entry")
		}
		return entry.Allowed, nil
	default:
		return false, nil
	}
}

// Whitelist returns one page of the addresses allowed by a list and the list size.
func (u *Usecase) Whitelist(ctx context.Context, saleID *uint64, offset, limit uint64) ([]string, uint64, error) {
	if saleID != nil {
		if _, err := u.dg.GetSale(ctx, *saleID); err != nil {
			return nil, 0, errors.Wrap(err, "failed to get sale")
		}
	}
	addresses, err := u.dg.GetWhitelist(ctx, datagateway.GetWhitelistParams{
		SaleID: saleID,
		Offset: offset,
		Limit:  lo.Ternary(limit == 0, uint64(DefaultPageLimit), limit),
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get whitelist")
	}
	total, err := u.dg.CountWhitelist(ctx, saleID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count whitelist")
	}
	return addresses, total, nil
}
