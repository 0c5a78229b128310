package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/modules/tier/datagateway"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/samber/lo"
)

func (u *Usecase) Config(ctx context.Context) (*entity.Config, error) {
	config, err := u.dg.GetConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get config")
	}
	return config, nil
}

type UserInfo struct {
	Stake *entity.Stake // nil without stake
	Tier  uint8         // 0 without stake
}

func (u *Usecase) UserInfo(ctx context.Context, address string) (*UserInfo, error) {
	stake, err := u.dg.GetStake(ctx, address)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return &UserInfo{}, nil
		}
		return nil, errors.Wrap(err, "failed to get stake")
	}
	return &UserInfo{Stake: stake, Tier: stake.Tier}, nil
}

// TierOf returns the tier of address. Participants without stake get the minimum tier.
func (u *Usecase) TierOf(ctx context.Context, address string) (uint8, error) {
	config, err := u.Config(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	info, err := u.UserInfo(ctx, address)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if info.Tier == 0 {
		return config.MinTier(), nil
	}
	return info.Tier, nil
}

// MinTier is the tier of participants without stake.
func (u *Usecase) MinTier(ctx context.Context) (uint8, error) {
	config, err := u.Config(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return config.MinTier(), nil
}

// Withdrawals returns one page of the pending withdrawals of address and their total count.
func (u *Usecase) Withdrawals(ctx context.Context, address string, offset, limit uint64) ([]*entity.Withdrawal, uint64, error) {
	withdrawals, err := u.dg.GetWithdrawals(ctx, datagateway.GetWithdrawalsParams{
		Address: address,
		Offset:  offset,
		Limit:   lo.Ternary(limit == 0, uint64(DefaultClaimLimit), limit),
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get withdrawals")
	}
	total, err := u.dg.CountWithdrawals(ctx, address)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count withdrawals")
	}
	return withdrawals, total, nil
}
