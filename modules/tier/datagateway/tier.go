package datagateway

import (
	"context"
	"time"

	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/gaze-network/uint128"
)

type TierDataGateway interface {
	TierReaderDataGateway
	TierWriterDataGateway

	// BeginTierTx returns a new TierDataGateway with transaction enabled. All write operations performed in this datagateway must be committed to persist changes.
	BeginTierTx(ctx context.Context) (TierDataGatewayWithTx, error)
}

type TierDataGatewayWithTx interface {
	TierDataGateway
	Tx
}

type TierReaderDataGateway interface {
	// GetConfig returns errs.NotFound before the ledger is initialized.
	GetConfig(ctx context.Context) (*entity.Config, error)
	// GetStake returns errs.NotFound when address has no stake.
	GetStake(ctx context.Context, address string) (*entity.Stake, error)
	// GetWithdrawals returns pending withdrawals of address in request order.
	GetWithdrawals(ctx context.Context, arg GetWithdrawalsParams) ([]*entity.Withdrawal, error)
	CountWithdrawals(ctx context.Context, address string) (uint64, error)
}

type TierWriterDataGateway interface {
	SaveConfig(ctx context.Context, config entity.Config) error
	SaveStake(ctx context.Context, stake entity.Stake) error
	DeleteStake(ctx context.Context, address string) error
	// CreateWithdrawal appends a withdrawal to the queue of its address and returns its id.
	CreateWithdrawal(ctx context.Context, arg CreateWithdrawalParams) (uint64, error)
	DeleteWithdrawals(ctx context.Context, address string, ids []uint64) error
}

type GetWithdrawalsParams struct {
	Address string
	Offset  uint64
	Limit   uint64
}

type CreateWithdrawalParams struct {
	Address     string
	Amount      uint128.Uint128
	RequestedAt time.Time
	ClaimableAt time.Time
}
