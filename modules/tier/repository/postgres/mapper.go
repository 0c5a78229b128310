package postgres

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/internal/postgres"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/gaze-network/uint128"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"
)

type configRow struct {
	Admin           string
	Status          string
	Validator       string
	Denom           string
	Variant         string
	Saturation      string
	UnbondingPeriod int64
	Tiers           []byte
	Balance         pgtype.Numeric
	Unbonding       pgtype.Numeric
}

type stakeRow struct {
	Address        string
	Deposit        pgtype.Numeric
	NativeDeposit  pgtype.Numeric
	DepositedAt    pgtype.Timestamptz
	Tier           int16
	WithdrawableAt pgtype.Timestamptz
}

type withdrawalRow struct {
	ID          int64              `db:"id"`
	Address     string             `db:"address"`
	Amount      pgtype.Numeric     `db:"amount"`
	RequestedAt pgtype.Timestamptz `db:"requested_at"`
	ClaimableAt pgtype.Timestamptz `db:"claimable_at"`
}

var (
	numericFromUint128 = postgres.NumericFromUint128
	timestamptz        = postgres.Timestamptz
)

func uint128FromNumeric(src pgtype.Numeric) (uint128.Uint128, error) {
	v, err := postgres.Uint128FromNumeric(src)
	if err != nil {
		return uint128.Zero, errors.WithStack(err)
	}
	if v == nil {
		return uint128.Zero, nil
	}
	return *v, nil
}

func toInt64s(ids []uint64) []int64 {
	return lo.Map(ids, func(id uint64, _ int) int64 { return int64(id) })
}

func mapConfigModelToType(src configRow) (entity.Config, error) {
	var tiers []entity.Tier
	if err := json.Unmarshal(src.Tiers, &tiers); err != nil {
		return entity.Config{}, errors.Wrap(err, "failed to parse tiers")
	}
	balance, err := uint128FromNumeric(src.Balance)
	if err != nil {
		return entity.Config{}, errors.Wrap(err, "failed to parse balance")
	}
	unbonding, err := uint128FromNumeric(src.Unbonding)
	if err != nil {
		return entity.Config{}, errors.Wrap(err, "failed to parse unbonding")
	}
	return entity.Config{
		AdminConfig: types.AdminConfig{
			Admin:  src.Admin,
			Status: types.Status(src.Status),
		},
		Validator:       src.Validator,
		Denom:           src.Denom,
		Variant:         entity.Variant(src.Variant),
		Saturation:      entity.Saturation(src.Saturation),
		UnbondingPeriod: time.Duration(src.UnbondingPeriod),
		Tiers:           tiers,
		Balance:         balance,
		Unbonding:       unbonding,
	}, nil
}

func mapConfigTypeToModel(src entity.Config) (configRow, error) {
	tiers, err := json.Marshal(src.Tiers)
	if err != nil {
		return configRow{}, errors.Wrap(err, "failed to marshal tiers")
	}
	balance, err := numericFromUint128(&src.Balance)
	if err != nil {
		return configRow{}, errors.WithStack(err)
	}
	unbonding, err := numericFromUint128(&src.Unbonding)
	if err != nil {
		return configRow{}, errors.WithStack(err)
	}
	return configRow{
		Admin:           src.Admin,
		Status:          src.Status.String(),
		Validator:       src.Validator,
		Denom:           src.Denom,
		Variant:         string(src.Variant),
		Saturation:      string(src.Saturation),
		UnbondingPeriod: int64(src.UnbondingPeriod),
		Tiers:           tiers,
		Balance:         balance,
		Unbonding:       unbonding,
	}, nil
}

func mapStakeModelToType(src stakeRow) (entity.Stake, error) {
	deposit, err := uint128FromNumeric(src.Deposit)
	if err != nil {
		return entity.Stake{}, errors.Wrap(err, "failed to parse deposit")
	}
	nativeDeposit, err := uint128FromNumeric(src.NativeDeposit)
	if err != nil {
		return entity.Stake{}, errors.Wrap(err, "failed to parse native deposit")
	}
	return entity.Stake{
		Address:        src.Address,
		Deposit:        deposit,
		NativeDeposit:  nativeDeposit,
		DepositedAt:    postgres.TimeFromTimestamptz(src.DepositedAt),
		Tier:           uint8(src.Tier),
		WithdrawableAt: postgres.TimeFromTimestamptz(src.WithdrawableAt),
	}, nil
}

func mapStakeTypeToModel(src entity.Stake) (stakeRow, error) {
	deposit, err := numericFromUint128(&src.Deposit)
	if err != nil {
		return stakeRow{}, errors.WithStack(err)
	}
	nativeDeposit, err := numericFromUint128(&src.NativeDeposit)
	if err != nil {
		return stakeRow{}, errors.WithStack(err)
	}
	return stakeRow{
		Address:        src.Address,
		Deposit:        deposit,
		NativeDeposit:  nativeDeposit,
		DepositedAt:    timestamptz(src.DepositedAt),
		Tier:           int16(src.Tier),
		WithdrawableAt: timestamptz(src.WithdrawableAt),
	}, nil
}

func mapWithdrawalModelToType(src withdrawalRow) (entity.Withdrawal, error) {
	amount, err := uint128FromNumeric(src.Amount)
	if err != nil {
		return entity.Withdrawal{}, errors.Wrap(err, "failed to parse amount")
	}
	return entity.Withdrawal{
		ID:          uint64(src.ID),
		Address:     src.Address,
		Amount:      amount,
		RequestedAt: postgres.TimeFromTimestamptz(src.RequestedAt),
		ClaimableAt: postgres.TimeFromTimestamptz(src.ClaimableAt),
	}, nil
}
