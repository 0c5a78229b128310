package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/internal/postgres"
	"github.com/gaze-network/ido-ledger/modules/tier/datagateway"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/jackc/pgx/v5"
)

var _ datagateway.TierDataGatewayWithTx = (*Repository)(nil)

type Repository struct {
	db postgres.DB
	tx pgx.Tx
}

func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) q() postgres.Queryable {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const getConfig = `SELECT "admin", "status", "validator", "denom", "variant", "saturation", "unbonding_period", "tiers", "balance", "unbonding" FROM "tier_config" WHERE "id" = 1`

func (r *Repository) GetConfig(ctx context.Context) (*entity.Config, error) {
	var row configRow
	err := r.q().QueryRow(ctx, getConfig).Scan(
		&row.Admin, &row.Status, &row.Validator, &row.Denom, &row.Variant, &row.Saturation,
		&row.UnbondingPeriod, &row.Tiers, &row.Balance, &row.Unbonding,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrap(errs.NotFound, "tier ledger is not initialized")
		}
		return nil, errors.Wrap(err, "error during query")
	}
	config, err := mapConfigModelToType(row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse config model")
	}
	return &config, nil
}

const getStake = `SELECT "address", "deposit", "native_deposit", "deposited_at", "tier", "withdrawable_at" FROM "tier_stakes" WHERE "address" = $1`

func (r *Repository) GetStake(ctx context.Context, address string) (*entity.Stake, error) {
	var row stakeRow
	err := r.q().QueryRow(ctx, getStake, address).Scan(
		&row.Address, &row.Deposit, &row.NativeDeposit, &row.DepositedAt, &row.Tier, &row.WithdrawableAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(errs.NotFound, "stake of %s", address)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	stake, err := mapStakeModelToType(row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse stake model")
	}
	return &stake, nil
}

const getWithdrawals = `SELECT "id", "address", "amount", "requested_at", "claimable_at" FROM "tier_withdrawals" WHERE "address" = $1 ORDER BY "id" OFFSET $2 LIMIT $3`

func (r *Repository) GetWithdrawals(ctx context.Context, arg datagateway.GetWithdrawalsParams) ([]*entity.Withdrawal, error) {
	rows, err := r.q().Query(ctx, getWithdrawals, arg.Address, postgres.ClampInt64(arg.Offset), postgres.ClampInt64(arg.Limit))
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	models, err := pgx.CollectRows(rows, pgx.RowToStructByName[withdrawalRow])
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan withdrawals")
	}
	result := make([]*entity.Withdrawal, 0, len(models))
	for _, model := range models {
		withdrawal, err := mapWithdrawalModelToType(model)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse withdrawal model")
		}
		result = append(result, &withdrawal)
	}
	return result, nil
}

const countWithdrawals = `SELECT COUNT(*) FROM "tier_withdrawals" WHERE "address" = $1`

func (r *Repository) CountWithdrawals(ctx context.Context, address string) (uint64, error) {
	var count int64
	if err := r.q().QueryRow(ctx, countWithdrawals, address).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "error during query")
	}
	return uint64(count), nil
}

const saveConfig = `INSERT INTO "tier_config" ("id", "admin", "status", "validator", "denom", "variant", "saturation", "unbonding_period", "tiers", "balance", "unbonding")
VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT ("id") DO UPDATE SET
	"admin" = EXCLUDED."admin",
	"status" = EXCLUDED."status",
	"validator" = EXCLUDED."validator",
	"denom" = EXCLUDED."denom",
	"variant" = EXCLUDED."variant",
	"saturation" = EXCLUDED."saturation",
	"unbonding_period" = EXCLUDED."unbonding_period",
	"tiers" = EXCLUDED."tiers",
	"balance" = EXCLUDED."balance",
	"unbonding" = EXCLUDED."unbonding"`

func (r *Repository) SaveConfig(ctx context.Context, config entity.Config) error {
	row, err := mapConfigTypeToModel(config)
	if err != nil {
		return errors.Wrap(err, "failed to map config")
	}
	_, err = r.q().Exec(ctx, saveConfig,
		row.Admin, row.Status, row.Validator, row.Denom, row.Variant, row.Saturation,
		row.UnbondingPeriod, row.Tiers, row.Balance, row.Unbonding,
	)
	return errors.Wrap(err, "error during exec")
}

const saveStake = `INSERT INTO "tier_stakes" ("address", "deposit", "native_deposit", "deposited_at", "tier", "withdrawable_at")
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT ("address") DO UPDATE SET
	"deposit" = EXCLUDED."deposit",
	"native_deposit" = EXCLUDED."native_deposit",
	"deposited_at" = EXCLUDED."deposited_at",
	"tier" = EXCLUDED."tier",
	"withdrawable_at" = EXCLUDED."withdrawable_at"`

func (r *Repository) SaveStake(ctx context.Context, stake entity.Stake) error {
	row, err := mapStakeTypeToModel(stake)
	if err != nil {
		return errors.Wrap(err, "failed to map stake")
	}
	_, err = r.q().Exec(ctx, saveStake, row.Address, row.Deposit, row.NativeDeposit, row.DepositedAt, row.Tier, row.WithdrawableAt)
	return errors.Wrap(err, "error during exec")
}

const deleteStake = `DELETE FROM "tier_stakes" WHERE "address" = $1`

func (r *Repository) DeleteStake(ctx context.Context, address string) error {
	_, err := r.q().Exec(ctx, deleteStake, address)
	return errors.Wrap(err, "error during exec")
}

const createWithdrawal = `INSERT INTO "tier_withdrawals" ("address", "amount", "requested_at", "claimable_at") VALUES ($1, $2, $3, $4) RETURNING "id"`

func (r *Repository) CreateWithdrawal(ctx context.Context, arg datagateway.CreateWithdrawalParams) (uint64, error) {
	amount, err := numericFromUint128(&arg.Amount)
	if err != nil {
		return 0, errors.Wrap(err, "failed to map amount")
	}
	var id int64
	err = r.q().QueryRow(ctx, createWithdrawal, arg.Address, amount, timestamptz(arg.RequestedAt), timestamptz(arg.ClaimableAt)).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "error during exec")
	}
	return uint64(id), nil
}

const deleteWithdrawals = `DELETE FROM "tier_withdrawals" WHERE "address" = $1 AND "id" = ANY($2)`

func (r *Repository) DeleteWithdrawals(ctx context.Context, address string, ids []uint64) error {
	_, err := r.q().Exec(ctx, deleteWithdrawals, address, toInt64s(ids))
	return errors.Wrap(err, "error during exec")
}
