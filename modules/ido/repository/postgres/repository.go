package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/internal/postgres"
	"github.com/gaze-network/ido-ledger/modules/ido/datagateway"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
)

var _ datagateway.IDODataGatewayWithTx = (*Repository)(nil)

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

const getConfig = `SELECT "admin", "status", "native_denom", "nft_contract", "unlock_anchor", "max_payments", "lock_periods" FROM "ido_config" WHERE "id" = 1`

func (r *Repository) GetConfig(ctx context.Context) (*entity.Config, error) {
	var row configRow
	err := r.q().QueryRow(ctx, getConfig).Scan(
		&row.Admin, &row.Status, &row.NativeDenom, &row.NftContract, &row.UnlockAnchor, &row.MaxPayments, &row.LockPeriods,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrap(errs.NotFound, "sale registry is not initialized")
		}
		return nil, errors.Wrap(err, "error during query")
	}
	config, err := mapConfigModelToType(row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse config model")
	}
	return &config, nil
}

const saleColumns = `"id", "owner", "start_time", "end_time", "price", "payment_kind", "payment_contract", "token_contract", "total",
	"tokens_per_tier", "remaining_per_tier", "sold", "total_payment", "participants", "withdrawn", "whitelist_mode", "unlock_anchor"`

func (r *Repository) querySales(ctx context.Context, query string, args ...any) ([]*entity.Sale, error) {
	rows, err := r.q().Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	models, err := pgx.CollectRows(rows, pgx.RowToStructByName[saleRow])
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan sales")
	}
	result := make([]*entity.Sale, 0, len(models))
	for _, model := range models {
		sale, err := mapSaleModelToType(model)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse sale model")
		}
		result = append(result, &sale)
	}
	return result, nil
}

const getSale = `SELECT ` + saleColumns + ` FROM "ido_sales" WHERE "id" = $1`

func (r *Repository) GetSale(ctx context.Context, id uint64) (*entity.Sale, error) {
	sales, err := r.querySales(ctx, getSale, int64(id))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(sales) == 0 {
		return nil, errors.Wrapf(errs.NotFound, "sale %d", id)
	}
	return sales[0], nil
}

const countSales = `SELECT COUNT(*) FROM "ido_sales"`

func (r *Repository) CountSales(ctx context.Context) (uint64, error) {
	return r.count(ctx, countSales)
}

const getSalesByOwner = `SELECT ` + saleColumns + ` FROM "ido_sales" WHERE "owner" = $1 ORDER BY "id" OFFSET $2 LIMIT $3`

func (r *Repository) GetSalesByOwner(ctx context.Context, arg datagateway.GetSalesByOwnerParams) ([]*entity.Sale, error) {
	sales, err := r.querySales(ctx, getSalesByOwner, arg.Owner, postgres.ClampInt64(arg.Offset), postgres.ClampInt64(arg.Limit))
	return sales, errors.WithStack(err)
}

const countSalesByOwner = `SELECT COUNT(*) FROM "ido_sales" WHERE "owner" = $1`

func (r *Repository) CountSalesByOwner(ctx context.Context, owner string) (uint64, error) {
	return r.count(ctx, countSalesByOwner, owner)
}

func (r *Repository) count(ctx context.Context, query string, args ...any) (uint64, error) {
	var count int64
	if err := r.q().QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "error during query")
	}
	return uint64(count), nil
}

const getWhitelistEntry = `SELECT "allowed" FROM "ido_whitelist" WHERE "sale_id" = $1 AND "address" = $2`

func (r *Repository) GetWhitelistEntry(ctx context.Context, saleID *uint64, address string) (*entity.WhitelistEntry, error) {
	var allowed bool
	if err := r.q().QueryRow(ctx, getWhitelistEntry, listID(saleID), address).Scan(&allowed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(errs.NotFound, "whitelist entry of %s", address)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	return &entity.WhitelistEntry{SaleID: saleID, Address: address, Allowed: allowed}, nil
}

const getWhitelist = `SELECT "address" FROM "ido_whitelist" WHERE "sale_id" = $1 AND "allowed" ORDER BY "address" OFFSET $2 LIMIT $3`

func (r *Repository) GetWhitelist(ctx context.Context, arg datagateway.GetWhitelistParams) ([]string, error) {
	rows, err := r.q().Query(ctx, getWhitelist, listID(arg.SaleID), postgres.ClampInt64(arg.Offset), postgres.ClampInt64(arg.Limit))
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	addresses, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return addresses, errors.Wrap(err, "failed to scan whitelist")
}

const countWhitelist = `SELECT COUNT(*) FROM "ido_whitelist" WHERE "sale_id" = $1 AND "allowed"`

func (r *Repository) CountWhitelist(ctx context.Context, saleID *uint64) (uint64, error) {
	return r.count(ctx, countWhitelist, listID(saleID))
}

const purchaseColumns = `"address", "sale_id", "index", "payment", "tokens", "purchased_at", "unlock_at"`

const getPurchases = `SELECT ` + purchaseColumns + ` FROM "ido_purchases" WHERE "address" = $1 AND "sale_id" = $2 ORDER BY "index" OFFSET $3 LIMIT $4`

func (r *Repository) GetPurchases(ctx context.Context, arg datagateway.GetPurchasesParams) ([]*entity.Purchase, error) {
	rows, err := r.q().Query(ctx, getPurchases, arg.Address, int64(arg.SaleID), postgres.ClampInt64(arg.Offset), postgres.ClampInt64(arg.Limit))
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	models, err := pgx.CollectRows(rows, pgx.RowToStructByName[purchaseRow])
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan purchases")
	}
	result := make([]*entity.Purchase, 0, len(models))
	for _, model := range models {
		purchase, err := mapPurchaseModelToType(model)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse purchase model")
		}
		result = append(result, &purchase)
	}
	return result, nil
}

const countPurchases = `SELECT COUNT(*) FROM "ido_purchases" WHERE "address" = $1 AND "sale_id" = $2`

func (r *Repository) CountPurchases(ctx context.Context, address string, saleID uint64) (uint64, error) {
	return r.count(ctx, countPurchases, address, int64(saleID))
}

func (r *Repository) queryArchivedPurchases(ctx context.Context, query string, args ...any) ([]*entity.ArchivedPurchase, error) {
	rows, err := r.q().Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	models, err := pgx.CollectRows(rows, pgx.RowToStructByName[archivedPurchaseRow])
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan archived purchases")
	}
	result := make([]*entity.ArchivedPurchase, 0, len(models))
	for _, model := range models {
		archived, err := mapArchivedPurchaseModelToType(model)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse archived purchase model")
		}
		result = append(result, &archived)
	}
	return result, nil
}

const getArchivedPurchases = `SELECT ` + purchaseColumns + `, "received_at" FROM "ido_archived_purchases"
WHERE "address" = $1 AND "sale_id" = $2 ORDER BY "id" OFFSET $3 LIMIT $4`

func (r *Repository) GetArchivedPurchases(ctx context.Context, arg datagateway.GetPurchasesParams) ([]*entity.ArchivedPurchase, error) {
	archived, err := r.queryArchivedPurchases(ctx, getArchivedPurchases, arg.Address, int64(arg.SaleID), postgres.ClampInt64(arg.Offset), postgres.ClampInt64(arg.Limit))
	return archived, errors.WithStack(err)
}

const countArchivedPurchases = `SELECT COUNT(*) FROM "ido_archived_purchases" WHERE "address" = $1 AND "sale_id" = $2`

func (r *Repository) CountArchivedPurchases(ctx context.Context, address string, saleID uint64) (uint64, error) {
	return r.count(ctx, countArchivedPurchases, address, int64(saleID))
}

const getArchivedPurchasesBySale = `SELECT ` + purchaseColumns + `, "received_at" FROM "ido_archived_purchases"
WHERE "sale_id" = $1 ORDER BY "address", "id"`

func (r *Repository) GetArchivedPurchasesBySale(ctx context.Context, saleID uint64) ([]*entity.ArchivedPurchase, error) {
	archived, err := r.queryArchivedPurchases(ctx, getArchivedPurchasesBySale, int64(saleID))
	return archived, errors.WithStack(err)
}

const getUserInfo = `SELECT "address", "sale_id", "total_payment", "total_tokens_bought", "total_tokens_received" FROM "ido_user_infos" WHERE "address" = $1 AND "sale_id" = $2`

func (r *Repository) GetUserInfo(ctx context.Context, address string, saleID *uint64) (*entity.UserInfo, error) {
	var row userInfoRow
	err := r.q().QueryRow(ctx, getUserInfo, address, listID(saleID)).Scan(
		&row.Address, &row.SaleID, &row.TotalPayment, &row.TotalTokensBought, &row.TotalTokensReceived,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(errs.NotFound, "user info of %s", address)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	info, err := mapUserInfoModelToType(row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse user info model")
	}
	return &info, nil
}

const getActiveSales = `SELECT "sale_id" FROM "ido_active_sales" WHERE "address" = $1 ORDER BY "sale_id"`

func (r *Repository) GetActiveSales(ctx context.Context, address string) ([]uint64, error) {
	rows, err := r.q().Query(ctx, getActiveSales, address)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan active sales")
	}
	return lo.Map(ids, func(id int64, _ int) uint64 { return uint64(id) }), nil
}

const saveConfig = `INSERT INTO "ido_config" ("id", "admin", "status", "native_denom", "nft_contract", "unlock_anchor", "max_payments", "lock_periods")
VALUES (1, $1, $2, $3, $4, $5, $6, $7)
ON CONFLICT ("id") DO UPDATE SET
	"admin" = EXCLUDED."admin",
	"status" = EXCLUDED."status",
	"native_denom" = EXCLUDED."native_denom",
	"nft_contract" = EXCLUDED."nft_contract",
	"unlock_anchor" = EXCLUDED."unlock_anchor",
	"max_payments" = EXCLUDED."max_payments",
	"lock_periods" = EXCLUDED."lock_periods"`

func (r *Repository) SaveConfig(ctx context.Context, config entity.Config) error {
	row, err := mapConfigTypeToModel(config)
	if err != nil {
		return errors.Wrap(err, "failed to map config")
	}
	_, err = r.q().Exec(ctx, saveConfig,
		row.Admin, row.Status, row.NativeDenom, row.NftContract, row.UnlockAnchor, row.MaxPayments, row.LockPeriods,
	)
	return errors.Wrap(err, "error during exec")
}

// Sale ids are sequential without gaps, even after rolled back transactions.
const createSale = `INSERT INTO "ido_sales" (` + saleColumns + `)
VALUES ((SELECT COALESCE(MAX("id"), 0) + 1 FROM "ido_sales"), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING "id"`

func (r *Repository) CreateSale(ctx context.Context, sale entity.Sale) (uint64, error) {
	row, err := mapSaleTypeToModel(sale)
	if err != nil {
		return 0, errors.Wrap(err, "failed to map sale")
	}
	var id int64
	err = r.q().QueryRow(ctx, createSale,
		row.Owner, row.StartTime, row.EndTime, row.Price, row.PaymentKind, row.PaymentContract, row.TokenContract, row.Total,
		row.TokensPerTier, row.RemainingPerTier, row.Sold, row.TotalPayment, row.Participants, row.Withdrawn, row.WhitelistMode, row.UnlockAnchor,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "error during exec")
	}
	return uint64(id), nil
}

const updateSale = `UPDATE "ido_sales" SET
	"remaining_per_tier" = $2,
	"sold" = $3,
	"total_payment" = $4,
	"participants" = $5,
	"withdrawn" = $6
WHERE "id" = $1`

// UpdateSale persists the mutable aggregates of a sale. Terms set at creation never change.
func (r *Repository) UpdateSale(ctx context.Context, sale entity.Sale) error {
	row, err := mapSaleTypeToModel(sale)
	if err != nil {
		return errors.Wrap(err, "failed to map sale")
	}
	tag, err := r.q().Exec(ctx, updateSale, row.ID, row.RemainingPerTier, row.Sold, row.TotalPayment, row.Participants, row.Withdrawn)
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(errs.NotFound, "sale %d", sale.ID)
	}
	return nil
}

const setWhitelistEntries = `INSERT INTO "ido_whitelist" ("sale_id", "address", "allowed")
SELECT $1::BIGINT, "address", $3::BOOLEAN FROM UNNEST($2::TEXT[]) AS "address"
ON CONFLICT ("sale_id", "address") DO UPDATE SET "allowed" = EXCLUDED."allowed"`

func (r *Repository) SetWhitelistEntries(ctx context.Context, arg datagateway.SetWhitelistEntriesParams) error {
	_, err := r.q().Exec(ctx, setWhitelistEntries, listID(arg.SaleID), arg.Addresses, arg.Allowed)
	return errors.Wrap(err, "error during exec")
}

const nextPurchaseIndex = `INSERT INTO "ido_purchase_counters" ("address", "sale_id", "next_index") VALUES ($1, $2, 1)
ON CONFLICT ("address", "sale_id") DO UPDATE SET "next_index" = "ido_purchase_counters"."next_index" + 1
RETURNING "next_index" - 1`

const createPurchase = `INSERT INTO "ido_purchases" (` + purchaseColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *Repository) CreatePurchase(ctx context.Context, purchase entity.Purchase) (uint64, error) {
	var index int64
	if err := r.q().QueryRow(ctx, nextPurchaseIndex, purchase.Address, int64(purchase.SaleID)).Scan(&index); err != nil {
		return 0, errors.Wrap(err, "failed to allocate purchase index")
	}
	purchase.Index = uint64(index)
	row, err := mapPurchaseTypeToModel(purchase)
	if err != nil {
		return 0, errors.Wrap(err, "failed to map purchase")
	}
	_, err = r.q().Exec(ctx, createPurchase, row.Address, row.SaleID, row.Index, row.Payment, row.Tokens, row.PurchasedAt, row.UnlockAt)
	if err != nil {
		return 0, errors.Wrap(err, "error during exec")
	}
	return purchase.Index, nil
}

const deletePurchases = `DELETE FROM "ido_purchases" WHERE "address" = $1 AND "sale_id" = $2 AND "index" = ANY($3)`

func (r *Repository) DeletePurchases(ctx context.Context, address string, saleID uint64, indices []uint64) error {
	_, err := r.q().Exec(ctx, deletePurchases, address, int64(saleID), toInt64s(indices))
	return errors.Wrap(err, "error during exec")
}

const createArchivedPurchase = `INSERT INTO "ido_archived_purchases" (` + purchaseColumns + `, "received_at") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (r *Repository) CreateArchivedPurchases(ctx context.Context, purchases []entity.ArchivedPurchase) error {
	batch := &pgx.Batch{}
	for _, p := range purchases {
		row, err := mapPurchaseTypeToModel(p.Purchase)
		if err != nil {
			return errors.Wrap(err, "failed to map archived purchase")
		}
		batch.Queue(createArchivedPurchase, row.Address, row.SaleID, row.Index, row.Payment, row.Tokens, row.PurchasedAt, row.UnlockAt, timestamptz(p.ReceivedAt))
	}
	if batch.Len() == 0 {
		return nil
	}
	var results pgx.BatchResults
	if r.tx != nil {
		results = r.tx.SendBatch(ctx, batch)
	} else {
		results = r.db.SendBatch(ctx, batch)
	}
	return errors.Wrap(results.Close(), "error during batch exec")
}

const saveUserInfo = `INSERT INTO "ido_user_infos" ("address", "sale_id", "total_payment", "total_tokens_bought", "total_tokens_received")
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT ("address", "sale_id") DO UPDATE SET
	"total_payment" = EXCLUDED."total_payment",
	"total_tokens_bought" = EXCLUDED."total_tokens_bought",
	"total_tokens_received" = EXCLUDED."total_tokens_received"`

func (r *Repository) SaveUserInfo(ctx context.Context, info entity.UserInfo) error {
	row, err := mapUserInfoTypeToModel(info)
	if err != nil {
		return errors.Wrap(err, "failed to map user info")
	}
	_, err = r.q().Exec(ctx, saveUserInfo, row.Address, row.SaleID, row.TotalPayment, row.TotalTokensBought, row.TotalTokensReceived)
	return errors.Wrap(err, "error during exec")
}

const addActiveSale = `INSERT INTO "ido_active_sales" ("address", "sale_id") VALUES ($1, $2) ON CONFLICT DO NOTHING`

func (r *Repository) AddActiveSale(ctx context.Context, address string, saleID uint64) error {
	_, err := r.q().Exec(ctx, addActiveSale, address, int64(saleID))
	return errors.Wrap(err, "error during exec")
}

const removeActiveSale = `DELETE FROM "ido_active_sales" WHERE "address" = $1 AND "sale_id" = $2`

func (r *Repository) RemoveActiveSale(ctx context.Context, address string, saleID uint64) error {
	_, err := r.q().Exec(ctx, removeActiveSale, address, int64(saleID))
	return errors.Wrap(err, "error during exec")
}
