package postgres

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/internal/postgres"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/gaze-network/uint128"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/lo"
)

const sharedList = 0

type configRow struct {
	Admin        string
	Status       string
	NativeDenom  string
	NftContract  string
	UnlockAnchor string
	MaxPayments  []pgtype.Numeric
	LockPeriods  []int64
}

type saleRow struct {
	ID               int64              `db:"id"`
	Owner            string             `db:"owner"`
	StartTime        pgtype.Timestamptz `db:"start_time"`
	EndTime          pgtype.Timestamptz `db:"end_time"`
	Price            pgtype.Numeric     `db:"price"`
	PaymentKind      string             `db:"payment_kind"`
	PaymentContract  string             `db:"payment_contract"`
	TokenContract    string             `db:"token_contract"`
	Total            pgtype.Numeric     `db:"total"`
	TokensPerTier    []pgtype.Numeric   `db:"tokens_per_tier"`
	RemainingPerTier []pgtype.Numeric   `db:"remaining_per_tier"`
	Sold             pgtype.Numeric     `db:"sold"`
	TotalPayment     pgtype.Numeric     `db:"total_payment"`
	Participants     int64              `db:"participants"`
	Withdrawn        bool               `db:"withdrawn"`
	WhitelistMode    string             `db:"whitelist_mode"`
	UnlockAnchor     string             `db:"unlock_anchor"`
}

type purchaseRow struct {
	Address     string             `db:"address"`
	SaleID      int64              `db:"sale_id"`
	Index       int64              `db:"index"`
	Payment     pgtype.Numeric     `db:"payment"`
	Tokens      pgtype.Numeric     `db:"tokens"`
	PurchasedAt pgtype.Timestamptz `db:"purchased_at"`
	UnlockAt    pgtype.Timestamptz `db:"unlock_at"`
}

type archivedPurchaseRow struct {
	Address     string             `db:"address"`
	SaleID      int64              `db:"sale_id"`
	Index       int64              `db:"index"`
	Payment     pgtype.Numeric     `db:"payment"`
	Tokens      pgtype.Numeric     `db:"tokens"`
	PurchasedAt pgtype.Timestamptz `db:"purchased_at"`
	UnlockAt    pgtype.Timestamptz `db:"unlock_at"`
	ReceivedAt  pgtype.Timestamptz `db:"received_at"`
}

type userInfoRow struct {
	Address             string
	SaleID              int64
	TotalPayment        pgtype.Numeric
	TotalTokensBought   pgtype.Numeric
	TotalTokensReceived pgtype.Numeric
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

func uint128sFromNumerics(src []pgtype.Numeric) ([]uint128.Uint128, error) {
	if src == nil {
		return nil, nil
	}
	result := make([]uint128.Uint128, 0, len(src))
	for _, n := range src {
		v, err := uint128FromNumeric(n)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		result = append(result, v)
	}
	return result, nil
}

func numericsFromUint128s(src []uint128.Uint128) ([]pgtype.Numeric, error) {
	if src == nil {
		return nil, nil
	}
	result := make([]pgtype.Numeric, 0, len(src))
	for i := range src {
		n, err := numericFromUint128(&src[i])
		if err != nil {
			return nil, errors.WithStack(err)
		}
		result = append(result, n)
	}
	return result, nil
}

// listID maps a whitelist or user info scope to its sale_id column.
func listID(saleID *uint64) int64 {
	if saleID == nil {
		return sharedList
	}
	return int64(*saleID)
}

func toInt64s(ids []uint64) []int64 {
	return lo.Map(ids, func(id uint64, _ int) int64 { return int64(id) })
}

func mapConfigModelToType(src configRow) (entity.Config, error) {
	maxPayments, err := uint128sFromNumerics(src.MaxPayments)
	if err != nil {
		return entity.Config{}, errors.Wrap(err, "failed to parse max payments")
	}
	return entity.Config{
		AdminConfig: types.AdminConfig{
			Admin:  src.Admin,
			Status: types.Status(src.Status),
		},
		NativeDenom:  src.NativeDenom,
		NftContract:  src.NftContract,
		UnlockAnchor: entity.UnlockAnchor(src.UnlockAnchor),
		MaxPayments:  maxPayments,
		LockPeriods:  lo.Map(src.LockPeriods, func(p int64, _ int) time.Duration { return time.Duration(p) }),
	}, nil
}

func mapConfigTypeToModel(src entity.Config) (configRow, error) {
	maxPayments, err := numericsFromUint128s(src.MaxPayments)
	if err != nil {
		return configRow{}, errors.Wrap(err, "failed to map max payments")
	}
	return configRow{
		Admin:        src.Admin,
		Status:       src.Status.String(),
		NativeDenom:  src.NativeDenom,
		NftContract:  src.NftContract,
		UnlockAnchor: string(src.UnlockAnchor),
		MaxPayments:  maxPayments,
		LockPeriods:  lo.Map(src.LockPeriods, func(p time.Duration, _ int) int64 { return int64(p) }),
	}, nil
}

func mapSaleModelToType(src saleRow) (entity.Sale, error) {
	amounts := make([]uint128.Uint128, 4)
	for i, n := range []pgtype.Numeric{src.Price, src.Total, src.Sold, src.TotalPayment} {
		v, err := uint128FromNumeric(n)
		if err != nil {
			return entity.Sale{}, errors.Wrapf(err, "failed to parse amounts of sale %d", src.ID)
		}
		amounts[i] = v
	}
	tokensPerTier, err := uint128sFromNumerics(src.TokensPerTier)
	if err != nil {
		return entity.Sale{}, errors.Wrap(err, "failed to parse tokens per tier")
	}
	remainingPerTier, err := uint128sFromNumerics(src.RemainingPerTier)
	if err != nil {
		return entity.Sale{}, errors.Wrap(err, "failed to parse remaining per tier")
	}
	return entity.Sale{
		ID:        uint64(src.ID),
		Owner:     src.Owner,
		StartTime: postgres.TimeFromTimestamptz(src.StartTime),
		EndTime:   postgres.TimeFromTimestamptz(src.EndTime),
		Price:     amounts[0],
		Payment: entity.PaymentMethod{
			Kind:     entity.PaymentKind(src.PaymentKind),
			Contract: src.PaymentContract,
		},
		TokenContract:    src.TokenContract,
		Total:            amounts[1],
		TokensPerTier:    tokensPerTier,
		RemainingPerTier: remainingPerTier,
		Sold:             amounts[2],
		TotalPayment:     amounts[3],
		Participants:     uint64(src.Participants),
		Withdrawn:        src.Withdrawn,
		WhitelistMode:    entity.WhitelistMode(src.WhitelistMode),
		UnlockAnchor:     entity.UnlockAnchor(src.UnlockAnchor),
	}, nil
}

func mapSaleTypeToModel(src entity.Sale) (saleRow, error) {
	amounts := make([]pgtype.Numeric, 4)
	for i, v := range []uint128.Uint128{src.Price, src.Total, src.Sold, src.TotalPayment} {
		n, err := numericFromUint128(&v)
		if err != nil {
			return saleRow{}, errors.WithStack(err)
		}
		amounts[i] = n
	}
	tokensPerTier, err := numericsFromUint128s(src.TokensPerTier)
	if err != nil {
		return saleRow{}, errors.WithStack(err)
	}
	remainingPerTier, err := numericsFromUint128s(src.RemainingPerTier)
	if err != nil {
		return saleRow{}, errors.WithStack(err)
	}
	return saleRow{
		ID:               int64(src.ID),
		Owner:            src.Owner,
		StartTime:        timestamptz(src.StartTime),
		EndTime:          timestamptz(src.EndTime),
		Price:            amounts[0],
		PaymentKind:      string(src.Payment.Kind),
		PaymentContract:  src.Payment.Contract,
		TokenContract:    src.TokenContract,
		Total:            amounts[1],
		TokensPerTier:    tokensPerTier,
		RemainingPerTier: remainingPerTier,
		Sold:             amounts[2],
		TotalPayment:     amounts[3],
		Participants:     int64(src.Participants),
		Withdrawn:        src.Withdrawn,
		WhitelistMode:    string(src.WhitelistMode),
		UnlockAnchor:     string(src.UnlockAnchor),
	}, nil
}

func mapPurchaseModelToType(src purchaseRow) (entity.Purchase, error) {
	payment, err := uint128FromNumeric(src.Payment)
	if err != nil {
		return entity.Purchase{}, errors.Wrap(err, "failed to parse payment")
	}
	tokens, err := uint128FromNumeric(src.Tokens)
	if err != nil {
		return entity.Purchase{}, errors.Wrap(err, "failed to parse tokens")
	}
	return entity.Purchase{
		Address:     src.Address,
		SaleID:      uint64(src.SaleID),
		Index:       uint64(src.Index),
		Payment:     payment,
		Tokens:      tokens,
		PurchasedAt: postgres.TimeFromTimestamptz(src.PurchasedAt),
		UnlockAt:    postgres.TimeFromTimestamptz(src.UnlockAt),
	}, nil
}

func mapPurchaseTypeToModel(src entity.Purchase) (purchaseRow, error) {
	payment, err := numericFromUint128(&src.Payment)
	if err != nil {
		return purchaseRow{}, errors.WithStack(err)
	}
	tokens, err := numericFromUint128(&src.Tokens)
	if err != nil {
		return purchaseRow{}, errors.WithStack(err)
	}
	return purchaseRow{
		Address:     src.Address,
		SaleID:      int64(src.SaleID),
		Index:       int64(src.Index),
		Payment:     payment,
		Tokens:      tokens,
		PurchasedAt: timestamptz(src.PurchasedAt),
		UnlockAt:    timestamptz(src.UnlockAt),
	}, nil
}

func mapArchivedPurchaseModelToType(src archivedPurchaseRow) (entity.ArchivedPurchase, error) {
	purchase, err := mapPurchaseModelToType(purchaseRow{
		Address:     src.Address,
		SaleID:      src.SaleID,
		Index:       src.Index,
		Payment:     src.Payment,
		Tokens:      src.Tokens,
		PurchasedAt: src.PurchasedAt,
		UnlockAt:    src.UnlockAt,
	})
	if err != nil {
		return entity.ArchivedPurchase{}, errors.WithStack(err)
	}
	return entity.ArchivedPurchase{
		Purchase:   purchase,
		ReceivedAt: postgres.TimeFromTimestamptz(src.ReceivedAt),
	}, nil
}

func mapUserInfoModelToType(src userInfoRow) (entity.UserInfo, error) {
	totals := make([]uint128.Uint128, 3)
	for i, n := range []pgtype.Numeric{src.TotalPayment, src.TotalTokensBought, src.TotalTokensReceived} {
		v, err := uint128FromNumeric(n)
		if err != nil {
			return entity.UserInfo{}, errors.Wrapf(err, "failed to parse totals of %s", src.Address)
		}
		totals[i] = v
	}
	info := entity.UserInfo{
		Address:             src.Address,
		TotalPayment:        totals[0],
		TotalTokensBought:   totals[1],
		TotalTokensReceived: totals[2],
	}
	if src.SaleID != sharedList {
		info.SaleID = lo.ToPtr(uint64(src.SaleID))
	}
	return info, nil
}

func mapUserInfoTypeToModel(src entity.UserInfo) (userInfoRow, error) {
	totals := make([]pgtype.Numeric, 3)
	for i, v := range []uint128.Uint128{src.TotalPayment, src.TotalTokensBought, src.TotalTokensReceived} {
		n, err := numericFromUint128(&v)
		if err != nil {
			return userInfoRow{}, errors.WithStack(err)
		}
		totals[i] = n
	}
	return userInfoRow{
		Address:             src.Address,
		SaleID:              listID(src.SaleID),
		TotalPayment:        totals[0],
		TotalTokensBought:   totals[1],
		TotalTokensReceived: totals[2],
	}, nil
}
