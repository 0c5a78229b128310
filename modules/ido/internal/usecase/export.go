package usecase

import (
	"context"
	"fmt"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/gaze-network/ido-ledger/pkg/parquetutils"
	"github.com/samber/lo"
)

// ArchiveRecord is one row of an exported archive file.
type ArchiveRecord struct {
	Address     string `parquet:"name=address, type=BYTE_ARRAY, convertedtype=UTF8"`
	SaleID      int64  `parquet:"name=sale_id, type=INT64"`
	Index       int64  `parquet:"name=index, type=INT64"`
	Payment     string `parquet:"name=payment, type=BYTE_ARRAY, convertedtype=UTF8"`
	Tokens      string `parquet:"name=tokens, type=BYTE_ARRAY, convertedtype=UTF8"`
	PurchasedAt int64  `parquet:"name=purchased_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	UnlockAt    int64  `parquet:"name=unlock_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	ReceivedAt  int64  `parquet:"name=received_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

type ExportResult struct {
	Location string
	Records  int
}

// ArchiveKey is the object key of the archive export of a sale.
func (u *Usecase) ArchiveKey(saleID uint64) string {
	return path.Join(u.exportPrefix, fmt.Sprintf("sale_%d", saleID), "archive.parquet")
}

// ExportArchive writes every received purchase of a sale to a parquet file and uploads it.
func (u *Usecase) ExportArchive(ctx context.Context, saleID uint64) (*ExportResult, error) {
	if u.uploader == nil {
		return nil, errors.Wrap(errs.Unsupported, "archive export is not configured")
	}
	ctx = logger.WithContext(ctx, slogx.Uint64("saleId", saleID))

	if _, err := u.dg.GetSale(ctx, saleID); err != nil {
		return nil, errors.Wrap(err, "failed to get sale")
	}
	archived, err := u.dg.GetArchivedPurchasesBySale(ctx, saleID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get archived purchases")
	}
	records := lo.Map(archived, func(p *entity.ArchivedPurchase, _ int) ArchiveRecord {
		return ArchiveRecord{
			Address:     p.Address,
			SaleID:      int64(p.SaleID),
			Index:       int64(p.Index),
			Payment:     p.Payment.String(),
			Tokens:      p.Tokens.String(),
			PurchasedAt: p.PurchasedAt.UnixMilli(),
			UnlockAt:    p.UnlockAt.UnixMilli(),
			ReceivedAt:  p.ReceivedAt.UnixMilli(),
		}
	})

	data, err := parquetutils.WriteAll(records)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode archive")
	}
	location, err := u.uploader.Upload(ctx, u.ArchiveKey(saleID), data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upload archive")
	}

	logger.InfoContext(ctx, "archive exported",
		slogx.String("location", location),
		slogx.Int("records", len(records)),
		slogx.Int("bytes", len(data)),
	)
	return &ExportResult{Location: location, Records: len(records)}, nil
}
