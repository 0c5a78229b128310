package datagateway

import (
	"context"

	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
)

type IDODataGateway interface {
	IDOReaderDataGateway
	IDOWriterDataGateway

	// BeginIDOTx returns a new IDODataGateway with transaction enabled. All write operations performed in this datagateway must be committed to persist changes.
	BeginIDOTx(ctx context.Context) (IDODataGatewayWithTx, error)
}

type IDODataGatewayWithTx interface {
	IDODataGateway
	Tx
}

type IDOReaderDataGateway interface {
	// GetConfig returns errs.NotFound before the registry is initialized.
	GetConfig(ctx context.Context) (*entity.Config, error)

	// GetSale returns errs.NotFound for an unknown sale.
	GetSale(ctx context.Context, id uint64) (*entity.Sale, error)
	CountSales(ctx context.Context) (uint64, error)
	GetSalesByOwner(ctx context.Context, arg GetSalesByOwnerParams) ([]*entity.Sale, error)
	CountSalesByOwner(ctx context.Context, owner string) (uint64, error)

	// GetWhitelistEntry returns errs.NotFound when address has no entry in the list.
	GetWhitelistEntry(ctx context.Context, saleID *uint64, address string) (*entity.WhitelistEntry, error)
	// GetWhitelist returns the allowed addresses of a list, sorted by address.
	GetWhitelist(ctx context.Context, arg GetWhitelistParams) ([]string, error)
	CountWhitelist(ctx context.Context, saleID *uint64) (uint64, error)

	// GetPurchases returns live purchases in purchase order.
	GetPurchases(ctx context.Context, arg GetPurchasesParams) ([]*entity.Purchase, error)
	CountPurchases(ctx context.Context, address string, saleID uint64) (uint64, error)
	// GetArchivedPurchases returns archived purchases in archive order.
	GetArchivedPurchases(ctx context.Context, arg GetPurchasesParams) ([]*entity.ArchivedPurchase, error)
	CountArchivedPurchases(ctx context.Context, address string, saleID uint64) (uint64, error)
	// GetArchivedPurchasesBySale returns every archived purchase of a sale, grouped by participant in archive order.
	GetArchivedPurchasesBySale(ctx context.Context, saleID uint64) ([]*entity.ArchivedPurchase, error)

	// GetUserInfo returns errs.NotFound when address never bought in the scope.
	GetUserInfo(ctx context.Context, address string, saleID *uint64) (*entity.UserInfo, error)
	GetActiveSales(ctx context.Context, address string) ([]uint64, error)
}

type IDOWriterDataGateway interface {
	SaveConfig(ctx context.Context, config entity.Config) error

	// CreateSale stores a new sale under the next sequential id and returns it.
	CreateSale(ctx context.Context, sale entity.Sale) (uint64, error)
	UpdateSale(ctx context.Context, sale entity.Sale) error

	SetWhitelistEntries(ctx context.Context, arg SetWhitelistEntriesParams) error

	// CreatePurchase stores a purchase under the next index of its participant and sale, and returns the index.
	CreatePurchase(ctx context.Context, purchase entity.Purchase) (uint64, error)
	DeletePurchases(ctx context.Context, address string, saleID uint64, indices []uint64) error
	CreateArchivedPurchases(ctx context.Context, purchases []entity.ArchivedPurchase) error

	SaveUserInfo(ctx context.Context, info entity.UserInfo) error
	AddActiveSale(ctx context.Context, address string, saleID uint64) error
	RemoveActiveSale(ctx context.Context, address string, saleID uint64) error
}

type GetSalesByOwnerParams struct {
	Owner  string
	Offset uint64
	Limit  uint64
}

type GetWhitelistParams struct {
	SaleID *uint64 // nil for the shared whitelist
	Offset uint64
	Limit  uint64
}

type GetPurchasesParams struct {
	Address string
	SaleID  uint64
	Offset  uint64
	Limit   uint64
}

type SetWhitelistEntriesParams struct {
	SaleID    *uint64 // nil for the shared whitelist
	Addresses []string
	Allowed   bool
}
