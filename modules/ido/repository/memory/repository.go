// Package memory is an in-process IDODataGateway.
package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/internal/memstore"
	"github.com/gaze-network/ido-ledger/modules/ido/datagateway"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/samber/lo"
)

var _ datagateway.IDODataGatewayWithTx = (*Repository)(nil)

type listKey struct {
	saleID uint64
	shared bool
}

func listKeyOf(saleID *uint64) listKey {
	if saleID == nil {
		return listKey{shared: true}
	}
	return listKey{saleID: *saleID}
}

type purchaseKey struct {
	address string
	saleID  uint64
}

type userKey struct {
	address string
	saleID  uint64
	global  bool
}

func userKeyOf(address string, saleID *uint64) userKey {
	if saleID == nil {
		return userKey{address: address, global: true}
	}
	return userKey{address: address, saleID: *saleID}
}

type state struct {
	config      *entity.Config
	sales       []entity.Sale // sale id - 1
	owners      map[string][]uint64
	whitelists  map[listKey]map[string]bool
	purchases   map[purchaseKey][]entity.Purchase
	nextIndex   map[purchaseKey]uint64
	archive     map[purchaseKey][]entity.ArchivedPurchase
	userInfos   map[userKey]entity.UserInfo
	activeSales map[string][]uint64
}

func newState() *state {
	return &state{
		owners:      make(map[string][]uint64),
		whitelists:  make(map[listKey]map[string]bool),
		purchases:   make(map[purchaseKey][]entity.Purchase),
		nextIndex:   make(map[purchaseKey]uint64),
		archive:     make(map[purchaseKey][]entity.ArchivedPurchase),
		userInfos:   make(map[userKey]entity.UserInfo),
		activeSales: make(map[string][]uint64),
	}
}

func (s *state) Clone() *state {
	c := &state{
		sales:       lo.Map(s.sales, func(sale entity.Sale, _ int) entity.Sale { return cloneSale(sale) }),
		owners:      make(map[string][]uint64, len(s.owners)),
		whitelists:  make(map[listKey]map[string]bool, len(s.whitelists)),
		purchases:   make(map[purchaseKey][]entity.Purchase, len(s.purchases)),
		nextIndex:   lo.Assign(s.nextIndex),
		archive:     make(map[purchaseKey][]entity.ArchivedPurchase, len(s.archive)),
		userInfos:   lo.Assign(s.userInfos),
		activeSales: make(map[string][]uint64, len(s.activeSales)),
	}
	if s.config != nil {
		config := cloneConfig(*s.config)
		c.config = &config
	}
	for owner, ids := range s.owners {
		c.owners[owner] = slices.Clone(ids)
	}
	for key, list := range s.whitelists {
		c.whitelists[key] = lo.Assign(list)
	}
	for key, purchases := range s.purchases {
		c.purchases[key] = slices.Clone(purchases)
	}
	// archived records are never modified, sharing their backing arrays is safe as long as appends copy
	for key, archived := range s.archive {
		c.archive[key] = slices.Clip(archived)
	}
	for address, ids := range s.activeSales {
		c.activeSales[address] = slices.Clone(ids)
	}
	return c
}

func cloneConfig(config entity.Config) entity.Config {
	config.MaxPayments = slices.Clone(config.MaxPayments)
	config.LockPeriods = slices.Clone(config.LockPeriods)
	return config
}

func cloneSale(sale entity.Sale) entity.Sale {
	sale.TokensPerTier = slices.Clone(sale.TokensPerTier)
	sale.RemainingPerTier = slices.Clone(sale.RemainingPerTier)
	return sale
}

func page[T any](items []T, offset, limit uint64) []T {
	if offset >= uint64(len(items)) {
		return nil
	}
	end := offset + min(limit, uint64(len(items))-offset)
	return items[offset:end]
}

type Repository struct {
	store *memstore.Store[*state]
	tx    *memstore.Tx[*state]
}

func NewRepository() *Repository {
	return &Repository{store: memstore.New(newState())}
}

func (r *Repository) BeginIDOTx(_ context.Context) (datagateway.IDODataGatewayWithTx, error) {
	if r.tx != nil {
		return nil, errors.New("transaction already exists, call Commit() or Rollback() first")
	}
	return &Repository{store: r.store, tx: r.store.Begin()}, nil
}

func (r *Repository) Commit(_ context.Context) error {
	if r.tx == nil || r.tx.Closed() {
		return nil
	}
	return errors.Wrap(r.tx.Commit(), "failed to commit transaction")
}

func (r *Repository) Rollback(_ context.Context) error {
	if r.tx != nil {
		r.tx.Rollback()
	}
	return nil
}

func (r *Repository) read(fn func(s *state) error) error {
	if r.tx != nil {
		if r.tx.Closed() {
			return errors.WithStack(memstore.ErrTxClosed)
		}
		return fn(r.tx.View())
	}
	return r.store.Read(fn)
}

func (r *Repository) write(fn func(s *state) error) error {
	if r.tx != nil {
		if r.tx.Closed() {
			return errors.WithStack(memstore.ErrTxClosed)
		}
		return fn(r.tx.State())
	}
	return r.store.Write(fn)
}

func (r *Repository) GetConfig(_ context.Context) (*entity.Config, error) {
	var config *entity.Config
	err := r.read(func(s *state) error {
		if s.config == nil {
			return errors.Wrap(errs.NotFound, "sale registry is not initialized")
		}
		dup := cloneConfig(*s.config)
		config = &dup
		return nil
	})
	return config, errors.WithStack(err)
}

func (r *Repository) GetSale(_ context.Context, id uint64) (*entity.Sale, error) {
	var sale *entity.Sale
	err := r.read(func(s *state) error {
		if id == 0 || id > uint64(len(s.sales)) {
			return errors.Wrapf(errs.NotFound, "sale %d", id)
		}
		dup := cloneSale(s.sales[id-1])
		sale = &dup
		return nil
	})
	return sale, errors.WithStack(err)
}

func (r *Repository) CountSales(_ context.Context) (uint64, error) {
	var count uint64
	err := r.read(func(s *state) error {
		count = uint64(len(s.sales))
		return nil
	})
	return count, errors.WithStack(err)
}

func (r *Repository) GetSalesByOwner(_ context.Context, arg datagateway.GetSalesByOwnerParams) ([]*entity.Sale, error) {
	var sales []*entity.Sale
	err := r.read(func(s *state) error {
		for _, id := range page(s.owners[arg.Owner], arg.Offset, arg.Limit) {
			sale := cloneSale(s.sales[id-1])
			sales = append(sales, &sale)
		}
		return nil
	})
	return sales, errors.WithStack(err)
}

func (r *Repository) CountSalesByOwner(_ context.Context, owner string) (uint64, error) {
	var count uint64
	err := r.read(func(s *state) error {
		count = uint64(len(s.owners[owner]))
		return nil
	})
	return count, errors.WithStack(err)
}

func (r *Repository) GetWhitelistEntry(_ context.Context, saleID *uint64, address string) (*entity.WhitelistEntry, error) {
	var entry *entity.WhitelistEntry
	err := r.read(func(s *state) error {
		allowed, ok := s.whitelists[listKeyOf(saleID)][address]
		if !ok {
			return errors.Wrapf(errs.NotFound, "whitelist entry of %s", address)
		}
		entry = &entity.WhitelistEntry{SaleID: saleID, Address: address, Allowed: allowed}
		return nil
	})
	return entry, errors.WithStack(err)
}

func (r *Repository) allowed(s *state, saleID *uint64) []string {
	list := s.whitelists[listKeyOf(saleID)]
	addresses := make([]string, 0, len(list))
	for address, allowed := range list {
		if allowed {
			addresses = append(addresses, address)
		}
	}
	sort.Strings(addresses)
	return addresses
}

func (r *Repository) GetWhitelist(_ context.Context, arg datagateway.GetWhitelistParams) ([]string, error) {
	var addresses []string
	err := r.read(func(s *state) error {
		addresses = slices.Clone(page(r.allowed(s, arg.SaleID), arg.Offset, arg.Limit))
		return nil
	})
	return addresses, errors.WithStack(err)
}

func (r *Repository) CountWhitelist(_ context.Context, saleID *uint64) (uint64, error) {
	var count uint64
	err := r.read(func(s *state) error {
		count = uint64(lo.CountBy(lo.Values(s.whitelists[listKeyOf(saleID)]), func(allowed bool) bool { return allowed }))
		return nil
	})
	return count, errors.WithStack(err)
}

func (r *Repository) GetPurchases(_ context.Context, arg datagateway.GetPurchasesParams) ([]*entity.Purchase, error) {
	var purchases []*entity.Purchase
	err := r.read(func(s *state) error {
		purchases = lo.Map(page(s.purchases[purchaseKey{arg.Address, arg.SaleID}], arg.Offset, arg.Limit), func(p entity.Purchase, _ int) *entity.Purchase {
			return &p
		})
		return nil
	})
	return purchases, errors.WithStack(err)
}

func (r *Repository) CountPurchases(_ context.Context, address string, saleID uint64) (uint64, error) {
	var count uint64
	err := r.read(func(s *state) error {
		count = uint64(len(s.purchases[purchaseKey{address, saleID}]))
		return nil
	})
	return count, errors.WithStack(err)
}

func (r *Repository) GetArchivedPurchases(_ context.Context, arg datagateway.GetPurchasesParams) ([]*entity.ArchivedPurchase, error) {
	var archived []*entity.ArchivedPurchase
	err := r.read(func(s *state) error {
		archived = lo.Map(page(s.archive[purchaseKey{arg.Address, arg.SaleID}], arg.Offset, arg.Limit), func(p entity.ArchivedPurchase, _ int) *entity.ArchivedPurchase {
			return &p
		})
		return nil
	})
	return archived, errors.WithStack(err)
}

func (r *Repository) CountArchivedPurchases(_ context.Context, address string, saleID uint64) (uint64, error) {
	var count uint64
	err := r.read(func(s *state) error {
		count = uint64(len(s.archive[purchaseKey{address, saleID}]))
		return nil
	})
	return count, errors.WithStack(err)
}

func (r *Repository) GetArchivedPurchasesBySale(_ context.Context, saleID uint64) ([]*entity.ArchivedPurchase, error) {
	var archived []*entity.ArchivedPurchase
	err := r.read(func(s *state) error {
		keys := lo.Filter(lo.Keys(s.archive), func(key purchaseKey, _ int) bool { return key.saleID == saleID })
		sort.Slice(keys, func(i, j int) bool { return keys[i].address < keys[j].address })
		for _, key := range keys {
			for _, p := range s.archive[key] {
				p := p
				archived = append(archived, &p)
			}
		}
		return nil
	})
	return archived, errors.WithStack(err)
}

func (r *Repository) GetUserInfo(_ context.Context, address string, saleID *uint64) (*entity.UserInfo, error) {
	var info *entity.UserInfo
	err := r.read(func(s *state) error {
		found, ok := s.userInfos[userKeyOf(address, saleID)]
		if !ok {
			return errors.Wrapf(errs.NotFound, "user info of %s", address)
		}
		info = &found
		return nil
	})
	return info, errors.WithStack(err)
}

func (r *Repository) GetActiveSales(_ context.Context, address string) ([]uint64, error) {
	var ids []uint64
	err := r.read(func(s *state) error {
		ids = slices.Clone(s.activeSales[address])
		return nil
	})
	return ids, errors.WithStack(err)
}

func (r *Repository) SaveConfig(_ context.Context, config entity.Config) error {
	return errors.WithStack(r.write(func(s *state) error {
		config = cloneConfig(config)
		s.config = &config
		return nil
	}))
}

func (r *Repository) CreateSale(_ context.Context, sale entity.Sale) (uint64, error) {
	var id uint64
	err := r.write(func(s *state) error {
		id = uint64(len(s.sales)) + 1
		sale = cloneSale(sale)
		sale.ID = id
		s.sales = append(s.sales, sale)
		s.owners[sale.Owner] = append(s.owners[sale.Owner], id)
		return nil
	})
	return id, errors.WithStack(err)
}

func (r *Repository) UpdateSale(_ context.Context, sale entity.Sale) error {
	return errors.WithStack(r.write(func(s *state) error {
		if sale.ID == 0 || sale.ID > uint64(len(s.sales)) {
			return errors.Wrapf(errs.NotFound, "sale %d", sale.ID)
		}
		s.sales[sale.ID-1] = cloneSale(sale)
		return nil
	}))
}

func (r *Repository) SetWhitelistEntries(_ context.Context, arg datagateway.SetWhitelistEntriesParams) error {
	return errors.WithStack(r.write(func(s *state) error {
		key := listKeyOf(arg.SaleID)
		list := s.whitelists[key]
		if list == nil {
			list = make(map[string]bool, len(arg.Addresses))
			s.whitelists[key] = list
		}
		for _, address := range arg.Addresses {
			list[address] = arg.Allowed
		}
		return nil
	}))
}

func (r *Repository) CreatePurchase(_ context.Context, purchase entity.Purchase) (uint64, error) {
	var index uint64
	err := r.write(func(s *state) error {
		key := purchaseKey{purchase.Address, purchase.SaleID}
		index = s.nextIndex[key]
		s.nextIndex[key] = index + 1
		purchase.Index = index
		s.purchases[key] = append(s.purchases[key], purchase)
		return nil
	})
	return index, errors.WithStack(err)
}

func (r *Repository) DeletePurchases(_ context.Context, address string, saleID uint64, indices []uint64) error {
	return errors.WithStack(r.write(func(s *state) error {
		key := purchaseKey{address, saleID}
		remaining := lo.Reject(s.purchases[key], func(p entity.Purchase, _ int) bool {
			return slices.Contains(indices, p.Index)
		})
		if len(remaining) == 0 {
			delete(s.purchases, key)
			return nil
		}
		s.purchases[key] = remaining
		return nil
	}))
}

func (r *Repository) CreateArchivedPurchases(_ context.Context, purchases []entity.ArchivedPurchase) error {
	return errors.WithStack(r.write(func(s *state) error {
		for _, p := range purchases {
			key := purchaseKey{p.Address, p.SaleID}
			s.archive[key] = append(s.archive[key], p)
		}
		return nil
	}))
}

func (r *Repository) SaveUserInfo(_ context.Context, info entity.UserInfo) error {
	return errors.WithStack(r.write(func(s *state) error {
		if info.SaleID != nil {
			info.SaleID = lo.ToPtr(*info.SaleID)
		}
		s.userInfos[userKeyOf(info.Address, info.SaleID)] = info
		return nil
	}))
}

func (r *Repository) AddActiveSale(_ context.Context, address string, saleID uint64) error {
	return errors.WithStack(r.write(func(s *state) error {
		if !slices.Contains(s.activeSales[address], saleID) {
			s.activeSales[address] = append(s.activeSales[address], saleID)
		}
		return nil
	}))
}

func (r *Repository) RemoveActiveSale(_ context.Context, address string, saleID uint64) error {
	return errors.WithStack(r.write(func(s *state) error {
		remaining := lo.Without(s.activeSales[address], saleID)
		if len(remaining) == 0 {
			delete(s.activeSales, address)
			return nil
		}
		s.activeSales[address] = remaining
		return nil
	}))
}
