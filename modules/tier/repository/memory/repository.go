// Package memory is an in-process TierDataGateway.
package memory

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/internal/memstore"
	"github.com/gaze-network/ido-ledger/modules/tier/datagateway"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/samber/lo"
)

var _ datagateway.TierDataGatewayWithTx = (*Repository)(nil)

type state struct {
	config      *entity.Config
	stakes      map[string]entity.Stake
	withdrawals map[string][]entity.Withdrawal
	nextID      uint64
}

func (s *state) Clone() *state {
	c := &state{
		stakes:      lo.Assign(s.stakes),
		withdrawals: make(map[string][]entity.Withdrawal, len(s.withdrawals)),
		nextID:      s.nextID,
	}
	if s.config != nil {
		config := *s.config
		config.Tiers = slices.Clone(s.config.Tiers)
		c.config = &config
	}
	for addr, queue := range s.withdrawals {
		c.withdrawals[addr] = slices.Clone(queue)
	}
	return c
}

type Repository struct {
	store *memstore.Store[*state]
	tx    *memstore.Tx[*state]
}

func NewRepository() *Repository {
	return &Repository{
		store: memstore.New(&state{
			stakes:      make(map[string]entity.Stake),
			withdrawals: make(map[string][]entity.Withdrawal),
			nextID:      1,
		}),
	}
}

func (r *Repository) BeginTierTx(_ context.Context) (datagateway.TierDataGatewayWithTx, error) {
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
			return errors.Wrap(errs.NotFound, "tier ledger is not initialized")
		}
		dup := *s.config
		dup.Tiers = slices.Clone(s.config.Tiers)
		config = &dup
		return nil
	})
	return config, errors.WithStack(err)
}

func (r *Repository) GetStake(_ context.Context, address string) (*entity.Stake, error) {
	var stake *entity.Stake
	err := r.read(func(s *state) error {
		found, ok := s.stakes[address]
		if !ok {
			return errors.Wrapf(errs.NotFound, "stake of %s", address)
		}
		stake = &found
		return nil
	})
	return stake, errors.WithStack(err)
}

func (r *Repository) GetWithdrawals(_ context.Context, arg datagateway.GetWithdrawalsParams) ([]*entity.Withdrawal, error) {
	var result []*entity.Withdrawal
	err := r.read(func(s *state) error {
		queue := s.withdrawals[arg.Address]
		if arg.Offset >= uint64(len(queue)) {
			return nil
		}
		end := arg.Offset + min(arg.Limit, uint64(len(queue))-arg.Offset)
		result = lo.Map(queue[arg.Offset:end], func(w entity.Withdrawal, _ int) *entity.Withdrawal {
			return &w
		})
		return nil
	})
	return result, errors.WithStack(err)
}

func (r *Repository) CountWithdrawals(_ context.Context, address string) (uint64, error) {
	var count uint64
	err := r.read(func(s *state) error {
		count = uint64(len(s.withdrawals[address]))
		return nil
	})
	return count, errors.WithStack(err)
}

func (r *Repository) SaveConfig(_ context.Context, config entity.Config) error {
	return errors.WithStack(r.write(func(s *state) error {
		config.Tiers = slices.Clone(config.Tiers)
		s.config = &config
		return nil
	}))
}

func (r *Repository) SaveStake(_ context.Context, stake entity.Stake) error {
	return errors.WithStack(r.write(func(s *state) error {
		s.stakes[stake.Address] = stake
		return nil
	}))
}

func (r *Repository) DeleteStake(_ context.Context, address string) error {
	return errors.WithStack(r.write(func(s *state) error {
		delete(s.stakes, address)
		return nil
	}))
}

func (r *Repository) CreateWithdrawal(_ context.Context, arg datagateway.CreateWithdrawalParams) (uint64, error) {
	var id uint64
	err := r.write(func(s *state) error {
		id = s.nextID
		s.nextID++
		s.withdrawals[arg.Address] = append(s.withdrawals[arg.Address], entity.Withdrawal{
			ID:          id,
			Address:     arg.Address,
			Amount:      arg.Amount,
			RequestedAt: arg.RequestedAt,
			ClaimableAt: arg.ClaimableAt,
		})
		return nil
	})
	return id, errors.WithStack(err)
}

func (r *Repository) DeleteWithdrawals(_ context.Context, address string, ids []uint64) error {
	return errors.WithStack(r.write(func(s *state) error {
		remaining := lo.Reject(s.withdrawals[address], func(w entity.Withdrawal, _ int) bool {
			return slices.Contains(ids, w.ID)
		})
		if len(remaining) == 0 {
			delete(s.withdrawals, address)
			return nil
		}
		s.withdrawals[address] = remaining
		return nil
	}))
}
