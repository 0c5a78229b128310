package simulated

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/uint128"
)

func (c *Chain) Delegation(_ context.Context, delegator, validator string) (*contracts.Delegation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d := c.state.delegation(delegator, validator, false)
	if d == nil || d.amount.IsZero() {
		return nil, nil
	}
	return &contracts.Delegation{
		Delegator:          delegator,
		Validator:          validator,
		Amount:             types.NewCoin(c.bondDenom, d.amount),
		CanRedelegate:      types.NewCoin(c.bondDenom, d.amount.Sub(d.redelegated)),
		AccumulatedRewards: types.NewCoin(c.bondDenom, d.rewards),
	}, nil
}

func (c *Chain) Resolve(_ context.Context, contract string) (*contracts.TokenInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, err := c.state.token(contract)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	info := t.info
	return &info, nil
}

func (c *Chain) BalanceOf(_ context.Context, contract string, viewer contracts.Viewer) (uint128.Uint128, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, err := c.state.token(contract)
	if err != nil {
		return uint128.Zero, errors.WithStack(err)
	}
	if err := c.state.authenticate(contract, viewer); err != nil {
		return uint128.Zero, errors.WithStack(err)
	}
	return t.balances[viewer.Address], nil
}

func (c *Chain) OwnerOf(_ context.Context, contract, tokenID string, viewer contracts.Viewer) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, err := c.nft(contract, tokenID, viewer)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return item.owner, nil
}

func (c *Chain) MetadataOf(_ context.Context, contract, tokenID string, viewer contracts.Viewer) (*contracts.NftMetadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, err := c.nft(contract, tokenID, viewer)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	metadata := &contracts.NftMetadata{Public: item.public}
	if viewer.Address == item.owner {
		metadata.Private = item.private
	}
	return metadata, nil
}

func (c *Chain) nft(contract, tokenID string, viewer contracts.Viewer) (*nft, error) {
	item, ok := c.state.nfts[contract][tokenID]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "token %q on %s", tokenID, contract)
	}
	if err := c.state.authenticate(contract, viewer); err != nil {
		return nil, errors.WithStack(err)
	}
	return item, nil
}

// Balance returns the native balance of address.
func (c *Chain) Balance(address, denom string) uint128.Uint128 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.balances[address][denom]
}

// TokenBalance returns the fungible token balance of address without authentication.
func (c *Chain) TokenBalance(contract, address string) uint128.Uint128 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.state.tokens[contract]
	if !ok {
		return uint128.Zero
	}
	return t.balances[address]
}
