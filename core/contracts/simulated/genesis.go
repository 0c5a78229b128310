package simulated

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/uint128"
)

// Fund mints coins to address.
func (c *Chain) Fund(address string, coins ...types.Coin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, coin := range coins {
		c.state.credit(address, coin)
	}
}

// AccrueRewards adds staking rewards to an existing delegation.
func (c *Chain) AccrueRewards(delegator, validator string, amount uint128.Uint128) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.state.delegation(delegator, validator, false)
	if d == nil {
		return errors.Wrapf(errs.NotFound, "no delegation of %s to %s", delegator, validator)
	}
	d.rewards = d.rewards.Add(amount)
	return nil
}

// MatureRedelegations lets every redelegated amount move again.
func (c *Chain) MatureRedelegations() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.state.delegations {
		d.redelegated = uint128.Zero
	}
}

// RegisterToken creates a fungible token contract.
func (c *Chain) RegisterToken(info contracts.TokenInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if info.Contract == "" {
		return errors.Wrap(errs.InvalidArgument, "empty token contract")
	}
	if _, ok := c.state.tokens[info.Contract]; ok {
		return errors.Wrapf(errs.InvalidArgument, "token contract %q already exists", info.Contract)
	}
	c.state.tokens[info.Contract] = &token{
		info:       info,
		balances:   make(map[string]uint128.Uint128),
		allowances: make(map[allowanceKey]uint128.Uint128),
	}
	return nil
}

// MintToken mints fungible tokens of a registered contract.
func (c *Chain) MintToken(contract, address string, amount uint128.Uint128) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.state.token(contract)
	if err != nil {
		return errors.WithStack(err)
	}
	t.balances[address] = t.balances[address].Add(amount)
	return nil
}

// IncreaseAllowance lets spender move amount more of owner's tokens.
func (c *Chain) IncreaseAllowance(contract, owner, spender string, amount uint128.Uint128) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.state.token(contract)
	if err != nil {
		return errors.WithStack(err)
	}
	key := allowanceKey{owner: owner, spender: spender}
	t.allowances[key] = t.allowances[key].Add(amount)
	return nil
}

// MintNft creates a non-fungible token.
func (c *Chain) MintNft(contract, tokenID, owner string, public, private *contracts.Metadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.nfts[contract] == nil {
		c.state.nfts[contract] = make(map[string]*nft)
	}
	if _, ok := c.state.nfts[contract][tokenID]; ok {
		return errors.Wrapf(errs.InvalidArgument, "token %q on %s already exists", tokenID, contract)
	}
	c.state.nfts[contract][tokenID] = &nft{owner: owner, public: public, private: private}
	return nil
}

// SetViewingKey sets the key address authenticates with on contract.
func (c *Chain) SetViewingKey(contract, address, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.viewingKeys[contract] == nil {
		c.state.viewingKeys[contract] = make(map[string]string)
	}
	c.state.viewingKeys[contract][address] = key
}
