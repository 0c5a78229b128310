// Package simulated provides an in-memory chain that implements every collaborator in package contracts.
package simulated

import (
	"context"
	"sync"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
)

const DefaultBondDenom = "uscrt"

var _ contracts.Chain = (*Chain)(nil)

// Chain is an in-memory ledger of bank balances, delegations, fungible and non-fungible tokens.
// Dispatch applies every message or none of them.
type Chain struct {
	bondDenom string

	mu    sync.RWMutex
	state *state
}

type delegationKey struct {
	delegator string
	validator string
}

type delegation struct {
	amount uint128.Uint128
	// redelegated is the part received through a redelegation that can't move again until it matures.
	redelegated uint128.Uint128
	rewards     uint128.Uint128
}

type token struct {
	info       contracts.TokenInfo
	balances   map[string]uint128.Uint128
	allowances map[allowanceKey]uint128.Uint128
}

type allowanceKey struct {
	owner   string
	spender string
}

type nft struct {
	owner   string
	public  *contracts.Metadata
	private *contracts.Metadata
}

type state struct {
	balances    map[string]map[string]uint128.Uint128 // address -> denom -> amount
	delegations map[delegationKey]*delegation
	tokens      map[string]*token
	nfts        map[string]map[string]*nft    // contract -> token id
	viewingKeys map[string]map[string]string // contract -> address -> key
}

func newState() *state {
	return &state{
		balances:    make(map[string]map[string]uint128.Uint128),
		delegations: make(map[delegationKey]*delegation),
		tokens:      make(map[string]*token),
		nfts:        make(map[string]map[string]*nft),
		viewingKeys: make(map[string]map[string]string),
	}
}

func (s *state) clone() *state {
	c := newState()
	for addr, coins := range s.balances {
		c.balances[addr] = lo.Assign(coins)
	}
	for k, d := range s.delegations {
		dup := *d
		c.delegations[k] = &dup
	}
	for contract, t := range s.tokens {
		c.tokens[contract] = &token{
			info:       t.info,
			balances:   lo.Assign(t.balances),
			allowances: lo.Assign(t.allowances),
		}
	}
	for contract, items := range s.nfts {
		c.nfts[contract] = make(map[string]*nft, len(items))
		for id, item := range items {
			dup := *item
			c.nfts[contract][id] = &dup
		}
	}
	for contract, keys := range s.viewingKeys {
		c.viewingKeys[contract] = lo.Assign(keys)
	}
	return c
}

func New(bondDenom string) *Chain {
	return &Chain{
		bondDenom: utils.Default(bondDenom, DefaultBondDenom),
		state:     newState(),
	}
}

func (c *Chain) BondDenom() string {
	return c.bondDenom
}

func (c *Chain) Dispatch(ctx context.Context, msgs ...contracts.Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.clone()
	for _, msg := range msgs {
		if err := c.apply(next, msg); err != nil {
			return errors.Wrapf(err, "can't execute %s", msg)
		}
		logger.DebugContext(ctx, "Executed message", slogx.Stringer("msg", msg))
	}
	c.state = next
	return nil
}

func (c *Chain) apply(s *state, msg contracts.Msg) error {
	switch m := msg.(type) {
	case contracts.BankSend:
		for _, coin := range m.Coins {
			if err := s.debit(m.From, coin); err != nil {
				return errors.WithStack(err)
			}
			s.credit(m.To, coin)
		}
		return nil
	case contracts.Delegate:
		if err := c.assertBondDenom(m.Amount); err != nil {
			return errors.WithStack(err)
		}
		if err := s.debit(m.Delegator, m.Amount); err != nil {
			return errors.WithStack(err)
		}
		d := s.delegation(m.Delegator, m.Validator, true)
		d.amount = d.amount.Add(m.Amount.Amount)
		return nil
	case contracts.Undelegate:
		if err := c.assertBondDenom(m.Amount); err != nil {
			return errors.WithStack(err)
		}
		d := s.delegation(m.Delegator, m.Validator, false)
		if d == nil || d.amount.Cmp(m.Amount.Amount) < 0 {
			return errors.Wrapf(errs.InvalidArgument, "delegation of %s to %s is less than %s", m.Delegator, m.Validator, m.Amount)
		}
		d.amount = d.amount.Sub(m.Amount.Amount)
		if d.redelegated.Cmp(d.amount) > 0 {
			d.redelegated = d.amount
		}
		s.credit(m.Delegator, m.Amount)
		s.prune(m.Delegator, m.Validator)
		return nil
	case contracts.Redelegate:
		if err := c.assertBondDenom(m.Amount); err != nil {
			return errors.WithStack(err)
		}
		src := s.delegation(m.Delegator, m.SrcValidator, false)
		if src == nil {
			return errors.Wrapf(errs.NotFound, "no delegation of %s to %s", m.Delegator, m.SrcValidator)
		}
		if src.amount.Sub(src.redelegated).Cmp(m.Amount.Amount) < 0 {
			return errors.Wrapf(errs.InvalidArgument, "can't redelegate %s from %s", m.Amount, m.SrcValidator)
		}
		src.amount = src.amount.Sub(m.Amount.Amount)
		dst := s.delegation(m.Delegator, m.DstValidator, true)
		dst.amount = dst.amount.Add(m.Amount.Amount)
		dst.redelegated = dst.redelegated.Add(m.Amount.Amount)
		s.prune(m.Delegator, m.SrcValidator)
		return nil
	case contracts.WithdrawRewards:
		d := s.delegation(m.Delegator, m.Validator, false)
		if d == nil {
			return errors.Wrapf(errs.NotFound, "no delegation of %s to %s", m.Delegator, m.Validator)
		}
		if !d.rewards.IsZero() {
			s.credit(utils.Default(m.Recipient, m.Delegator), types.NewCoin(c.bondDenom, d.rewards))
			d.rewards = uint128.Zero
		}
		s.prune(m.Delegator, m.Validator)
		return nil
	case contracts.TokenTransfer:
		t, err := s.token(m.Contract)
		if err != nil {
			return errors.WithStack(err)
		}
		return errors.WithStack(t.move(m.From, m.Recipient, m.Amount))
	case contracts.TokenTransferFrom:
		t, err := s.token(m.Contract)
		if err != nil {
			return errors.WithStack(err)
		}
		key := allowanceKey{owner: m.Owner, spender: m.Spender}
		if m.Owner != m.Spender {
			allowance := t.allowances[key]
			if allowance.Cmp(m.Amount) < 0 {
				return errors.Wrapf(errs.InvalidArgument, "insufficient allowance: %s of %s granted to %s, need %s", allowance, m.Owner, m.Spender, m.Amount)
			}
			t.allowances[key] = allowance.Sub(m.Amount)
		}
		return errors.WithStack(t.move(m.Owner, m.Recipient, m.Amount))
	default:
		return errors.Wrapf(errs.Unsupported, "message %T", msg)
	}
}

func (c *Chain) assertBondDenom(coin types.Coin) error {
	if coin.Denom != c.bondDenom {
		return errors.Wrapf(errs.UnsupportedDenom, "can't stake %q, bond denom is %q", coin.Denom, c.bondDenom)
	}
	return nil
}

func (s *state) debit(address string, coin types.Coin) error {
	if coin.Amount.IsZero() {
		return nil
	}
	balance := s.balances[address][coin.Denom]
	if balance.Cmp(coin.Amount) < 0 {
		return errors.Wrapf(errs.InvalidArgument, "insufficient funds: %s has %s%s, need %s", address, balance, coin.Denom, coin)
	}
	s.balances[address][coin.Denom] = balance.Sub(coin.Amount)
	return nil
}

func (s *state) credit(address string, coin types.Coin) {
	if coin.Amount.IsZero() {
		return
	}
	if s.balances[address] == nil {
		s.balances[address] = make(map[string]uint128.Uint128)
	}
	s.balances[address][coin.Denom] = s.balances[address][coin.Denom].Add(coin.Amount)
}

func (s *state) delegation(delegator, validator string, create bool) *delegation {
	key := delegationKey{delegator: delegator, validator: validator}
	d, ok := s.delegations[key]
	if !ok && create {
		d = &delegation{}
		s.delegations[key] = d
	}
	return d
}

func (s *state) prune(delegator, validator string) {
	key := delegationKey{delegator: delegator, validator: validator}
	if d, ok := s.delegations[key]; ok && d.amount.IsZero() && d.rewards.IsZero() {
		delete(s.delegations, key)
	}
}

func (s *state) token(contract string) (*token, error) {
	t, ok := s.tokens[contract]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "token contract %q", contract)
	}
	return t, nil
}

func (s *state) authenticate(contract string, viewer contracts.Viewer) error {
	key, ok := s.viewingKeys[contract][viewer.Address]
	if !ok || key == "" || key != viewer.ViewingKey {
		return errors.Wrapf(errs.Unauthorized, "wrong viewing key for %s on %s", viewer.Address, contract)
	}
	return nil
}

func (t *token) move(from, to string, amount uint128.Uint128) error {
	balance := t.balances[from]
	if balance.Cmp(amount) < 0 {
		return errors.Wrapf(errs.InvalidArgument, "insufficient %s balance: %s has %s, need %s", t.info.Symbol, from, balance, amount)
	}
	t.balances[from] = balance.Sub(amount)
	t.balances[to] = t.balances[to].Add(amount)
	return nil
}
