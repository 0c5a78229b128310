// Package contracts defines the external collaborators the ledgers call into.
package contracts

import (
	"context"

	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/uint128"
)

// PriceOracle quotes the price of one base unit in quote units, scaled by 10^18.
type PriceOracle interface {
	Rate(ctx context.Context, base, quote string) (uint128.Uint128, error)
}

// Delegation is the stake an account delegates to one validator.
type Delegation struct {
	Delegator          string
	Validator          string
	Amount             types.Coin
	CanRedelegate      types.Coin
	AccumulatedRewards types.Coin
}

// Staking queries delegations.
type Staking interface {
	// Delegation returns the delegation of delegator to validator, or nil when none exists.
	Delegation(ctx context.Context, delegator, validator string) (*Delegation, error)
}

// TokenInfo describes a fungible token contract.
type TokenInfo struct {
	Contract string
	Name     string
	Symbol   string
	Decimals uint8
}

// FungibleToken reads fungible token contracts. Transfers are emitted as messages.
type FungibleToken interface {
	// Resolve fails with errs.NotFound for an unknown contract.
	Resolve(ctx context.Context, contract string) (*TokenInfo, error)
	BalanceOf(ctx context.Context, contract string, viewer Viewer) (uint128.Uint128, error)
}

// Viewer authenticates a private read on behalf of Address.
type Viewer struct {
	Address    string
	ViewingKey string
}

// Trait is a metadata attribute of a non-fungible token.
type Trait struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Metadata of a non-fungible token.
type Metadata struct {
	Attributes []Trait `json:"attributes"`
}

// NftMetadata is what a viewer can see of a non-fungible token's metadata.
// Private is nil unless the viewer is allowed to read it.
type NftMetadata struct {
	Public  *Metadata
	Private *Metadata
}

// NonFungibleToken reads non-fungible tokens. Both calls fail when the token
// doesn't exist or the viewing key doesn't authenticate viewer.
type NonFungibleToken interface {
	OwnerOf(ctx context.Context, contract, tokenID string, viewer Viewer) (string, error)
	MetadataOf(ctx context.Context, contract, tokenID string, viewer Viewer) (*NftMetadata, error)
}

// Dispatcher executes the messages emitted by a call. Either every message is applied or none is.
type Dispatcher interface {
	Dispatch(ctx context.Context, msgs ...Msg) error
}

// Chain is every collaborator backed by one ledger of balances.
type Chain interface {
	Staking
	FungibleToken
	NonFungibleToken
	Dispatcher
}
