package simulated

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/uint128"
)

// Config seeds a chain at startup.
type Config struct {
	BondDenom string          `mapstructure:"bond_denom"`
	Accounts  []AccountConfig `mapstructure:"accounts"`
	Tokens    []TokenConfig   `mapstructure:"tokens"`
	Nfts      []NftConfig     `mapstructure:"nfts"`
}

type AccountConfig struct {
	Address string   `mapstructure:"address"`
	Coins   []string `mapstructure:"coins"` // e.g. "1000000uscrt"
}

type TokenConfig struct {
	Contract    string            `mapstructure:"contract"`
	Name        string            `mapstructure:"name"`
	Symbol      string            `mapstructure:"symbol"`
	Decimals    uint8             `mapstructure:"decimals"`
	Balances    map[string]string `mapstructure:"balances"`
	ViewingKeys map[string]string `mapstructure:"viewing_keys"`
}

type NftConfig struct {
	Contract    string            `mapstructure:"contract"`
	TokenID     string            `mapstructure:"token_id"`
	Owner       string            `mapstructure:"owner"`
	Public      map[string]string `mapstructure:"public"`
	Private     map[string]string `mapstructure:"private"`
	ViewingKeys map[string]string `mapstructure:"viewing_keys"`
}

// NewFromConfig creates a chain seeded with the configured accounts and contracts.
func NewFromConfig(cfg Config) (*Chain, error) {
	chain := New(cfg.BondDenom)
	for _, account := range cfg.Accounts {
		for _, raw := range account.Coins {
			coin, err := types.ParseCoin(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "account %s", account.Address)
			}
			chain.Fund(account.Address, coin)
		}
	}
	for _, t := range cfg.Tokens {
		if err := chain.RegisterToken(contracts.TokenInfo{
			Contract: t.Contract,
			Name:     t.Name,
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
		}); err != nil {
			return nil, errors.WithStack(err)
		}
		for address, raw := range t.Balances {
			amount, err := uint128.FromString(raw)
			if err != nil {
				return nil, errors.Wrapf(errs.InvalidArgument, "balance %q of %s on %s", raw, address, t.Contract)
			}
			if err := chain.MintToken(t.Contract, address, amount); err != nil {
				return nil, errors.WithStack(err)
			}
		}
		for address, key := range t.ViewingKeys {
			chain.SetViewingKey(t.Contract, address, key)
		}
	}
	for _, n := range cfg.Nfts {
		if err := chain.MintNft(n.Contract, n.TokenID, n.Owner, metadataOf(n.Public), metadataOf(n.Private)); err != nil {
			return nil, errors.WithStack(err)
		}
		for address, key := range n.ViewingKeys {
			chain.SetViewingKey(n.Contract, address, key)
		}
	}
	return chain, nil
}

func metadataOf(attrs map[string]string) *contracts.Metadata {
	if len(attrs) == 0 {
		return nil
	}
	metadata := &contracts.Metadata{}
	for traitType, value := range attrs {
		metadata.Attributes = append(metadata.Attributes, contracts.Trait{TraitType: traitType, Value: value})
	}
	return metadata
}
