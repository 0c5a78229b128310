package types

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/uint128"
)

// Coin is an amount of a native denomination.
type Coin struct {
	Denom  string          `json:"denom"`
	Amount uint128.Uint128 `json:"amount"`
}

func NewCoin(denom string, amount uint128.Uint128) Coin {
	return Coin{Denom: denom, Amount: amount}
}

func (c Coin) String() string {
	return fmt.Sprintf("%s%s", c.Amount, c.Denom)
}

// Coins is a list of coins attached to a call.
type Coins []Coin

// AmountOf sums the coins of denom. Coins of any other denomination fail with errs.UnsupportedDenom.
func (c Coins) AmountOf(denom string) (uint128.Uint128, error) {
	total := uint128.Zero
	for _, coin := range c {
		if coin.Denom != denom {
			return uint128.Zero, errors.Wrapf(errs.UnsupportedDenom, "unsupported token %q, expected %q", coin.Denom, denom)
		}
		var overflow bool
		total, overflow = total.AddOverflow(coin.Amount)
		if overflow {
			return uint128.Zero, errors.WithStack(errs.OverflowUint128)
		}
	}
	return total, nil
}

// IsZero reports whether no value is attached.
func (c Coins) IsZero() bool {
	for _, coin := range c {
		if !coin.Amount.IsZero() {
			return false
		}
	}
	return true
}

// ParseCoin parses a coin such as "1000uscrt".
func ParseCoin(s string) (Coin, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if i <= 0 || i == len(s) {
		return Coin{}, errors.Wrapf(errs.InvalidArgument, "invalid coin %q", s)
	}
	amount, err := uint128.FromString(s[:i])
	if err != nil {
		return Coin{}, errors.Wrapf(errs.InvalidArgument, "invalid coin amount %q", s)
	}
	return NewCoin(s[i:], amount), nil
}

// ParseCoins parses a list of coins, skipping empty entries.
func ParseCoins(coins []string) (Coins, error) {
	parsed := make(Coins, 0, len(coins))
	for _, s := range coins {
		if strings.TrimSpace(s) == "" {
			continue
		}
		coin, err := ParseCoin(s)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		parsed = append(parsed, coin)
	}
	return parsed, nil
}
