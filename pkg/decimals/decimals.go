package decimals

import (
	"math/big"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/uint128"
	"github.com/shopspring/decimal"
)

const (
	DefaultDivPrecision = 36

	// RateDecimals is the fixed point precision of oracle rates.
	RateDecimals = 18
)

// OneUSD is one unit of a rate, 10^18.
var OneUSD = uint128.From64(1_000_000_000_000_000_000)

func init() {
	decimal.DivisionPrecision = DefaultDivPrecision
}

// MustFromString convert string to decimal.Decimal. Panic if error
// string must be a valid number, not NaN, Inf or empty string.
func MustFromString(s string) decimal.Decimal {
	return utils.Must(decimal.NewFromString(s))
}

// FromUint128 converts an integer amount to decimal.Decimal.
func FromUint128(v uint128.Uint128) decimal.Decimal {
	return decimal.NewFromBigInt(v.Big(), 0)
}

// ToUint128 converts the integer part of d. Fails for negative values and values above 2^128-1.
func ToUint128(d decimal.Decimal) (uint128.Uint128, error) {
	if d.IsNegative() {
		return uint128.Zero, errors.Wrapf(errs.InvalidArgument, "negative amount %s", d)
	}
	v, err := uint128.FromBig(d.Floor().BigInt())
	if err != nil {
		return uint128.Zero, errors.Wrapf(errs.OverflowUint128, "amount %s", d)
	}
	return v, nil
}

// MulDiv returns floor(a*b/c), or the ceiling when roundUp is set. The product is computed without overflow.
func MulDiv(a, b, c uint128.Uint128, roundUp bool) (uint128.Uint128, error) {
	if c.IsZero() {
		return uint128.Zero, errors.Wrap(errs.InvalidArgument, "division by zero")
	}
	num := new(big.Int).Mul(a.Big(), b.Big())
	quo, rem := new(big.Int).QuoRem(num, c.Big(), new(big.Int))
	if roundUp && rem.Sign() > 0 {
		quo.Add(quo, big.NewInt(1))
	}
	v, err := uint128.FromBig(quo)
	if err != nil {
		return uint128.Zero, errors.Wrapf(errs.OverflowUint128, "%s * %s / %s", a, b, c)
	}
	return v, nil
}

// NativeToUSD converts a native amount into USD at rate (USD per native unit, scaled by OneUSD).
func NativeToUSD(native, rate uint128.Uint128) (uint128.Uint128, error) {
	return MulDiv(native, rate, OneUSD, false)
}

// USDToNative converts a USD amount into the native amount needed to be worth at least usd.
func USDToNative(usd, rate uint128.Uint128) (uint128.Uint128, error) {
	return MulDiv(usd, OneUSD, rate, true)
}

// RateFromDecimal scales a human readable rate such as "0.52" to fixed point.
func RateFromDecimal(rate decimal.Decimal) (uint128.Uint128, error) {
	return ToUint128(rate.Shift(RateDecimals))
}

// RateToDecimal is the inverse of RateFromDecimal.
func RateToDecimal(rate uint128.Uint128) decimal.Decimal {
	return FromUint128(rate).Shift(-RateDecimals)
}
