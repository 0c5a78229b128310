package decimals

import (
	"testing"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeToUSD(t *testing.T) {
	rate := utils.Must(RateFromDecimal(MustFromString("0.5")))

	usd, err := NativeToUSD(uint128.From64(1000), rate)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(500), usd)

	usd, err = NativeToUSD(uint128.From64(3), rate)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(1), usd, "rounds down")
}

func TestUSDToNative(t *testing.T) {
	type testcase struct {
		name     string
		usd      uint64
		rate     string
		expected uint64
	}
	testcases := []testcase{
		{name: "exact", usd: 500, rate: "0.5", expected: 1000},
		{name: "rounds up", usd: 100, rate: "3", expected: 34},
		{name: "unit rate", usd: 7, rate: "1", expected: 7},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			rate := utils.Must(RateFromDecimal(MustFromString(tc.rate)))
			native, err := USDToNative(uint128.From64(tc.usd), rate)
			require.NoError(t, err)
			assert.Equal(t, uint128.From64(tc.expected), native)

			// the native amount is always worth at least the requested USD
			back, err := NativeToUSD(native, rate)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, back.Cmp(uint128.From64(tc.usd)), 0)
		})
	}
}

func TestMulDivOverflow(t *testing.T) {
	_, err := MulDiv(uint128.Max, uint128.From64(2), uint128.From64(1), false)
	assert.True(t, errors.Is(err, errs.OverflowUint128))

	v, err := MulDiv(uint128.Max, uint128.From64(2), uint128.From64(2), false)
	require.NoError(t, err)
	assert.Equal(t, uint128.Max, v)

	_, err = MulDiv(uint128.From64(1), uint128.From64(1), uint128.Zero, false)
	assert.True(t, errors.Is(err, errs.InvalidArgument))
}

func TestRateRoundTrip(t *testing.T) {
	rate, err := RateFromDecimal(MustFromString("1.25"))
	require.NoError(t, err)
	assert.Equal(t, "1250000000000000000", rate.String())
	assert.Equal(t, "1.25", RateToDecimal(rate).String())

	_, err = ToUint128(MustFromString("-1"))
	assert.Error(t, err)
}
