package postgres

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/gaze-network/uint128"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint128FromNumeric(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		numeric := pgtype.Numeric{}
		require.NoError(t, numeric.ScanInt64(pgtype.Int8{
			Int64: 1000,
			Valid: true,
		}))

		expected := uint128.From64(1000)

		result, err := Uint128FromNumeric(numeric)
		assert.NoError(t, err)
		assert.Equal(t, &expected, result)
	})
	t.Run("positive exponent", func(t *testing.T) {
		// 10000 is read back from postgres as one digit group with an exponent
		numeric := pgtype.Numeric{Int: big.NewInt(1), Exp: 4, Valid: true}

		expected := uint128.From64(10000)

		result, err := Uint128FromNumeric(numeric)
		assert.NoError(t, err)
		assert.Equal(t, &expected, result)
	})
	t.Run("nil", func(t *testing.T) {
		numeric := pgtype.Numeric{}
		require.NoError(t, numeric.ScanInt64(pgtype.Int8{
			Valid: false,
		}))

		result, err := Uint128FromNumeric(numeric)
		assert.NoError(t, err)
		assert.Nil(t, result)
	})
}

func TestNumericFromUint128(t *testing.T) {
	t.Run("normal", func(t *testing.T) {
		u128 := uint128.From64(1)

		expected := pgtype.Numeric{}
		require.NoError(t, expected.ScanInt64(pgtype.Int8{
			Int64: 1,
			Valid: true,
		}))

		result, err := NumericFromUint128(&u128)
		assert.NoError(t, err)
		assert.Equal(t, expected, result)
	})
	t.Run("nil", func(t *testing.T) {
		result, err := NumericFromUint128(nil)
		assert.NoError(t, err)
		assert.False(t, result.Valid)
	})
	t.Run("round trip", func(t *testing.T) {
		for _, u128 := range []uint128.Uint128{
			uint128.Zero,
			uint128.From64(10000),
			uint128.From64(1_000_000_000_000_000_000),
			uint128.Max,
		} {
			numeric, err := NumericFromUint128(&u128)
			require.NoError(t, err)
			require.True(t, numeric.Valid)

			result, err := Uint128FromNumeric(numeric)
			require.NoError(t, err)
			assert.Equal(t, u128, *result, u128.String())
		}
	})
}

func TestTimestamptz(t *testing.T) {
	assert.False(t, Timestamptz(time.Time{}).Valid)
	assert.True(t, TimeFromTimestamptz(pgtype.Timestamptz{}).IsZero())

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("UTC+7", 7*60*60))
	ts := Timestamptz(at)
	assert.True(t, ts.Valid)
	assert.Equal(t, time.UTC, ts.Time.Location())
	assert.True(t, at.Equal(TimeFromTimestamptz(ts)))
}

func TestClampInt64(t *testing.T) {
	assert.Equal(t, int64(0), ClampInt64(0))
	assert.Equal(t, int64(50), ClampInt64(50))
	assert.Equal(t, int64(math.MaxInt64), ClampInt64(math.MaxInt64))
	assert.Equal(t, int64(math.MaxInt64), ClampInt64(math.MaxUint64))
}
