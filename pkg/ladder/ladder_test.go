package ladder

import (
	"testing"

	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amounts(values ...uint64) []uint128.Uint128 {
	return lo.Map(values, func(v uint64, _ int) uint128.Uint128 { return uint128.From64(v) })
}

func TestThresholdsTierFor(t *testing.T) {
	thresholds := Thresholds(amounts(1000, 500, 200, 100))
	require.NoError(t, thresholds.Validate())
	assert.EqualValues(t, 5, thresholds.MinTier())

	type testcase struct {
		value    uint64
		expected uint8
	}
	testcases := []testcase{
		{value: 0, expected: 0},
		{value: 99, expected: 0},
		{value: 100, expected: 4},
		{value: 199, expected: 4},
		{value: 200, expected: 3},
		{value: 500, expected: 2},
		{value: 999, expected: 2},
		{value: 1000, expected: 1},
		{value: 5000, expected: 1},
	}
	for _, tc := range testcases {
		assert.Equal(t, tc.expected, thresholds.TierFor(uint128.From64(tc.value)), "value %d", tc.value)
	}
}

func TestThresholdsValidate(t *testing.T) {
	assert.Error(t, Thresholds(nil).Validate())
	assert.Error(t, Thresholds(amounts(100, 100)).Validate())
	assert.Error(t, Thresholds(amounts(100, 200)).Validate())
	assert.Error(t, Thresholds(amounts(100, 0)).Validate())

	_, err := Thresholds(amounts(100)).Of(2)
	assert.Error(t, err)
}

func TestLadderCap(t *testing.T) {
	l, err := New(amounts(1000, 2000, 3000, 5000, 10000))
	require.NoError(t, err)
	assert.EqualValues(t, 5, l.MinTier())

	expected := map[uint8]uint64{5: 1000, 4: 2000, 3: 3000, 2: 5000, 1: 10000}
	for tier, want := range expected {
		got, err := l.Cap(tier)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(want), got, "tier %d", tier)
	}
	assert.Equal(t, amounts(1000, 2000, 3000, 5000, 10000), l.Caps())

	_, err = l.Cap(0)
	assert.Error(t, err)
	_, err = l.Cap(6)
	assert.Error(t, err)
}

func TestLadderMonotonic(t *testing.T) {
	l, err := New(amounts(10, 11, 50, 51))
	require.NoError(t, err)
	for tier := uint8(1); tier < l.MinTier(); tier++ {
		better, err := l.Cap(tier)
		require.NoError(t, err)
		worse, err := l.Cap(tier + 1)
		require.NoError(t, err)
		assert.Equal(t, 1, better.Cmp(worse), "tier %d must allow more than tier %d", tier, tier+1)
	}
}

func TestNewLadderInvalid(t *testing.T) {
	_, err := New(amounts(1000))
	assert.Error(t, err)
	_, err = New(amounts(1000, 1000))
	assert.Error(t, err)
	_, err = New(amounts(2000, 1000))
	assert.Error(t, err)
	_, err = New(amounts(0, 1000))
	assert.Error(t, err)
}

func TestIndex(t *testing.T) {
	idx, err := Index(5, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = Index(1, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, idx)
}
