package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/contracts/mocks"
	"github.com/gaze-network/ido-ledger/core/contracts/simulated"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/gaze-network/ido-ledger/modules/tier/repository/memory"
	"github.com/gaze-network/ido-ledger/pkg/decimals"
	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	ledgerAddress = "ledger"
	adminAddress  = "admin"
	alice         = "alice"
	bob           = "bob"
	validator1    = "validator1"
	validator2    = "validator2"
)

var genesis = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func testTiers() []entity.Tier {
	return []entity.Tier{
		{Deposit: uint128.From64(1000), LockPeriod: 30 * time.Second},
		{Deposit: uint128.From64(500), LockPeriod: 40 * time.Second},
		{Deposit: uint128.From64(200), LockPeriod: 50 * time.Second},
		{Deposit: uint128.From64(100), LockPeriod: 60 * time.Second},
	}
}

type fixture struct {
	ledger *Usecase
	chain  *simulated.Chain
}

func newFixture(t *testing.T, oracle contracts.PriceOracle, params InitParams) *fixture {
	t.Helper()
	chain := simulated.New("")
	chain.Fund(alice, uscrt(10_000))
	chain.Fund(bob, uscrt(10_000))

	params.Admin = adminAddress
	if params.Variant != entity.VariantFlat {
		params.Validator = validator1
	}
	if params.Tiers == nil {
		params.Tiers = testTiers()
	}

	ledger := New(memory.NewRepository(), oracle, chain, Options{Address: ledgerAddress})
	_, err := ledger.Init(context.Background(), params)
	require.NoError(t, err)
	return &fixture{ledger: ledger, chain: chain}
}

// oneToOne prices one native unit at one USD.
func oneToOne() contracts.PriceOracle {
	return contracts.StaticOracle{Value: decimals.OneUSD}
}

func uscrt(amount uint64) types.Coin {
	return types.NewCoin(simulated.DefaultBondDenom, uint128.From64(amount))
}

func env(sender string, at time.Time, funds ...types.Coin) types.Env {
	return types.Env{Sender: sender, BlockTime: at, Funds: funds}
}

func (f *fixture) delegated(t *testing.T, validator string) uint128.Uint128 {
	t.Helper()
	d, err := f.chain.Delegation(context.Background(), ledgerAddress, validator)
	require.NoError(t, err)
	if d == nil {
		return uint128.Zero
	}
	return d.Amount.Amount
}

func TestDepositRaisesTier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneToOne(), InitParams{})

	result, err := f.ledger.Deposit(ctx, env(alice, genesis, uscrt(100)))
	require.NoError(t, err)
	assert.Equal(t, uint8(4), result.Tier)
	assert.Equal(t, uint128.From64(100), result.Deposit)

	at := genesis.Add(10 * time.Second)
	result, err = f.ledger.Deposit(ctx, env(alice, at, uscrt(400)))
	require.NoError(t, err)
	assert.Equal(t, uint8(2), result.Tier)
	assert.Equal(t, uint128.From64(500), result.Deposit)
	assert.Equal(t, uint128.From64(500), result.NativeDeposit)

	info, err := f.ledger.UserInfo(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, info.Stake)
	assert.Equal(t, uint8(2), info.Tier)
	assert.Equal(t, at, info.Stake.DepositedAt)
	assert.Equal(t, at.Add(40*time.Second), info.Stake.WithdrawableAt)

	assert.Equal(t, uint128.From64(500), f.delegated(t, validator1))
	assert.Equal(t, uint128.From64(9_500), f.chain.Balance(alice, simulated.DefaultBondDenom))
}

func TestDepositValuesCollateralInUSD(t *testing.T) {
	ctx := context.Background()
	// half a USD per native unit
	rate, err := decimals.RateFromDecimal(decimals.MustFromString("0.5"))
	require.NoError(t, err)
	f := newFixture(t, contracts.StaticOracle{Value: rate}, InitParams{})

	_, err = f.ledger.Deposit(ctx, env(alice, genesis, uscrt(100)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.BelowMinimum))
	assert.Contains(t, err.Error(), "missing 50 USD, deposit at least 100uscrt")

	result, err := f.ledger.Deposit(ctx, env(alice, genesis, uscrt(400)))
	require.NoError(t, err)
	assert.Equal(t, uint8(3), result.Tier)
	assert.Equal(t, uint128.From64(200), result.Deposit)
	assert.Equal(t, uint128.From64(400), result.NativeDeposit)
}

func TestTierNeverDecreases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneToOne(), InitParams{})

	previous := uint8(0)
	for i, amount := range []uint64{100, 1, 50, 49, 150, 10, 300, 600} {
		result, err := f.ledger.Deposit(ctx, env(alice, genesis.Add(time.Duration(i)*time.Second), uscrt(amount)))
		require.NoError(t, err)
		if previous != 0 {
			assert.LessOrEqual(t, result.Tier, previous, "deposit %d of %d", i, amount)
		}
		previous = result.Tier
	}
	assert.Equal(t, uint8(1), previous)
}

func TestDepositRejections(t *testing.T) {
	ctx := context.Background()

	type testcase struct {
		name     string
		prepare  func(t *testing.T, f *fixture)
		env      types.Env
		expected error
	}
	testcases := []testcase{
		{
			name:     "unsupported denom",
			env:      env(alice, genesis, types.NewCoin("uatom", uint128.From64(100))),
			expected: errs.UnsupportedDenom,
		},
		{
			name:     "mixed denoms",
			env:      env(alice, genesis, uscrt(100), types.NewCoin("uatom", uint128.From64(100))),
			expected: errs.UnsupportedDenom,
		},
		{
			name: "stopped",
			prepare: func(t *testing.T, f *fixture) {
				require.NoError(t, f.ledger.ChangeStatus(ctx, env(adminAddress, genesis), types.StatusStopped))
			},
			env:      env(alice, genesis, uscrt(100)),
			expected: errs.ContractStopped,
		},
		{
			name:     "below the lowest threshold",
			env:      env(alice, genesis, uscrt(99)),
			expected: errs.BelowMinimum,
		},
		{
			name:     "nothing attached",
			env:      env(alice, genesis),
			expected: errs.BelowMinimum,
		},
		{
			name: "nothing attached with stake",
			prepare: func(t *testing.T, f *fixture) {
				_, err := f.ledger.Deposit(ctx, env(alice, genesis, uscrt(100)))
				require.NoError(t, err)
			},
			env:      env(alice, genesis),
			expected: errs.BelowMinimum,
		},
		{
			name: "already tier 1",
			prepare: func(t *testing.T, f *fixture) {
				_, err := f.ledger.Deposit(ctx, env(alice, genesis, uscrt(1000)))
				require.NoError(t, err)
			},
			env:      env(alice, genesis, uscrt(100)),
			expected: errs.ReachedMaxTier,
		},
		{
			name:     "missing sender",
			env:      env("", genesis, uscrt(100)),
			expected: errs.InvalidArgument,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, oneToOne(), InitParams{})
			if tc.prepare != nil {
				tc.prepare(t, f)
			}
			before, err := f.ledger.UserInfo(ctx, alice)
			require.NoError(t, err)
			balance := f.chain.Balance(alice, simulated.DefaultBondDenom)

			_, err = f.ledger.Deposit(ctx, tc.env)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.expected), "expected %v, got %v", tc.expected, err)

			after, err := f.ledger.UserInfo(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, before, after)
			assert.Equal(t, balance, f.chain.Balance(alice, simulated.DefaultBondDenom))
		})
	}
}

func TestDepositSaturation(t *testing.T) {
	ctx := context.Background()

	t.Run("saturate", func(t *testing.T) {
		f := newFixture(t, oneToOne(), InitParams{Saturation: entity.SaturationSaturate})
		result, err := f.ledger.Deposit(ctx, env(alice, genesis, uscrt(1500)))
		require.NoError(t, err)
		assert.Equal(t, uint8(1), result.Tier)
		assert.Equal(t, uint128.From64(1000), result.Deposit)
		assert.Equal(t, uint128.From64(1500), result.NativeDeposit)
		assert.True(t, result.Refund.IsZero())
		assert.Equal(t, uint128.From64(1500), f.delegated(t, validator1))
	})

	t.Run("reject", func(t *testing.T) {
		f := newFixture(t, oneToOne(), InitParams{Saturation: entity.SaturationReject})
		_, err := f.ledger.Deposit(ctx, env(alice, genesis, uscrt(1500)))
		assert.True(t, errors.Is(err, errs.ReachedMaxTier))

		result, err := f.ledger.Deposit(ctx, env(alice, genesis, uscrt(1000)))
		require.NoError(t, err)
		assert.Equal(t, uint8(1), result.Tier)
	})

	t.Run("refund", func(t *testing.T) {
		f := newFixture(t, oneToOne(), InitParams{Saturation: entity.SaturationRefund})
		result, err := f.ledger.Deposit(ctx, env(alice, genesis, uscrt(150)))
		require.NoError(t, err)
		assert.Equal(t, uint8(4), result.Tier)
		assert.Equal(t, uint128.From64(100), result.Deposit)
		assert.Equal(t, uint128.From64(100), result.NativeDeposit)
		assert.Equal(t, uint128.From64(50), result.Refund)
		assert.Equal(t, uint128.From64(9_900), f.chain.Balance(alice, simulated.DefaultBondDenom))
		assert.Equal(t, uint128.From64(100), f.delegated(t, validator1))

		// holding the tier is rejected
		_, err = f.ledger.Deposit(ctx, env(alice, genesis, uscrt(50)))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.BelowMinimum))
		assert.Contains(t, err.Error(), "for the next tier")

		result, err = f.ledger.Deposit(ctx, env(alice, genesis, uscrt(450)))
		require.NoError(t, err)
		assert.Equal(t, uint8(2), result.Tier)
		assert.Equal(t, uint128.From64(500), result.Deposit)
		assert.Equal(t, uint128.From64(50), result.Refund)
		assert.Equal(t, uint128.From64(500), result.NativeDeposit)
	})
}

func TestWithdrawAndClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneToOne(), InitParams{})

	_, err := f.ledger.Withdraw(ctx, env(alice, genesis))
	assert.True(t, errors.Is(err, errs.NotFound))

	_, err = f.ledger.Deposit(ctx, env(alice, genesis, uscrt(100)))
	require.NoError(t, err)

	_, err = f.ledger.Withdraw(ctx, env(alice, genesis.Add(59*time.Second)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.LockPeriodNotElapsed))
	assert.True(t, errs.IsRetryable(err))

	_, err = f.ledger.Withdraw(ctx, env(alice, genesis, uscrt(1)))
	assert.True(t, errors.Is(err, errs.InvalidArgument), "withdraw doesn't accept funds")

	at := genesis.Add(60 * time.Second)
	withdrawal, err := f.ledger.Withdraw(ctx, env(alice, at))
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(100), withdrawal.Amount)
	assert.Equal(t, at.Add(DefaultUnbondingPeriod), withdrawal.ClaimableAt)
	assert.True(t, f.delegated(t, validator1).IsZero())

	info, err := f.ledger.UserInfo(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, info.Stake)
	assert.Zero(t, info.Tier)

	_, err = f.ledger.Claim(ctx, env(alice, at), ClaimParams{})
	assert.True(t, errors.Is(err, errs.NothingToClaim))

	claimed, err := f.ledger.Claim(ctx, env(alice, withdrawal.ClaimableAt), ClaimParams{})
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(100), claimed)
	assert.Equal(t, uint128.From64(10_000), f.chain.Balance(alice, simulated.DefaultBondDenom))

	_, err = f.ledger.Claim(ctx, env(alice, withdrawal.ClaimableAt), ClaimParams{})
	assert.True(t, errors.Is(err, errs.NothingToClaim))
}

func TestClaimPaysOnlyMatureWithdrawals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneToOne(), InitParams{UnbondingPeriod: time.Hour})

	at := genesis
	for _, amount := range []uint64{100, 200, 300} {
		_, err := f.ledger.Deposit(ctx, env(alice, at, uscrt(amount)))
		require.NoError(t, err)
		at = at.Add(time.Minute)
		_, err = f.ledger.Withdraw(ctx, env(alice, at))
		require.NoError(t, err)
		at = at.Add(time.Minute)
	}

	list, total, err := f.ledger.Withdrawals(ctx, alice, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	require.Len(t, list, 3)

	// only the first withdrawal is mature
	claimed, err := f.ledger.Claim(ctx, env(alice, list[0].ClaimableAt), ClaimParams{Recipient: bob})
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(100), claimed)
	assert.Equal(t, uint128.From64(10_100), f.chain.Balance(bob, simulated.DefaultBondDenom))

	list, total, err = f.ledger.Withdrawals(ctx, alice, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, uint128.From64(200), list[0].Amount)

	// pages reaching past the queue stop at its end
	tail, _, err := f.ledger.Withdrawals(ctx, alice, 1, math.MaxUint64)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, uint128.From64(300), tail[0].Amount)
	claimed, err = f.ledger.Claim(ctx, env(alice, list[1].ClaimableAt), ClaimParams{Offset: 1, Limit: math.MaxUint64})
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(300), claimed)

	// the page limits what is claimed
	claimed, err = f.ledger.Claim(ctx, env(alice, list[1].ClaimableAt), ClaimParams{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(200), claimed)
}

func TestFlatVariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, InitParams{Variant: entity.VariantFlat, UnbondingPeriod: time.Hour})

	result, err := f.ledger.Deposit(ctx, env(alice, genesis, uscrt(250)))
	require.NoError(t, err)
	assert.Equal(t, uint8(3), result.Tier)
	assert.Equal(t, uint128.From64(250), result.Deposit)

	_, err = f.ledger.Deposit(ctx, env(bob, genesis, uscrt(40)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.BelowMinimum))
	assert.Contains(t, err.Error(), "deposit at least 60uscrt")

	config, err := f.ledger.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(250), config.Balance)
	assert.Equal(t, uint128.From64(250), f.chain.Balance(ledgerAddress, simulated.DefaultBondDenom))

	at := genesis.Add(time.Minute)
	withdrawal, err := f.ledger.Withdraw(ctx, env(alice, at))
	require.NoError(t, err)

	config, err = f.ledger.Config(ctx)
	require.NoError(t, err)
	assert.True(t, config.Balance.IsZero())
	assert.Equal(t, uint128.From64(250), config.Unbonding)

	_, err = f.ledger.Claim(ctx, env(alice, withdrawal.ClaimableAt), ClaimParams{})
	require.NoError(t, err)
	config, err = f.ledger.Config(ctx)
	require.NoError(t, err)
	assert.True(t, config.Unbonding.IsZero())
	assert.Equal(t, uint128.From64(10_000), f.chain.Balance(alice, simulated.DefaultBondDenom))

	err = f.ledger.Redelegate(ctx, env(adminAddress, at), RedelegateParams{Validator: validator2})
	assert.True(t, errors.Is(err, errs.Unsupported))
	_, err = f.ledger.WithdrawRewards(ctx, env(adminAddress, at), "")
	assert.True(t, errors.Is(err, errs.Unsupported))
}

func TestRedelegate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneToOne(), InitParams{})

	err := f.ledger.Redelegate(ctx, env(adminAddress, genesis), RedelegateParams{Validator: validator2})
	assert.True(t, errors.Is(err, errs.NotFound), "nothing delegated yet")

	_, err = f.ledger.Deposit(ctx, env(alice, genesis, uscrt(700)))
	require.NoError(t, err)
	require.NoError(t, f.chain.AccrueRewards(ledgerAddress, validator1, uint128.From64(7)))

	err = f.ledger.Redelegate(ctx, env(alice, genesis), RedelegateParams{Validator: validator2})
	assert.True(t, errors.Is(err, errs.Unauthorized))
	err = f.ledger.Redelegate(ctx, env(adminAddress, genesis), RedelegateParams{Validator: validator1})
	assert.True(t, errors.Is(err, errs.InvalidArgument))

	require.NoError(t, f.ledger.Redelegate(ctx, env(adminAddress, genesis), RedelegateParams{Validator: validator2, Recipient: bob}))
	assert.Equal(t, uint128.From64(10_007), f.chain.Balance(bob, simulated.DefaultBondDenom))
	assert.True(t, f.delegated(t, validator1).IsZero())
	assert.Equal(t, uint128.From64(700), f.delegated(t, validator2))

	config, err := f.ledger.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, validator2, config.Validator)

	// a redelegated stake can't move again until it matures
	err = f.ledger.Redelegate(ctx, env(adminAddress, genesis), RedelegateParams{Validator: validator1})
	assert.True(t, errors.Is(err, errs.InvalidArgument))

	f.chain.MatureRedelegations()
	require.NoError(t, f.ledger.Redelegate(ctx, env(adminAddress, genesis), RedelegateParams{Validator: validator1}))
	assert.Equal(t, uint128.From64(700), f.delegated(t, validator1))
}

func TestWithdrawRewards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneToOne(), InitParams{})

	_, err := f.ledger.Deposit(ctx, env(alice, genesis, uscrt(100)))
	require.NoError(t, err)

	_, err = f.ledger.WithdrawRewards(ctx, env(adminAddress, genesis), "")
	assert.True(t, errors.Is(err, errs.NothingToClaim))

	require.NoError(t, f.chain.AccrueRewards(ledgerAddress, validator1, uint128.From64(3)))
	_, err = f.ledger.WithdrawRewards(ctx, env(alice, genesis), "")
	assert.True(t, errors.Is(err, errs.Unauthorized))

	rewards, err := f.ledger.WithdrawRewards(ctx, env(adminAddress, genesis), "")
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(3), rewards)
	assert.Equal(t, uint128.From64(3), f.chain.Balance(adminAddress, simulated.DefaultBondDenom))
}

func TestAdministration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneToOne(), InitParams{})

	err := f.ledger.ChangeStatus(ctx, env(alice, genesis), types.StatusStopped)
	assert.True(t, errors.Is(err, errs.Unauthorized))
	err = f.ledger.ChangeStatus(ctx, env(adminAddress, genesis), types.Status("paused"))
	assert.True(t, errors.Is(err, errs.InvalidArgument))

	require.NoError(t, f.ledger.ChangeStatus(ctx, env(adminAddress, genesis), types.StatusStopped))
	_, err = f.ledger.Withdraw(ctx, env(alice, genesis))
	assert.True(t, errors.Is(err, errs.ContractStopped))
	_, err = f.ledger.Claim(ctx, env(alice, genesis), ClaimParams{})
	assert.True(t, errors.Is(err, errs.ContractStopped))

	// administration keeps working while stopped
	require.NoError(t, f.ledger.ChangeAdmin(ctx, env(adminAddress, genesis), bob))
	err = f.ledger.ChangeStatus(ctx, env(adminAddress, genesis), types.StatusActive)
	assert.True(t, errors.Is(err, errs.Unauthorized))
	require.NoError(t, f.ledger.ChangeStatus(ctx, env(bob, genesis), types.StatusActive))

	err = f.ledger.ChangeAdmin(ctx, env(bob, genesis), "")
	assert.True(t, errors.Is(err, errs.InvalidArgument))

	config, err := f.ledger.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, bob, config.Admin)
	assert.Equal(t, types.StatusActive, config.Status)
}

func TestOracleFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	oracle := mocks.NewPriceOracle(t)
	oracle.EXPECT().Rate(mock.Anything, DefaultBase, DefaultQuote).Return(uint128.Zero, errors.New("band unavailable")).Once()
	oracle.EXPECT().Rate(mock.Anything, DefaultBase, DefaultQuote).Return(decimals.OneUSD, nil)
	f := newFixture(t, oracle, InitParams{})

	_, err := f.ledger.Deposit(ctx, env(alice, genesis, uscrt(100)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "band unavailable")
	assert.Equal(t, uint128.From64(10_000), f.chain.Balance(alice, simulated.DefaultBondDenom))
	tier, err := f.ledger.TierOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), tier)

	_, err = f.ledger.Deposit(ctx, env(alice, genesis, uscrt(100)))
	require.NoError(t, err)
	tier, err = f.ledger.TierOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), tier)
}

func TestInit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneToOne(), InitParams{})

	config, err := f.ledger.Init(ctx, InitParams{Admin: bob, Validator: validator2, Tiers: testTiers()})
	require.NoError(t, err)
	assert.Equal(t, adminAddress, config.Admin, "already initialized")

	minTier, err := f.ledger.MinTier(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), minTier)

	invalid := []InitParams{
		{Admin: adminAddress, Validator: validator1},
		{Admin: adminAddress, Tiers: testTiers()},
		{Admin: adminAddress, Validator: validator1, Variant: "custody", Tiers: testTiers()},
		{Admin: adminAddress, Validator: validator1, Tiers: []entity.Tier{{Deposit: uint128.From64(100)}, {Deposit: uint128.From64(200)}}},
	}
	for i, params := range invalid {
		ledger := New(memory.NewRepository(), oneToOne(), f.chain, Options{Address: ledgerAddress})
		_, err := ledger.Init(ctx, params)
		assert.True(t, errors.Is(err, errs.InvalidArgument), "case %d: %v", i, err)
	}
}
