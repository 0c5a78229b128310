package usecase

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/contracts/simulated"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/gaze-network/ido-ledger/modules/ido/repository/memory"
	"github.com/gaze-network/ido-ledger/pkg/parquetutils"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	registryAddress = "registry"
	adminAddress    = "admin"
	owner           = "owner"
	alice           = "alice"
	bob             = "bob"
	carol           = "carol"

	saleToken    = "sale-token"
	paymentToken = "usd-token"
	tierNft      = "tier-nft"
)

var genesis = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// stakingTiers grades participants like a tier ledger with four thresholds.
type stakingTiers struct {
	mu    sync.Mutex
	tiers map[string]uint8
}

func (s *stakingTiers) TierOf(_ context.Context, address string) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tier, ok := s.tiers[address]; ok {
		return tier, nil
	}
	return 5, nil
}

func (s *stakingTiers) MinTier(context.Context) (uint8, error) {
	return 5, nil
}

func (s *stakingTiers) set(address string, tier uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[address] = tier
}

func amounts(values ...uint64) []uint128.Uint128 {
	return lo.Map(values, func(v uint64, _ int) uint128.Uint128 { return uint128.From64(v) })
}

type fixture struct {
	registry *Usecase
	chain    *simulated.Chain
	tiers    *stakingTiers
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	chain := simulated.New("")
	for _, address := range []string{alice, bob, carol} {
		chain.Fund(address, uscrt(100_000))
	}
	require.NoError(t, chain.RegisterToken(contracts.TokenInfo{Contract: saleToken, Symbol: "SALE", Decimals: 6}))
	require.NoError(t, chain.RegisterToken(contracts.TokenInfo{Contract: paymentToken, Symbol: "USD", Decimals: 6}))
	require.NoError(t, chain.MintToken(saleToken, owner, uint128.From64(1_000_000)))
	require.NoError(t, chain.IncreaseAllowance(saleToken, owner, registryAddress, uint128.From64(1_000_000)))

	tiers := &stakingTiers{tiers: make(map[string]uint8)}
	opts.Address = registryAddress
	registry := New(memory.NewRepository(), tiers, chain, opts)
	_, err := registry.Init(context.Background(), InitParams{
		Admin:       adminAddress,
		NftContract: tierNft,
		MaxPayments: amounts(1000, 2000, 3000, 5000, 10000),
		LockPeriods: []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second, 40 * time.Second, 50 * time.Second},
	})
	require.NoError(t, err)
	return &fixture{registry: registry, chain: chain, tiers: tiers}
}

func uscrt(amount uint64) types.Coin {
	return types.NewCoin(simulated.DefaultBondDenom, uint128.From64(amount))
}

func env(sender string, at time.Time, funds ...types.Coin) types.Env {
	return types.Env{Sender: sender, BlockTime: at, Funds: funds}
}

// openSale runs from genesis for one hour, at 10 native units per token.
func openSale() StartSaleParams {
	return StartSaleParams{
		StartTime:     genesis,
		EndTime:       genesis.Add(time.Hour),
		Price:         uint128.From64(10),
		Payment:       entity.PaymentMethod{Kind: entity.PaymentNative},
		TokenContract: saleToken,
		Total:         uint128.From64(10_000),
		WhitelistMode: entity.WhitelistOpen,
	}
}

func (f *fixture) startSale(t *testing.T, params StartSaleParams) uint64 {
	t.Helper()
	result, err := f.registry.StartSale(context.Background(), env(owner, genesis.Add(-time.Minute)), params)
	require.NoError(t, err)
	return result.SaleID
}

func (f *fixture) buy(id uint64, sender string, amount uint64, at time.Time) (*BuyResult, error) {
	return f.registry.Buy(context.Background(), env(sender, at, uscrt(amount)), BuyParams{SaleID: id})
}

func TestBuyCumulativeCapLadder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	id := f.startSale(t, openSale())
	at := genesis.Add(time.Minute)

	_, err := f.buy(id, bob, 1001, at)
	assert.ErrorIs(t, err, errs.ExceedsTierCap)

	result, err := f.buy(id, alice, 1000, at)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), result.Tier)
	assert.Equal(t, uint128.From64(100), result.Tokens)

	_, err = f.buy(id, alice, 10, at)
	assert.ErrorIs(t, err, errs.ExceedsTierCap)

	f.tiers.set(alice, 4)
	_, err = f.buy(id, alice, 1010, at)
	assert.ErrorIs(t, err, errs.ExceedsTierCap)
	result, err = f.buy(id, alice, 1000, at)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), result.Tier)

	info, err := f.registry.UserInfo(ctx, alice, &id)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(2000), info.TotalPayment)
	assert.Equal(t, uint128.From64(200), info.TotalTokensBought)

	sale, err := f.registry.SaleInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(200), sale.Sold)
	assert.Equal(t, uint128.From64(2000), sale.TotalPayment)
	assert.Equal(t, uint64(1), sale.Participants)

	assert.Equal(t, uint128.From64(98_000), f.chain.Balance(alice, simulated.DefaultBondDenom))
	assert.Equal(t, uint128.From64(100_000), f.chain.Balance(bob, simulated.DefaultBondDenom))
	assert.Equal(t, uint128.From64(2000), f.chain.Balance(owner, simulated.DefaultBondDenom))
	assert.True(t, f.chain.Balance(registryAddress, simulated.DefaultBondDenom).IsZero())
}

func TestBuyRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	id := f.startSale(t, openSale())
	private := openSale()
	private.WhitelistMode = entity.WhitelistPrivate
	privateID := f.startSale(t, private)
	at := genesis.Add(time.Minute)

	type testcase struct {
		name   string
		saleID uint64
		env    types.Env
		kind   error
	}
	testcases := []testcase{
		{name: "before start", saleID: id, env: env(alice, genesis.Add(-time.Second), uscrt(100)), kind: errs.SaleNotActive},
		{name: "after end", saleID: id, env: env(alice, genesis.Add(time.Hour), uscrt(100)), kind: errs.SaleNotActive},
		{name: "not whitelisted", saleID: privateID, env: env(alice, at, uscrt(100)), kind: errs.NotWhitelisted},
		{name: "zero tokens", saleID: id, env: env(alice, at, uscrt(9)), kind: errs.ZeroTokens},
		{name: "nothing attached", saleID: id, env: env(alice, at), kind: errs.ZeroTokens},
		{name: "unsupported denom", saleID: id, env: env(alice, at, types.NewCoin("uatom", uint128.From64(100))), kind: errs.UnsupportedDenom},
		{name: "unknown sale", saleID: 42, env: env(alice, at, uscrt(100)), kind: errs.NotFound},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.registry.Buy(ctx, tc.env, BuyParams{SaleID: tc.saleID})
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, uint128.From64(100_000), f.chain.Balance(alice, simulated.DefaultBondDenom))
		})
	}

	require.NoError(t, f.registry.ChangeStatus(ctx, env(adminAddress, at), types.StatusStopped))
	_, err := f.buy(id, alice, 100, at)
	assert.ErrorIs(t, err, errs.ContractStopped)

	sale, err := f.registry.SaleInfo(ctx, id)
	require.NoError(t, err)
	assert.True(t, sale.Sold.IsZero())
	assert.Zero(t, sale.Participants)
}

func TestTierSoldOut(t *testing.T) {
	at := genesis.Add(time.Minute)

	t.Run("shared pool", func(t *testing.T) {
		f := newFixture(t, Options{})
		params := openSale()
		params.Total = uint128.From64(150)
		id := f.startSale(t, params)
		f.tiers.set(alice, 1)
		f.tiers.set(bob, 1)

		_, err := f.buy(id, alice, 1000, at)
		require.NoError(t, err)
		_, err = f.buy(id, bob, 1000, at)
		assert.ErrorIs(t, err, errs.TierSoldOut)
		_, err = f.buy(id, bob, 500, at)
		require.NoError(t, err)
		_, err = f.buy(id, carol, 10, at)
		assert.ErrorIs(t, err, errs.TierSoldOut)
	})

	t.Run("per tier pools", func(t *testing.T) {
		f := newFixture(t, Options{})
		params := openSale()
		params.Total = uint128.From64(200)
		params.TokensPerTier = amounts(100, 0, 0, 0, 50)
		id := f.startSale(t, params)
		f.tiers.set(alice, 1)
		f.tiers.set(bob, 1)

		_, err := f.buy(id, alice, 400, at)
		require.NoError(t, err)
		// tier 1 may pay at most price * 50 tokens
		_, err = f.buy(id, alice, 200, at)
		assert.ErrorIs(t, err, errs.ExceedsTierCap)
		_, err = f.buy(id, bob, 200, at)
		assert.ErrorIs(t, err, errs.TierSoldOut)
		_, err = f.buy(id, bob, 100, at)
		require.NoError(t, err)

		// tier 5 has its own pool
		_, err = f.buy(id, carol, 1000, at)
		require.NoError(t, err)
		// tiers without allocation can't buy at all
		f.tiers.set(carol, 3)
		_, err = f.buy(id, carol, 10, at)
		assert.ErrorIs(t, err, errs.ExceedsTierCap)

		sale, err := f.registry.SaleInfo(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, amounts(0, 0, 0, 0, 0), sale.RemainingPerTier)
		assert.Equal(t, uint128.From64(150), sale.Sold)
	})
}

func TestNftTierOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	id := f.startSale(t, openSale())
	at := genesis.Add(time.Minute)

	tierOf := func(value string) *contracts.Metadata {
		return &contracts.Metadata{Attributes: []contracts.Trait{{TraitType: "Tier", Value: value}}}
	}
	require.NoError(t, f.chain.MintNft(tierNft, "1", alice, nil, tierOf("1")))
	require.NoError(t, f.chain.MintNft(tierNft, "2", carol, tierOf("2"), nil))
	require.NoError(t, f.chain.MintNft(tierNft, "3", carol, tierOf("best"), nil))
	f.chain.SetViewingKey(tierNft, alice, "alice-key")
	f.chain.SetViewingKey(tierNft, bob, "bob-key")
	f.chain.SetViewingKey(tierNft, carol, "carol-key")

	tier, err := f.registry.EffectiveTier(ctx, alice, &NftProof{TokenID: "1", ViewingKey: "alice-key"})
	require.NoError(t, err)
	assert.Equal(t, uint8(1), tier)

	result, err := f.registry.Buy(ctx, env(alice, at, uscrt(10_000)), BuyParams{
		SaleID: id,
		Proof:  &NftProof{TokenID: "1", ViewingKey: "alice-key"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint8(1), result.Tier)
	assert.Equal(t, uint128.From64(1000), result.Tokens)

	tier, err = f.registry.EffectiveTier(ctx, carol, &NftProof{TokenID: "2", ViewingKey: "carol-key"})
	require.NoError(t, err)
	assert.Equal(t, uint8(2), tier)

	// the staking tier wins when it is better
	f.tiers.set(carol, 1)
	tier, err = f.registry.EffectiveTier(ctx, carol, &NftProof{TokenID: "2", ViewingKey: "carol-key"})
	require.NoError(t, err)
	assert.Equal(t, uint8(1), tier)

	// private metadata wins over public, public is read when private carries no tier
	require.NoError(t, f.chain.MintNft(tierNft, "4", bob, tierOf("4"), tierOf("2")))
	require.NoError(t, f.chain.MintNft(tierNft, "5", bob, tierOf("3"), &contracts.Metadata{
		Attributes: []contracts.Trait{{TraitType: "rarity", Value: "1"}},
	}))
	tier, err = f.registry.EffectiveTier(ctx, bob, &NftProof{TokenID: "4", ViewingKey: "bob-key"})
	require.NoError(t, err)
	assert.Equal(t, uint8(2), tier)
	tier, err = f.registry.EffectiveTier(ctx, bob, &NftProof{TokenID: "5", ViewingKey: "bob-key"})
	require.NoError(t, err)
	assert.Equal(t, uint8(3), tier)

	type testcase struct {
		name    string
		address string
		proof   NftProof
	}
	testcases := []testcase{
		{name: "someone else's token", address: bob, proof: NftProof{TokenID: "1", ViewingKey: "bob-key"}},
		{name: "stolen viewing key", address: bob, proof: NftProof{TokenID: "1", ViewingKey: "alice-key"}},
		{name: "unknown token", address: bob, proof: NftProof{TokenID: "404", ViewingKey: "bob-key"}},
		{name: "malformed tier", address: carol, proof: NftProof{TokenID: "3", ViewingKey: "carol-key"}},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.registry.Buy(ctx, env(tc.address, at, uscrt(1000)), BuyParams{SaleID: id, Proof: &tc.proof})
			assert.ErrorIs(t, err, errs.InvalidNftTier)
		})
	}
}

func TestRecvTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	id := f.startSale(t, openSale())
	at := genesis.Add(time.Minute)
	f.tiers.set(bob, 1)

	first, err := f.buy(id, alice, 500, at)
	require.NoError(t, err)
	assert.Equal(t, genesis.Add(time.Hour+10*time.Second), first.UnlockAt)
	_, err = f.buy(id, alice, 300, at.Add(time.Minute))
	require.NoError(t, err)
	_, err = f.buy(id, bob, 1000, at)
	require.NoError(t, err)

	active, err := f.registry.ActiveSales(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, active)

	_, err = f.registry.RecvTokens(ctx, env(alice, first.UnlockAt.Add(-time.Second)), RecvTokensParams{SaleID: id})
	assert.ErrorIs(t, err, errs.NothingToReceive)

	result, err := f.registry.RecvTokens(ctx, env(alice, first.UnlockAt), RecvTokensParams{SaleID: id})
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(80), result.Tokens)
	assert.Equal(t, 2, result.Purchases)
	assert.Equal(t, uint128.From64(80), f.chain.TokenBalance(saleToken, alice))

	_, err = f.registry.RecvTokens(ctx, env(alice, first.UnlockAt), RecvTokensParams{SaleID: id})
	assert.ErrorIs(t, err, errs.NothingToReceive)

	archived, total, err := f.registry.ArchivedPurchases(ctx, alice, id, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	require.Len(t, archived, 2)
	assert.Equal(t, uint128.From64(50), archived[0].Tokens)
	assert.Equal(t, uint128.From64(30), archived[1].Tokens)
	assert.Equal(t, first.UnlockAt, archived[0].ReceivedAt)

	info, err := f.registry.UserInfo(ctx, alice, nil)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(80), info.TotalTokensReceived)
	assert.True(t, info.Pending().IsZero())

	active, err = f.registry.ActiveSales(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, active)

	// tier 1 locks 50 seconds after the sale end
	_, err = f.registry.RecvTokens(ctx, env(bob, first.UnlockAt), RecvTokensParams{SaleID: id})
	assert.ErrorIs(t, err, errs.NothingToReceive)
	_, err = f.registry.RecvTokens(ctx, env(bob, genesis.Add(time.Hour+50*time.Second)), RecvTokensParams{SaleID: id})
	require.NoError(t, err)
}

func TestRecvTokensPageBounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	id := f.startSale(t, openSale())
	at := genesis.Add(time.Minute)

	first, err := f.buy(id, alice, 500, at)
	require.NoError(t, err)
	_, err = f.buy(id, alice, 300, at)
	require.NoError(t, err)

	result, err := f.registry.RecvTokens(ctx, env(alice, first.UnlockAt), RecvTokensParams{SaleID: id, Offset: 1, Limit: math.MaxUint64})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Purchases)
	assert.Equal(t, uint128.From64(30), result.Tokens)

	_, err = f.registry.RecvTokens(ctx, env(alice, first.UnlockAt), RecvTokensParams{SaleID: id, Offset: 1, Limit: math.MaxUint64})
	assert.ErrorIs(t, err, errs.NothingToReceive)

	purchases, total, err := f.registry.Purchases(ctx, alice, id, 0, math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, purchases, 1)
	assert.Equal(t, uint128.From64(50), purchases[0].Tokens)
}

func TestRecvTokensAnchoredToPurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	params := openSale()
	params.UnlockAnchor = entity.UnlockAtPurchase
	id := f.startSale(t, params)

	early := genesis.Add(time.Minute)
	late := genesis.Add(10 * time.Minute)
	_, err := f.buy(id, alice, 100, early)
	require.NoError(t, err)
	result, err := f.buy(id, alice, 200, late)
	require.NoError(t, err)
	assert.Equal(t, late.Add(10*time.Second), result.UnlockAt)

	received, err := f.registry.RecvTokens(ctx, env(alice, early.Add(10*time.Second)), RecvTokensParams{SaleID: id})
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(10), received.Tokens)

	purchases, total, err := f.registry.Purchases(ctx, alice, id, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, purchases, 1)
	assert.Equal(t, uint64(1), purchases[0].Index)

	active, err := f.registry.ActiveSales(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, active)
}

func TestSoldMatchesPurchaseRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	id := f.startSale(t, openSale())
	f.tiers.set(carol, 2)

	assertSold := func(t *testing.T) {
		t.Helper()
		sale, err := f.registry.SaleInfo(ctx, id)
		require.NoError(t, err)
		sum := uint128.Zero
		for _, address := range []string{alice, bob, carol} {
			live, _, err := f.registry.Purchases(ctx, address, id, 0, 1000)
			require.NoError(t, err)
			for _, p := range live {
				sum = sum.Add(p.Tokens)
			}
			archived, _, err := f.registry.ArchivedPurchases(ctx, address, id, 0, 1000)
			require.NoError(t, err)
			for _, p := range archived {
				sum = sum.Add(p.Tokens)
			}
		}
		assert.Equal(t, sale.Sold, sum)
	}

	buys := []struct {
		address string
		amount  uint64
	}{{alice, 105}, {bob, 900}, {carol, 1234}, {alice, 77}, {carol, 10}, {bob, 5}}
	for i, b := range buys {
		_, err := f.buy(id, b.address, b.amount, genesis.Add(time.Duration(i+1)*time.Minute))
		if b.amount < 10 {
			require.ErrorIs(t, err, errs.ZeroTokens)
		} else {
			require.NoError(t, err)
		}
		assertSold(t)
	}

	_, err := f.registry.RecvTokens(ctx, env(alice, genesis.Add(2*time.Hour)), RecvTokensParams{SaleID: id, Limit: 1})
	require.NoError(t, err)
	assertSold(t)
	_, err = f.registry.RecvTokens(ctx, env(carol, genesis.Add(2*time.Hour)), RecvTokensParams{SaleID: id})
	require.NoError(t, err)
	assertSold(t)
}

func TestWhitelistModes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	at := genesis.Add(time.Minute)

	private := openSale()
	private.WhitelistMode = entity.WhitelistPrivate
	private.Whitelist = []string{alice, alice}
	result, err := f.registry.StartSale(ctx, env(owner, genesis), private)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.WhitelistSize)
	privateID := result.SaleID

	shared := openSale()
	shared.WhitelistMode = entity.WhitelistShared
	shared.Whitelist = []string{bob}
	sharedID := f.startSale(t, shared)

	open := openSale()
	open.Whitelist = []string{carol}
	openID := f.startSale(t, open)

	eligible := func(address string, id uint64) bool {
		t.Helper()
		ok, err := f.registry.IsEligible(ctx, address, id)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, eligible(alice, privateID))
	assert.False(t, eligible(bob, privateID))
	assert.True(t, eligible(alice, openID))
	assert.False(t, eligible(carol, openID))
	assert.False(t, eligible(alice, sharedID))

	size, err := f.registry.WhitelistAdd(ctx, env(adminAddress, at), nil, []string{alice, bob})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), size)
	assert.True(t, eligible(alice, sharedID))
	// blocked by the sale list despite the shared list
	assert.False(t, eligible(bob, sharedID))

	size, err = f.registry.WhitelistAdd(ctx, env(owner, at), &privateID, []string{bob})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), size)
	assert.True(t, eligible(bob, privateID))

	size, err = f.registry.WhitelistRemove(ctx, env(adminAddress, at), &privateID, []string{alice})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), size)
	assert.False(t, eligible(alice, privateID))
	_, err = f.buy(privateID, alice, 100, at)
	assert.ErrorIs(t, err, errs.NotWhitelisted)

	addresses, total, err := f.registry.Whitelist(ctx, &privateID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	assert.Equal(t, []string{bob}, addresses)

	_, err = f.registry.WhitelistAdd(ctx, env(alice, at), &privateID, []string{carol})
	assert.ErrorIs(t, err, errs.Unauthorized)
	_, err = f.registry.WhitelistAdd(ctx, env(owner, at), nil, []string{carol})
	assert.ErrorIs(t, err, errs.Unauthorized)
	_, err = f.registry.WhitelistAdd(ctx, env(owner, at), lo.ToPtr(uint64(42)), []string{carol})
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestTokenPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	params := openSale()
	params.Payment = entity.PaymentMethod{Kind: entity.PaymentToken, Contract: paymentToken}
	id := f.startSale(t, params)
	at := genesis.Add(time.Minute)
	require.NoError(t, f.chain.MintToken(paymentToken, alice, uint128.From64(5000)))

	// no allowance yet
	_, err := f.registry.Buy(ctx, env(alice, at), BuyParams{SaleID: id, Amount: uint128.From64(1000)})
	require.Error(t, err)
	sale, err := f.registry.SaleInfo(ctx, id)
	require.NoError(t, err)
	assert.True(t, sale.Sold.IsZero())

	require.NoError(t, f.chain.IncreaseAllowance(paymentToken, alice, registryAddress, uint128.From64(1000)))
	result, err := f.registry.Buy(ctx, env(alice, at), BuyParams{SaleID: id, Amount: uint128.From64(1000)})
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(100), result.Tokens)
	assert.Equal(t, uint128.From64(4000), f.chain.TokenBalance(paymentToken, alice))
	assert.Equal(t, uint128.From64(1000), f.chain.TokenBalance(paymentToken, owner))

	_, err = f.buy(id, alice, 100, at)
	assert.ErrorIs(t, err, errs.UnsupportedDenom)
}

func TestStartSaleValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	type testcase struct {
		name   string
		mutate func(p *StartSaleParams)
	}
	testcases := []testcase{
		{name: "end before start", mutate: func(p *StartSaleParams) { p.EndTime = p.StartTime }},
		{name: "zero price", mutate: func(p *StartSaleParams) { p.Price = uint128.Zero }},
		{name: "zero total", mutate: func(p *StartSaleParams) { p.Total = uint128.Zero }},
		{name: "tier allocations length", mutate: func(p *StartSaleParams) { p.TokensPerTier = amounts(1, 2) }},
		{name: "tier allocations exceed total", mutate: func(p *StartSaleParams) { p.TokensPerTier = amounts(5000, 5000, 1, 0, 0) }},
		{name: "unknown payment token", mutate: func(p *StartSaleParams) {
			p.Payment = entity.PaymentMethod{Kind: entity.PaymentToken, Contract: "nope"}
		}},
		{name: "unknown sale token", mutate: func(p *StartSaleParams) { p.TokenContract = "nope" }},
		{name: "unknown whitelist mode", mutate: func(p *StartSaleParams) { p.WhitelistMode = "closed" }},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			params := openSale()
			tc.mutate(&params)
			_, err := f.registry.StartSale(ctx, env(owner, genesis), params)
			assert.ErrorIs(t, err, errs.InvalidArgument)
		})
	}

	count, err := f.registry.SaleAmount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, uint128.From64(1_000_000), f.chain.TokenBalance(saleToken, owner))

	// owner without allowance
	_, err = f.registry.StartSale(ctx, env(alice, genesis), openSale())
	require.Error(t, err)
	count, err = f.registry.SaleAmount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	id := f.startSale(t, openSale())
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, uint128.From64(10_000), f.chain.TokenBalance(saleToken, registryAddress))
	sales, total, err := f.registry.SalesOwnedBy(ctx, owner, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, sales, 1)
	assert.Equal(t, entity.UnlockAtSaleEnd, sales[0].UnlockAnchor)
}

func TestWithdrawSale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	id := f.startSale(t, openSale())
	_, err := f.buy(id, alice, 1000, genesis.Add(time.Minute))
	require.NoError(t, err)
	end := genesis.Add(time.Hour)

	_, err = f.registry.Withdraw(ctx, env(owner, end.Add(-time.Second)), id)
	assert.ErrorIs(t, err, errs.SaleNotFinished)
	assert.True(t, errs.IsRetryable(err))
	_, err = f.registry.Withdraw(ctx, env(alice, end), id)
	assert.ErrorIs(t, err, errs.Unauthorized)

	unsold, err := f.registry.Withdraw(ctx, env(owner, end), id)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(9_900), unsold)
	assert.Equal(t, uint128.From64(1_000_000-100), f.chain.TokenBalance(saleToken, owner))
	assert.Equal(t, uint128.From64(100), f.chain.TokenBalance(saleToken, registryAddress))

	_, err = f.registry.Withdraw(ctx, env(owner, end), id)
	assert.ErrorIs(t, err, errs.AlreadyWithdrawn)

	// buyers still receive their tokens
	_, err = f.registry.RecvTokens(ctx, env(alice, end.Add(time.Minute)), RecvTokensParams{SaleID: id})
	require.NoError(t, err)
	assert.True(t, f.chain.TokenBalance(saleToken, registryAddress).IsZero())
}

func TestAdministration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	err := f.registry.ChangeStatus(ctx, env(alice, genesis), types.StatusStopped)
	assert.ErrorIs(t, err, errs.Unauthorized)
	require.NoError(t, f.registry.ChangeStatus(ctx, env(adminAddress, genesis), types.StatusStopped))

	_, err = f.registry.StartSale(ctx, env(owner, genesis), openSale())
	assert.ErrorIs(t, err, errs.ContractStopped)

	require.NoError(t, f.registry.ChangeAdmin(ctx, env(adminAddress, genesis), bob))
	err = f.registry.ChangeStatus(ctx, env(adminAddress, genesis), types.StatusActive)
	assert.ErrorIs(t, err, errs.Unauthorized)
	require.NoError(t, f.registry.ChangeStatus(ctx, env(bob, genesis), types.StatusActive))

	config, err := f.registry.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, bob, config.Admin)
	assert.Equal(t, types.StatusActive, config.Status)
}

type memoryUploader struct {
	objects map[string][]byte
}

func (m *memoryUploader) Upload(_ context.Context, key string, body []byte) (string, error) {
	m.objects[key] = body
	return "memory://" + key, nil
}

func TestExportArchive(t *testing.T) {
	ctx := context.Background()
	uploader := &memoryUploader{objects: make(map[string][]byte)}
	f := newFixture(t, Options{Uploader: uploader, ExportPrefix: "exports"})
	id := f.startSale(t, openSale())
	at := genesis.Add(time.Minute)
	_, err := f.buy(id, alice, 100, at)
	require.NoError(t, err)
	_, err = f.buy(id, bob, 250, at)
	require.NoError(t, err)
	received := genesis.Add(2 * time.Hour)
	for _, address := range []string{alice, bob} {
		_, err := f.registry.RecvTokens(ctx, env(address, received), RecvTokensParams{SaleID: id})
		require.NoError(t, err)
	}

	result, err := f.registry.ExportArchive(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Records)
	assert.Equal(t, "memory://exports/sale_1/archive.parquet", result.Location)

	records, err := parquetutils.ReadAll[ArchiveRecord](parquetutils.NewBufferFile(uploader.objects["exports/sale_1/archive.parquet"]))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, alice, records[0].Address)
	assert.Equal(t, "10", records[0].Tokens)
	assert.Equal(t, bob, records[1].Address)
	assert.Equal(t, "25", records[1].Tokens)
	assert.Equal(t, received.UnixMilli(), records[1].ReceivedAt)

	_, err = f.registry.ExportArchive(ctx, 42)
	assert.ErrorIs(t, err, errs.NotFound)

	_, err = newFixture(t, Options{}).registry.ExportArchive(ctx, id)
	assert.ErrorIs(t, err, errs.Unsupported)
}

func TestInit(t *testing.T) {
	ctx := context.Background()
	tiers := &stakingTiers{tiers: make(map[string]uint8)}
	registry := New(memory.NewRepository(), tiers, simulated.New(""), Options{Address: registryAddress})

	type testcase struct {
		name   string
		params InitParams
	}
	periods := []time.Duration{0, 0, 0, 0, 0}
	testcases := []testcase{
		{name: "decreasing ladder", params: InitParams{MaxPayments: amounts(1000, 900, 3000, 5000, 10000), LockPeriods: periods}},
		{name: "lock periods", params: InitParams{MaxPayments: amounts(1000, 2000, 3000, 5000, 10000), LockPeriods: periods[:4]}},
		{name: "tier count", params: InitParams{MaxPayments: amounts(1000, 2000, 3000, 5000), LockPeriods: periods[:4]}},
		{name: "unlock anchor", params: InitParams{MaxPayments: amounts(1000, 2000, 3000, 5000, 10000), LockPeriods: periods, UnlockAnchor: "never"}},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			tc.params.Admin = adminAddress
			_, err := registry.Init(ctx, tc.params)
			assert.ErrorIs(t, err, errs.InvalidArgument)
		})
	}

	_, err := registry.Config(ctx)
	assert.True(t, errors.Is(err, errs.NotFound))

	params := InitParams{Admin: adminAddress, MaxPayments: amounts(1000, 2000, 3000, 5000, 10000), LockPeriods: periods}
	config, err := registry.Init(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, DefaultDenom, config.NativeDenom)
	assert.Equal(t, entity.UnlockAtSaleEnd, config.UnlockAnchor)

	params.Admin = bob
	config, err = registry.Init(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, adminAddress, config.Admin)
}
