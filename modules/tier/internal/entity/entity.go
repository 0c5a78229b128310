package entity

import (
	"time"

	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/pkg/ladder"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
)

// Variant selects how collateral is valued and where it's kept.
type Variant string

const (
	// VariantDelegation values deposits in USD through the oracle and delegates them to the validator.
	VariantDelegation Variant = "delegation"
	// VariantFlat values deposits by their native amount and holds them in the ledger account.
	VariantFlat Variant = "flat"
)

func (v Variant) IsValid() bool {
	return v == VariantDelegation || v == VariantFlat
}

// Saturation selects what happens to value credited above a tier threshold.
type Saturation string

const (
	SaturationSaturate Saturation = "saturate"
	SaturationRefund   Saturation = "refund"
	SaturationReject   Saturation = "reject"
)

func (s Saturation) IsValid() bool {
	return s == SaturationSaturate || s == SaturationRefund || s == SaturationReject
}

type Tier struct {
	Deposit    uint128.Uint128 `json:"deposit"`
	LockPeriod time.Duration   `json:"lock_period"`
	LockMonths int             `json:"lock_months"`
}

// UnlockAt returns the end of the lock period of a deposit made at t.
func (t Tier) UnlockAt(at time.Time) time.Time {
	return at.AddDate(0, t.LockMonths, 0).Add(t.LockPeriod)
}

// Config is the persisted state of the ledger.
type Config struct {
	types.AdminConfig
	Validator       string          `json:"validator"`
	Denom           string          `json:"denom"`
	Variant         Variant         `json:"variant"`
	Saturation      Saturation      `json:"saturation"`
	UnbondingPeriod time.Duration   `json:"unbonding_period"`
	Tiers           []Tier          `json:"tiers"` // tier 1 first
	Balance         uint128.Uint128 `json:"balance"`   // flat variant: collateral held for active stakes
	Unbonding       uint128.Uint128 `json:"unbonding"` // flat variant: collateral of pending withdrawals
}

func (c Config) Thresholds() ladder.Thresholds {
	return lo.Map(c.Tiers, func(t Tier, _ int) uint128.Uint128 { return t.Deposit })
}

func (c Config) MinTier() uint8 {
	return c.Thresholds().MinTier()
}

// Stake is the collateral locked by one participant.
type Stake struct {
	Address        string
	Deposit        uint128.Uint128 // credited value, USD or native depending on the variant
	NativeDeposit  uint128.Uint128
	DepositedAt    time.Time
	Tier           uint8
	WithdrawableAt time.Time
}

// Withdrawal is collateral waiting for the unbonding period to end.
type Withdrawal struct {
	ID          uint64
	Address     string
	Amount      uint128.Uint128
	RequestedAt time.Time
	ClaimableAt time.Time
}

func (w Withdrawal) IsClaimable(now time.Time) bool {
	return !now.Before(w.ClaimableAt)
}
