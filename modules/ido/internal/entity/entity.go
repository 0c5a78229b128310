package entity

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/pkg/ladder"
	"github.com/gaze-network/uint128"
)

type PaymentKind string

const (
	PaymentNative PaymentKind = "native"
	PaymentToken  PaymentKind = "token"
)

// PaymentMethod is how participants pay for a sale. Contract is set for token payments.
type PaymentMethod struct {
	Kind     PaymentKind `json:"kind"`
	Contract string      `json:"contract,omitempty"`
}

func (p PaymentMethod) Validate() error {
	switch p.Kind {
	case PaymentNative:
		return nil
	case PaymentToken:
		if p.Contract == "" {
			return errors.Wrap(errs.InvalidArgument, "token payment requires a contract")
		}
		return nil
	default:
		return errors.Wrapf(errs.InvalidArgument, "unknown payment kind %q", p.Kind)
	}
}

// WhitelistMode selects who may buy when no per-sale entry exists for a participant.
type WhitelistMode string

const (
	// WhitelistPrivate admits only the addresses listed for the sale.
	WhitelistPrivate WhitelistMode = "private"
	// WhitelistShared admits the addresses of the shared whitelist.
	WhitelistShared WhitelistMode = "shared"
	// WhitelistOpen admits everyone.
	WhitelistOpen WhitelistMode = "open"
)

func (m WhitelistMode) IsValid() bool {
	return m == WhitelistPrivate || m == WhitelistShared || m == WhitelistOpen
}

// UnlockAnchor is the instant lock periods of purchases are counted from.
type UnlockAnchor string

const (
	UnlockAtSaleEnd  UnlockAnchor = "sale_end"
	UnlockAtPurchase UnlockAnchor = "purchase"
)

func (a UnlockAnchor) IsValid() bool {
	return a == UnlockAtSaleEnd || a == UnlockAtPurchase
}

// Config is the persisted state of the registry. Per-tier lists are ordered worst tier first.
type Config struct {
	types.AdminConfig
	NativeDenom  string            `json:"native_denom"`
	NftContract  string            `json:"nft_contract"`
	UnlockAnchor UnlockAnchor      `json:"unlock_anchor"`
	MaxPayments  []uint128.Uint128 `json:"max_payments"`
	LockPeriods  []time.Duration   `json:"lock_periods"`
}

func (c Config) Ladder() (ladder.Ladder, error) {
	l, err := ladder.New(c.MaxPayments)
	return l, errors.WithStack(err)
}

// Tiers is the number of tiers, including the ungraded one.
func (c Config) Tiers() int {
	return len(c.MaxPayments)
}

func (c Config) MinTier() uint8 {
	return uint8(len(c.MaxPayments))
}

// LockPeriod returns the vesting lock of tier.
func (c Config) LockPeriod(tier uint8) (time.Duration, error) {
	idx, err := ladder.Index(tier, len(c.LockPeriods))
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return c.LockPeriods[idx], nil
}

type Sale struct {
	ID            uint64
	Owner         string
	StartTime     time.Time
	EndTime       time.Time
	Price         uint128.Uint128 // payment units per sale token
	Payment       PaymentMethod
	TokenContract string
	Total         uint128.Uint128
	// TokensPerTier is the allocation of each tier, worst tier first. Nil for sales sharing one pool.
	TokensPerTier []uint128.Uint128
	// RemainingPerTier is what is left of TokensPerTier.
	RemainingPerTier []uint128.Uint128
	Sold             uint128.Uint128
	TotalPayment     uint128.Uint128
	Participants     uint64
	Withdrawn        bool
	WhitelistMode    WhitelistMode
	UnlockAnchor     UnlockAnchor
}

// IsActive reports whether purchases are accepted at now.
func (s Sale) IsActive(now time.Time) bool {
	return !now.Before(s.StartTime) && now.Before(s.EndTime)
}

func (s Sale) IsFinished(now time.Time) bool {
	return !now.Before(s.EndTime)
}

func (s Sale) PerTier() bool {
	return s.TokensPerTier != nil
}

// Unsold is the amount of tokens nobody bought.
func (s Sale) Unsold() uint128.Uint128 {
	return s.Total.Sub(s.Sold)
}

// UnlockAt returns the unlock time of a purchase made at purchasedAt with a lock of period.
func (s Sale) UnlockAt(purchasedAt time.Time, period time.Duration) time.Time {
	if s.UnlockAnchor == UnlockAtPurchase {
		return purchasedAt.Add(period)
	}
	return s.EndTime.Add(period)
}

// WhitelistEntry admits or removes Address. SaleID nil is the shared whitelist.
type WhitelistEntry struct {
	SaleID  *uint64
	Address string
	Allowed bool
}

// Purchase is an accepted purchase waiting for its unlock time.
type Purchase struct {
	Address     string
	SaleID      uint64
	Index       uint64 // sequence of the purchase among the participant's purchases of the sale
	Payment     uint128.Uint128
	Tokens      uint128.Uint128
	PurchasedAt time.Time
	UnlockAt    time.Time
}

func (p Purchase) IsUnlocked(now time.Time) bool {
	return !now.Before(p.UnlockAt)
}

// ArchivedPurchase is a purchase whose tokens were received. Archived purchases never change.
type ArchivedPurchase struct {
	Purchase
	ReceivedAt time.Time
}

// UserInfo aggregates the purchases of a participant, in one sale or in all of them when SaleID is nil.
type UserInfo struct {
	Address             string
	SaleID              *uint64
	TotalPayment        uint128.Uint128
	TotalTokensBought   uint128.Uint128
	TotalTokensReceived uint128.Uint128
}

// Pending is the amount of tokens bought and not received yet.
func (u UserInfo) Pending() uint128.Uint128 {
	return u.TotalTokensBought.Sub(u.TotalTokensReceived)
}
