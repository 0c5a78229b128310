// Package ladder implements the tier arithmetic shared by the tier ledger and the sale registry.
//
// Tiers are numbered from 1 (best). A threshold table holds one entry per graded
// tier, tier 1 first. A cap ladder holds one entry per tier including the
// ungraded one, worst tier first.
package ladder

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/uint128"
)

// Thresholds is a table of minimum deposits, strictly decreasing from tier 1.
type Thresholds []uint128.Uint128

// Validate checks the table is non-empty, positive and strictly decreasing.
func (t Thresholds) Validate() error {
	if len(t) == 0 {
		return errors.Wrap(errs.InvalidArgument, "thresholds must not be empty")
	}
	if len(t) > 254 {
		return errors.Wrap(errs.InvalidArgument, "too many tiers")
	}
	for i := range t {
		if t[i].IsZero() {
			return errors.Wrapf(errs.InvalidArgument, "threshold of tier %d must be positive", i+1)
		}
		if i > 0 && t[i].Cmp(t[i-1]) >= 0 {
			return errors.Wrapf(errs.InvalidArgument, "threshold of tier %d must be lower than tier %d", i+1, i)
		}
	}
	return nil
}

// MinTier is the tier of participants who reach no threshold.
func (t Thresholds) MinTier() uint8 {
	return uint8(len(t) + 1)
}

// TierFor returns the best tier whose threshold is reached by value, or 0 when none is.
func (t Thresholds) TierFor(value uint128.Uint128) uint8 {
	for i := range t {
		if value.Cmp(t[i]) >= 0 {
			return uint8(i + 1)
		}
	}
	return 0
}

// Of returns the threshold of a graded tier.
func (t Thresholds) Of(tier uint8) (uint128.Uint128, error) {
	if tier == 0 || int(tier) > len(t) {
		return uint128.Zero, errors.Wrapf(errs.InvalidArgument, "tier %d is out of range", tier)
	}
	return t[tier-1], nil
}

// Top is the threshold of tier 1.
func (t Thresholds) Top() uint128.Uint128 {
	return t[0]
}

// Ladder holds cumulative spending caps per tier, worst tier first.
// The cap of a tier is the running sum of the increments from the worst tier up to it.
type Ladder struct {
	increments []uint128.Uint128
}

// New builds a ladder from cumulative caps ordered worst tier first. Caps must be strictly increasing.
func New(caps []uint128.Uint128) (Ladder, error) {
	if len(caps) < 2 {
		return Ladder{}, errors.Wrap(errs.InvalidArgument, "ladder needs at least two tiers")
	}
	if len(caps) > 255 {
		return Ladder{}, errors.Wrap(errs.InvalidArgument, "too many tiers")
	}
	increments := make([]uint128.Uint128, len(caps))
	prev := uint128.Zero
	for i, c := range caps {
		if c.Cmp(prev) <= 0 {
			return Ladder{}, errors.Wrapf(errs.InvalidArgument, "caps must be strictly increasing, got %s after %s", c, prev)
		}
		increments[i] = c.Sub(prev)
		prev = c
	}
	return Ladder{increments: increments}, nil
}

// Tiers is the number of tiers, including the ungraded one.
func (l Ladder) Tiers() int {
	return len(l.increments)
}

// MinTier is the worst tier of the ladder.
func (l Ladder) MinTier() uint8 {
	return uint8(len(l.increments))
}

// Index returns the position of tier in per-tier lists ordered worst tier first.
func (l Ladder) Index(tier uint8) (int, error) {
	return Index(tier, len(l.increments))
}

// Cap returns the cumulative cap of tier.
func (l Ladder) Cap(tier uint8) (uint128.Uint128, error) {
	idx, err := l.Index(tier)
	if err != nil {
		return uint128.Zero, errors.WithStack(err)
	}
	sum := uint128.Zero
	for _, inc := range l.increments[:idx+1] {
		var overflow bool
		sum, overflow = sum.AddOverflow(inc)
		if overflow {
			return uint128.Zero, errors.WithStack(errs.OverflowUint128)
		}
	}
	return sum, nil
}

// Caps returns the cumulative caps, worst tier first.
func (l Ladder) Caps() []uint128.Uint128 {
	caps := make([]uint128.Uint128, len(l.increments))
	sum := uint128.Zero
	for i, inc := range l.increments {
		sum = sum.Add(inc)
		caps[i] = sum
	}
	return caps
}

// Index returns the position of tier in a per-tier list of size tiers ordered worst tier first.
func Index(tier uint8, tiers int) (int, error) {
	if tier == 0 || int(tier) > tiers {
		return 0, errors.Wrapf(errs.InvalidArgument, "tier %d is out of range [1, %d]", tier, tiers)
	}
	return tiers - int(tier), nil
}
