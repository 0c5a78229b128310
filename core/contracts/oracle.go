package contracts

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/uint128"
)

var _ PriceOracle = StaticOracle{}

// StaticOracle quotes a fixed rate for any pair.
type StaticOracle struct {
	Value uint128.Uint128
}

func (o StaticOracle) Rate(_ context.Context, base, quote string) (uint128.Uint128, error) {
	if o.Value.IsZero() {
		return uint128.Zero, errors.Wrapf(errs.NotFound, "no rate for %s/%s", base, quote)
	}
	return o.Value, nil
}
