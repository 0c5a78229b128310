// Package address validates bech32 account addresses.
package address

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
)

// AccountLength is the length in bytes of an account address payload.
const AccountLength = 20

// Validator checks addresses against a human readable prefix, e.g. "secret".
// An empty prefix accepts any non-empty address.
type Validator struct {
	Prefix string
}

func (v Validator) Validate(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.Wrap(errs.InvalidArgument, "address is empty")
	}
	if v.Prefix == "" {
		return nil
	}
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return errors.Wrapf(errs.InvalidArgument, "address %q: %v", addr, err)
	}
	if hrp != v.Prefix {
		return errors.Wrapf(errs.InvalidArgument, "address %q must start with %q", addr, v.Prefix)
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return errors.Wrapf(errs.InvalidArgument, "address %q: %v", addr, err)
	}
	if len(payload) != AccountLength {
		return errors.Wrapf(errs.InvalidArgument, "address %q has %d bytes payload", addr, len(payload))
	}
	return nil
}

// ValidateAll validates every address, reporting the first invalid one.
func (v Validator) ValidateAll(addrs []string) error {
	for _, addr := range addrs {
		if err := v.Validate(addr); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
