package types

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
)

// AdminConfig is the administrative state shared by the ledgers.
// It's loaded inside each call and handed to the guards explicitly.
type AdminConfig struct {
	Admin  string `json:"admin"`
	Status Status `json:"status"`
}

// AssertAdmin fails with errs.Unauthorized unless sender is the admin.
func (c AdminConfig) AssertAdmin(sender string) error {
	if sender == "" || sender != c.Admin {
		return errors.Wrapf(errs.Unauthorized, "%q is not the admin", sender)
	}
	return nil
}

// AssertActive fails with errs.ContractStopped when the ledger is stopped.
func (c AdminConfig) AssertActive() error {
	if c.Status != StatusActive {
		return errors.WithStack(errs.ContractStopped)
	}
	return nil
}
