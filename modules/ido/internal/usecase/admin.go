package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/contracts"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/modules/ido/datagateway"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
)

// ChangeStatus stops or resumes the registry. Reads and administration keep working while stopped.
func (u *Usecase) ChangeStatus(ctx context.Context, env types.Env, status types.Status) error {
	return u.execute(ctx, "change_status", env, false, func(ctx context.Context, tx datagateway.IDODataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertAdmin(env.Sender); err != nil {
			return nil, errors.WithStack(err)
		}
		if !status.IsValid() {
			return nil, errors.Wrapf(errs.InvalidArgument, "unknown status %q", status)
		}
		config.Status = status
		return nil, errors.Wrap(tx.SaveConfig(ctx, *config), "failed to save config")
	})
}

func (u *Usecase) ChangeAdmin(ctx context.Context, env types.Env, admin string) error {
	return u.execute(ctx, "change_admin", env, false, func(ctx context.Context, tx datagateway.IDODataGatewayWithTx, config *entity.Config) ([]contracts.Msg, error) {
		if err := config.AssertAdmin(env.Sender); err != nil {
			return nil, errors.WithStack(err)
		}
		if err := u.addresses.Validate(admin); err != nil {
			return nil, errors.Wrap(err, "invalid admin")
		}
		config.Admin = admin
		return nil, errors.Wrap(tx.SaveConfig(ctx, *config), "failed to save config")
	})
}
