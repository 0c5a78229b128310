package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/usecase"
	"github.com/gaze-network/ido-ledger/pkg/middleware/requestcontext"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
)

type withdrawResponse = common.HttpResponse[withdrawal]

func (h *HttpHandler) Withdraw(ctx *fiber.Ctx) (err error) {
	env, err := requestcontext.Env(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	w, err := h.usecase.Withdraw(ctx.UserContext(), env)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}

	resp := withdrawResponse{
		Result: &withdrawal{
			ID:          w.ID,
			Amount:      w.Amount,
			RequestedAt: w.RequestedAt.Unix(),
			ClaimableAt: w.ClaimableAt.Unix(),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}

type claimRequest struct {
	Recipient string `json:"recipient"`
	Offset    uint64 `json:"offset"`
	Limit     uint64 `json:"limit"`
}

func (r claimRequest) Validate() error {
	var errList []error
	if r.Limit > maxPageLimit {
		errList = append(errList, errors.Errorf("'limit' must be at most %d", maxPageLimit))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type claimResult struct {
	Claimed uint128.Uint128 `json:"claimed"`
}

type claimResponse = common.HttpResponse[claimResult]

func (h *HttpHandler) Claim(ctx *fiber.Ctx) (err error) {
	var req claimRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}
	env, err := requestcontext.Env(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	claimed, err := h.usecase.Claim(ctx.UserContext(), env, usecase.ClaimParams{
		Recipient: req.Recipient,
		Offset:    req.Offset,
		Limit:     req.Limit,
	})
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return errors.WithStack(ctx.JSON(claimResponse{Result: &claimResult{Claimed: claimed}}))
}
