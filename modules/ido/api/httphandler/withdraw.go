package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/pkg/middleware/requestcontext"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
)

type withdrawResult struct {
	Unsold uint128.Uint128 `json:"unsold"`
}

type withdrawResponse = common.HttpResponse[withdrawResult]

func (h *HttpHandler) Withdraw(ctx *fiber.Ctx) (err error) {
	var req saleRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	env, err := requestcontext.Env(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	unsold, err := h.usecase.Withdraw(ctx.UserContext(), env, req.ID)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return errors.WithStack(ctx.JSON(withdrawResponse{Result: &withdrawResult{Unsold: unsold}}))
}
