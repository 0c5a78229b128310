package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/pkg/middleware/requestcontext"
	"github.com/gofiber/fiber/v2"
)

type statusResult struct {
	Status string `json:"status"`
}

type statusResponse = common.HttpResponse[statusResult]

func ok(ctx *fiber.Ctx) error {
	return errors.WithStack(ctx.JSON(statusResponse{Result: &statusResult{Status: "success"}}))
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (h *HttpHandler) ChangeStatus(ctx *fiber.Ctx) (err error) {
	var req changeStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	env, err := requestcontext.Env(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := h.usecase.ChangeStatus(ctx.UserContext(), env, types.Status(req.Status)); err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return ok(ctx)
}

type changeAdminRequest struct {
	Admin string `json:"admin"`
}

func (h *HttpHandler) ChangeAdmin(ctx *fiber.Ctx) (err error) {
	var req changeAdminRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	env, err := requestcontext.Env(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := h.usecase.ChangeAdmin(ctx.UserContext(), env, req.Admin); err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return ok(ctx)
}
