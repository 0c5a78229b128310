package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/usecase"
	"github.com/gaze-network/ido-ledger/pkg/middleware/requestcontext"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
)

type statusResult struct {
	Status string `json:"status"`
}

type statusResponse = common.HttpResponse[statusResult]

func ok(ctx *fiber.Ctx) error {
	return errors.WithStack(ctx.JSON(statusResponse{Result: &statusResult{Status: "success"}}))
}

type redelegateRequest struct {
	Validator string `json:"validator"`
	Recipient string `json:"recipient"`
}

func (h *HttpHandler) Redelegate(ctx *fiber.Ctx) (err error) {
	var req redelegateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	env, err := requestcontext.Env(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := h.usecase.Redelegate(ctx.UserContext(), env, usecase.RedelegateParams{
		Validator: req.Validator,
		Recipient: req.Recipient,
	}); err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return ok(ctx)
}

type withdrawRewardsRequest struct {
	Recipient string `json:"recipient"`
}

type withdrawRewardsResult struct {
	Rewards uint128.Uint128 `json:"rewards"`
}

type withdrawRewardsResponse = common.HttpResponse[withdrawRewardsResult]

func (h *HttpHandler) WithdrawRewards(ctx *fiber.Ctx) (err error) {
	var req withdrawRewardsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	env, err := requestcontext.Env(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	rewards, err := h.usecase.WithdrawRewards(ctx.UserContext(), env, req.Recipient)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return errors.WithStack(ctx.JSON(withdrawRewardsResponse{Result: &withdrawRewardsResult{Rewards: rewards}}))
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
