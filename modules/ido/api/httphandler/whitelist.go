package httphandler

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/ido-ledger/pkg/middleware/requestcontext"
	"github.com/gofiber/fiber/v2"
)

type whitelistRequest struct {
	ID        uint64   `params:"id"`
	Addresses []string `json:"addresses"`
}

type whitelistResult struct {
	WhitelistSize uint64 `json:"whitelistSize"`
}

type whitelistResponse = common.HttpResponse[whitelistResult]

type whitelistFunc func(ctx context.Context, env types.Env, saleID *uint64, addresses []string) (uint64, error)

func (h *HttpHandler) SaleWhitelistAdd(ctx *fiber.Ctx) (err error) {
	return h.updateWhitelist(ctx, true, h.usecase.WhitelistAdd)
}

func (h *HttpHandler) SaleWhitelistRemove(ctx *fiber.Ctx) (err error) {
	return h.updateWhitelist(ctx, true, h.usecase.WhitelistRemove)
}

func (h *HttpHandler) SharedWhitelistAdd(ctx *fiber.Ctx) (err error) {
	return h.updateWhitelist(ctx, false, h.usecase.WhitelistAdd)
}

func (h *HttpHandler) SharedWhitelistRemove(ctx *fiber.Ctx) (err error) {
	return h.updateWhitelist(ctx, false, h.usecase.WhitelistRemove)
}

func (h *HttpHandler) updateWhitelist(ctx *fiber.Ctx, perSale bool, update whitelistFunc) error {
	var req whitelistRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	env, err := requestcontext.Env(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	var saleID *uint64
	if perSale {
		saleID = &req.ID
	}
	size, err := update(ctx.UserContext(), env, saleID, req.Addresses)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return errors.WithStack(ctx.JSON(whitelistResponse{Result: &whitelistResult{WhitelistSize: size}}))
}
