package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/pkg/middleware/requestcontext"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
)

type depositRequest struct {
	Funds []string `json:"funds"` // e.g. ["1000000uscrt"]
}

type depositResult struct {
	Deposit       uint128.Uint128 `json:"deposit"`
	NativeDeposit uint128.Uint128 `json:"nativeDeposit"`
	Tier          uint8           `json:"tier"`
	Refund        uint128.Uint128 `json:"refund"`
}

type depositResponse = common.HttpResponse[depositResult]

func (h *HttpHandler) Deposit(ctx *fiber.Ctx) (err error) {
	var req depositRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	env, err := requestcontext.Env(ctx, req.Funds)
	if err != nil {
		return errors.WithStack(err)
	}

	result, err := h.usecase.Deposit(ctx.UserContext(), env)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}

	resp := depositResponse{
		Result: &depositResult{
			Deposit:       result.Deposit,
			NativeDeposit: result.NativeDeposit,
			Tier:          result.Tier,
			Refund:        result.Refund,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
