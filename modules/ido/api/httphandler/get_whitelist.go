package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type getWhitelistRequest struct {
	ID     uint64 `params:"id"`
	Offset uint64 `query:"offset"`
	Limit  uint64 `query:"limit"`
}

func (r getWhitelistRequest) Validate() error {
	var errList []error
	if r.Limit > maxPageLimit {
		errList = append(errList, errors.Errorf("'limit' must be at most %d", maxPageLimit))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type getWhitelistResponse = common.HttpResponse[common.Page[string]]

func (h *HttpHandler) GetSaleWhitelist(ctx *fiber.Ctx) (err error) {
	var req getWhitelistRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	return h.getWhitelist(ctx, req, &req.ID)
}

func (h *HttpHandler) GetSharedWhitelist(ctx *fiber.Ctx) (err error) {
	return h.getWhitelist(ctx, getWhitelistRequest{}, nil)
}

func (h *HttpHandler) getWhitelist(ctx *fiber.Ctx, req getWhitelistRequest, saleID *uint64) error {
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	list, total, err := h.usecase.Whitelist(ctx.UserContext(), saleID, req.Offset, req.Limit)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return errors.WithStack(ctx.JSON(getWhitelistResponse{Result: &common.Page[string]{List: list, Total: total}}))
}

type getEligibilityRequest struct {
	ID      uint64 `params:"id"`
	Address string `params:"address"`
}

type getEligibilityResult struct {
	Address  string `json:"address"`
	SaleID   uint64 `json:"saleId"`
	Eligible bool   `json:"eligible"`
	Tier     uint8  `json:"tier"` // staking tier, without NFT
}

type getEligibilityResponse = common.HttpResponse[getEligibilityResult]

func (h *HttpHandler) GetEligibility(ctx *fiber.Ctx) (err error) {
	var req getEligibilityRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if req.Address == "" {
		return errs.NewPublicError("'address' is required")
	}

	eligible, err := h.usecase.IsEligible(ctx.UserContext(), req.Address, req.ID)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	tier, err := h.usecase.EffectiveTier(ctx.UserContext(), req.Address, nil)
	if err != nil {
		return errors.Wrap(err, "error during EffectiveTier")
	}
	return errors.WithStack(ctx.JSON(getEligibilityResponse{Result: lo.ToPtr(getEligibilityResult{
		Address:  req.Address,
		SaleID:   req.ID,
		Eligible: eligible,
		Tier:     tier,
	})}))
}
