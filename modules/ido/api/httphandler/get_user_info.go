package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type getUserInfoRequest struct {
	Address string `params:"address"`
	ID      uint64 `params:"id"`
}

func (r getUserInfoRequest) Validate() error {
	var errList []error
	if r.Address == "" {
		errList = append(errList, errors.New("'address' is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type userInfo struct {
	Address             string          `json:"address"`
	SaleID              *uint64         `json:"saleId,omitempty"`
	TotalPayment        uint128.Uint128 `json:"totalPayment"`
	TotalTokensBought   uint128.Uint128 `json:"totalTokensBought"`
	TotalTokensReceived uint128.Uint128 `json:"totalTokensReceived"`
	Pending             uint128.Uint128 `json:"pending"`
	ActiveSales         []uint64        `json:"activeSales,omitempty"`
}

func userInfoOf(info *entity.UserInfo) userInfo {
	return userInfo{
		Address:             info.Address,
		SaleID:              info.SaleID,
		TotalPayment:        info.TotalPayment,
		TotalTokensBought:   info.TotalTokensBought,
		TotalTokensReceived: info.TotalTokensReceived,
		Pending:             info.Pending(),
	}
}

type getUserInfoResponse = common.HttpResponse[userInfo]

// GetUserInfo returns the totals of a participant across every sale, with the sales they still have tokens to receive from.
func (h *HttpHandler) GetUserInfo(ctx *fiber.Ctx) (err error) {
	var req getUserInfoRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	info, err := h.usecase.UserInfo(ctx.UserContext(), req.Address, nil)
	if err != nil {
		return errors.Wrap(err, "error during UserInfo")
	}
	active, err := h.usecase.ActiveSales(ctx.UserContext(), req.Address)
	if err != nil {
		return errors.Wrap(err, "error during ActiveSales")
	}
	result := userInfoOf(info)
	result.ActiveSales = active
	return errors.WithStack(ctx.JSON(getUserInfoResponse{Result: &result}))
}

func (h *HttpHandler) GetUserSaleInfo(ctx *fiber.Ctx) (err error) {
	var req getUserInfoRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	info, err := h.usecase.UserInfo(ctx.UserContext(), req.Address, &req.ID)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return errors.WithStack(ctx.JSON(getUserInfoResponse{Result: lo.ToPtr(userInfoOf(info))}))
}
