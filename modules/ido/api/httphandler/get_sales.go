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

type sale struct {
	ID               uint64               `json:"id"`
	Owner            string               `json:"owner"`
	StartTime        int64                `json:"startTime"` // unix timestamp
	EndTime          int64                `json:"endTime"`   // unix timestamp
	Price            uint128.Uint128      `json:"price"`
	Payment          entity.PaymentMethod `json:"payment"`
	TokenContract    string               `json:"tokenContract"`
	Total            uint128.Uint128      `json:"total"`
	Sold             uint128.Uint128      `json:"sold"`
	TotalPayment     uint128.Uint128      `json:"totalPayment"`
	TokensPerTier    []uint128.Uint128    `json:"tokensPerTier,omitempty"`
	RemainingPerTier []uint128.Uint128    `json:"remainingPerTier,omitempty"`
	Participants     uint64               `json:"participants"`
	Withdrawn        bool                 `json:"withdrawn"`
	WhitelistMode    string               `json:"whitelistMode"`
	UnlockAnchor     string               `json:"unlockAnchor"`
}

func saleOf(s *entity.Sale) sale {
	return sale{
		ID:               s.ID,
		Owner:            s.Owner,
		StartTime:        s.StartTime.Unix(),
		EndTime:          s.EndTime.Unix(),
		Price:            s.Price,
		Payment:          s.Payment,
		TokenContract:    s.TokenContract,
		Total:            s.Total,
		Sold:             s.Sold,
		TotalPayment:     s.TotalPayment,
		TokensPerTier:    s.TokensPerTier,
		RemainingPerTier: s.RemainingPerTier,
		Participants:     s.Participants,
		Withdrawn:        s.Withdrawn,
		WhitelistMode:    string(s.WhitelistMode),
		UnlockAnchor:     string(s.UnlockAnchor),
	}
}

type saleRequest struct {
	ID uint64 `params:"id"`
}

func (r saleRequest) Validate() error {
	var errList []error
	if r.ID == 0 {
		errList = append(errList, errors.New("'id' must be a positive integer"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type getSaleResponse = common.HttpResponse[sale]

func (h *HttpHandler) GetSale(ctx *fiber.Ctx) (err error) {
	var req saleRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	s, err := h.usecase.SaleInfo(ctx.UserContext(), req.ID)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return errors.WithStack(ctx.JSON(getSaleResponse{Result: lo.ToPtr(saleOf(s))}))
}

type getSaleAmountResult struct {
	Amount uint64 `json:"amount"`
}

type getSaleAmountResponse = common.HttpResponse[getSaleAmountResult]

func (h *HttpHandler) GetSaleAmount(ctx *fiber.Ctx) (err error) {
	amount, err := h.usecase.SaleAmount(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during SaleAmount")
	}
	return errors.WithStack(ctx.JSON(getSaleAmountResponse{Result: &getSaleAmountResult{Amount: amount}}))
}

type getSalesByOwnerRequest struct {
	Owner  string `params:"owner"`
	Offset uint64 `query:"offset"`
	Limit  uint64 `query:"limit"`
}

func (r getSalesByOwnerRequest) Validate() error {
	var errList []error
	if r.Owner == "" {
		errList = append(errList, errors.New("'owner' is required"))
	}
	if r.Limit > maxPageLimit {
		errList = append(errList, errors.Errorf("'limit' must be at most %d", maxPageLimit))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type getSalesByOwnerResponse = common.HttpResponse[common.Page[sale]]

func (h *HttpHandler) GetSalesByOwner(ctx *fiber.Ctx) (err error) {
	var req getSalesByOwnerRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	sales, total, err := h.usecase.SalesOwnedBy(ctx.UserContext(), req.Owner, req.Offset, req.Limit)
	if err != nil {
		return errors.Wrap(err, "error during SalesOwnedBy")
	}
	resp := getSalesByOwnerResponse{
		Result: &common.Page[sale]{
			List:  lo.Map(sales, func(s *entity.Sale, _ int) sale { return saleOf(s) }),
			Total: total,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
