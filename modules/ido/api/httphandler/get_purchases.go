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

type getPurchasesRequest struct {
	Address string `params:"address"`
	ID      uint64 `params:"id"`
	Offset  uint64 `query:"offset"`
	Limit   uint64 `query:"limit"`
}

func (r getPurchasesRequest) Validate() error {
	var errList []error
	if r.Address == "" {
		errList = append(errList, errors.New("'address' is required"))
	}
	if r.Limit > maxPageLimit {
		errList = append(errList, errors.Errorf("'limit' must be at most %d", maxPageLimit))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type purchase struct {
	Index       uint64          `json:"index"`
	Payment     uint128.Uint128 `json:"payment"`
	Tokens      uint128.Uint128 `json:"tokens"`
	PurchasedAt int64           `json:"purchasedAt"`          // unix timestamp
	UnlockAt    int64           `json:"unlockAt"`             // unix timestamp
	ReceivedAt  int64           `json:"receivedAt,omitempty"` // unix timestamp, archived purchases only
}

func purchaseOf(p *entity.Purchase) purchase {
	return purchase{
		Index:       p.Index,
		Payment:     p.Payment,
		Tokens:      p.Tokens,
		PurchasedAt: p.PurchasedAt.Unix(),
		UnlockAt:    p.UnlockAt.Unix(),
	}
}

type getPurchasesResponse = common.HttpResponse[common.Page[purchase]]

func (r *getPurchasesRequest) parse(ctx *fiber.Ctx) error {
	if err := ctx.ParamsParser(r); err != nil {
		return errors.WithStack(err)
	}
	if err := ctx.QueryParser(r); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(r.Validate())
}

func (h *HttpHandler) GetPurchases(ctx *fiber.Ctx) (err error) {
	var req getPurchasesRequest
	if err := req.parse(ctx); err != nil {
		return errors.WithStack(err)
	}

	list, total, err := h.usecase.Purchases(ctx.UserContext(), req.Address, req.ID, req.Offset, req.Limit)
	if err != nil {
		return errors.Wrap(err, "error during Purchases")
	}
	resp := getPurchasesResponse{
		Result: &common.Page[purchase]{
			List:  lo.Map(list, func(p *entity.Purchase, _ int) purchase { return purchaseOf(p) }),
			Total: total,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}

func (h *HttpHandler) GetArchivedPurchases(ctx *fiber.Ctx) (err error) {
	var req getPurchasesRequest
	if err := req.parse(ctx); err != nil {
		return errors.WithStack(err)
	}

	list, total, err := h.usecase.ArchivedPurchases(ctx.UserContext(), req.Address, req.ID, req.Offset, req.Limit)
	if err != nil {
		return errors.Wrap(err, "error during ArchivedPurchases")
	}
	resp := getPurchasesResponse{
		Result: &common.Page[purchase]{
			List: lo.Map(list, func(p *entity.ArchivedPurchase, _ int) purchase {
				item := purchaseOf(&p.Purchase)
				item.ReceivedAt = p.ReceivedAt.Unix()
				return item
			}),
			Total: total,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
