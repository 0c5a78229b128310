package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/modules/tier/internal/entity"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

const maxPageLimit = 1000

type getWithdrawalsRequest struct {
	Address string `params:"address"`
	Offset  uint64 `query:"offset"`
	Limit   uint64 `query:"limit"`
}

func (r getWithdrawalsRequest) Validate() error {
	var errList []error
	if r.Address == "" {
		errList = append(errList, errors.New("'address' is required"))
	}
	if r.Limit > maxPageLimit {
		errList = append(errList, errors.Errorf("'limit' must be at most %d", maxPageLimit))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type withdrawal struct {
	ID          uint64          `json:"id"`
	Amount      uint128.Uint128 `json:"amount"`
	RequestedAt int64           `json:"requestedAt"` // unix timestamp
	ClaimableAt int64           `json:"claimableAt"` // unix timestamp
}

type getWithdrawalsResponse = common.HttpResponse[common.Page[withdrawal]]

func (h *HttpHandler) GetWithdrawals(ctx *fiber.Ctx) (err error) {
	var req getWithdrawalsRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	list, total, err := h.usecase.Withdrawals(ctx.UserContext(), req.Address, req.Offset, req.Limit)
	if err != nil {
		return errors.Wrap(err, "error during Withdrawals")
	}

	resp := getWithdrawalsResponse{
		Result: &common.Page[withdrawal]{
			List: lo.Map(list, func(w *entity.Withdrawal, _ int) withdrawal {
				return withdrawal{
					ID:          w.ID,
					Amount:      w.Amount,
					RequestedAt: w.RequestedAt.Unix(),
					ClaimableAt: w.ClaimableAt.Unix(),
				}
			}),
			Total: total,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
