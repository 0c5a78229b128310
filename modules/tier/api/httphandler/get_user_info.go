package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
)

type getUserInfoRequest struct {
	Address string `params:"address"`
}

func (r getUserInfoRequest) Validate() error {
	var errList []error
	if r.Address == "" {
		errList = append(errList, errors.New("'address' is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type stake struct {
	Deposit        uint128.Uint128 `json:"deposit"`
	NativeDeposit  uint128.Uint128 `json:"nativeDeposit"`
	DepositedAt    int64           `json:"depositedAt"`    // unix timestamp
	WithdrawableAt int64           `json:"withdrawableAt"` // unix timestamp
}

type getUserInfoResult struct {
	Address string `json:"address"`
	Tier    uint8  `json:"tier"`          // 0 without stake
	Grade   uint8  `json:"effectiveTier"` // tier used by sales
	Stake   *stake `json:"stake"`
}

type getUserInfoResponse = common.HttpResponse[getUserInfoResult]

func (h *HttpHandler) GetUserInfo(ctx *fiber.Ctx) (err error) {
	var req getUserInfoRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	info, err := h.usecase.UserInfo(ctx.UserContext(), req.Address)
	if err != nil {
		return errors.Wrap(err, "error during UserInfo")
	}
	grade, err := h.usecase.TierOf(ctx.UserContext(), req.Address)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}

	result := getUserInfoResult{
		Address: req.Address,
		Tier:    info.Tier,
		Grade:   grade,
	}
	if info.Stake != nil {
		result.Stake = &stake{
			Deposit:        info.Stake.Deposit,
			NativeDeposit:  info.Stake.NativeDeposit,
			DepositedAt:    info.Stake.DepositedAt.Unix(),
			WithdrawableAt: info.Stake.WithdrawableAt.Unix(),
		}
	}
	return errors.WithStack(ctx.JSON(getUserInfoResponse{Result: &result}))
}
