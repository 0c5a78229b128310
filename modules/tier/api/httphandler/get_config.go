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

type tier struct {
	Tier       uint8           `json:"tier"`
	Deposit    uint128.Uint128 `json:"deposit"`
	LockPeriod int64           `json:"lockPeriod"` // seconds
	LockMonths int             `json:"lockMonths"`
}

type getConfigResult struct {
	Admin           string          `json:"admin"`
	Status          string          `json:"status"`
	Address         string          `json:"address"`
	Validator       string          `json:"validator,omitempty"`
	Denom           string          `json:"denom"`
	Variant         string          `json:"variant"`
	Saturation      string          `json:"saturation"`
	UnbondingPeriod int64           `json:"unbondingPeriod"` // seconds
	MinTier         uint8           `json:"minTier"`
	Tiers           []tier          `json:"tiers"`
	Balance         uint128.Uint128 `json:"balance"`
	Unbonding       uint128.Uint128 `json:"unbonding"`
}

type getConfigResponse = common.HttpResponse[getConfigResult]

func (h *HttpHandler) GetConfig(ctx *fiber.Ctx) (err error) {
	config, err := h.usecase.Config(ctx.UserContext())
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}

	resp := getConfigResponse{
		Result: &getConfigResult{
			Admin:           config.Admin,
			Status:          config.Status.String(),
			Address:         h.usecase.Address(),
			Validator:       config.Validator,
			Denom:           config.Denom,
			Variant:         string(config.Variant),
			Saturation:      string(config.Saturation),
			UnbondingPeriod: int64(config.UnbondingPeriod.Seconds()),
			MinTier:         config.MinTier(),
			Tiers: lo.Map(config.Tiers, func(t entity.Tier, i int) tier {
				return tier{
					Tier:       uint8(i + 1),
					Deposit:    t.Deposit,
					LockPeriod: int64(t.LockPeriod.Seconds()),
					LockMonths: t.LockMonths,
				}
			}),
			Balance:   config.Balance,
			Unbonding: config.Unbonding,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
