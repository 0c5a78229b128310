package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
)

type tierLimit struct {
	Tier       uint8           `json:"tier"`
	MaxPayment uint128.Uint128 `json:"maxPayment"`
	LockPeriod int64           `json:"lockPeriod"` // seconds
}

type getConfigResult struct {
	Address      string      `json:"address"`
	Admin        string      `json:"admin"`
	Status       string      `json:"status"`
	NativeDenom  string      `json:"nativeDenom"`
	NftContract  string      `json:"nftContract,omitempty"`
	UnlockAnchor string      `json:"unlockAnchor"`
	Tiers        []tierLimit `json:"tiers"` // best tier first
}

type getConfigResponse = common.HttpResponse[getConfigResult]

func (h *HttpHandler) GetConfig(ctx *fiber.Ctx) (err error) {
	config, err := h.usecase.Config(ctx.UserContext())
	if err != nil {
		return errors.Wrap(err, "error during Config")
	}

	tiers := make([]tierLimit, 0, config.Tiers())
	for tier := uint8(1); int(tier) <= config.Tiers(); tier++ {
		lock, err := config.LockPeriod(tier)
		if err != nil {
			return errors.Wrap(err, "invalid lock periods")
		}
		tiers = append(tiers, tierLimit{
			Tier:       tier,
			MaxPayment: config.MaxPayments[config.Tiers()-int(tier)],
			LockPeriod: int64(lock.Seconds()),
		})
	}
	resp := getConfigResponse{
		Result: &getConfigResult{
			Address:      h.usecase.Address(),
			Admin:        config.Admin,
			Status:       string(config.Status),
			NativeDenom:  config.NativeDenom,
			NftContract:  config.NftContract,
			UnlockAnchor: string(config.UnlockAnchor),
			Tiers:        tiers,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
