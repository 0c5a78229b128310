package httphandler

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/entity"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/usecase"
	"github.com/gaze-network/ido-ledger/pkg/middleware/requestcontext"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
)

type startSaleRequest struct {
	StartTime     int64                `json:"startTime"` // unix timestamp
	EndTime       int64                `json:"endTime"`   // unix timestamp
	Price         string               `json:"price"`
	Payment       entity.PaymentMethod `json:"payment"`
	TokenContract string               `json:"tokenContract"`
	Total         string               `json:"total"`
	TokensPerTier []string             `json:"tokensPerTier"` // worst tier first
	WhitelistMode string               `json:"whitelistMode"`
	UnlockAnchor  string               `json:"unlockAnchor"`
	Whitelist     []string             `json:"whitelist"`
}

func (r startSaleRequest) Params() (usecase.StartSaleParams, error) {
	price, err := parseAmount("price", r.Price)
	if err != nil {
		return usecase.StartSaleParams{}, errors.WithStack(err)
	}
	total, err := parseAmount("total", r.Total)
	if err != nil {
		return usecase.StartSaleParams{}, errors.WithStack(err)
	}
	var perTier []uint128.Uint128
	for i, value := range r.TokensPerTier {
		amount, err := parseAmount(fmt.Sprintf("tokensPerTier[%d]", i), value)
		if err != nil {
			return usecase.StartSaleParams{}, errors.WithStack(err)
		}
		perTier = append(perTier, amount)
	}
	return usecase.StartSaleParams{
		StartTime:     time.Unix(r.StartTime, 0).UTC(),
		EndTime:       time.Unix(r.EndTime, 0).UTC(),
		Price:         price,
		Payment:       r.Payment,
		TokenContract: r.TokenContract,
		Total:         total,
		TokensPerTier: perTier,
		WhitelistMode: entity.WhitelistMode(r.WhitelistMode),
		UnlockAnchor:  entity.UnlockAnchor(r.UnlockAnchor),
		Whitelist:     r.Whitelist,
	}, nil
}

type startSaleResult struct {
	SaleID        uint64 `json:"saleId"`
	WhitelistSize uint64 `json:"whitelistSize"`
}

type startSaleResponse = common.HttpResponse[startSaleResult]

func (h *HttpHandler) StartSale(ctx *fiber.Ctx) (err error) {
	var req startSaleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	params, err := req.Params()
	if err != nil {
		return errors.WithStack(err)
	}
	env, err := requestcontext.Env(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	result, err := h.usecase.StartSale(ctx.UserContext(), env, params)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return errors.WithStack(ctx.JSON(startSaleResponse{Result: &startSaleResult{
		SaleID:        result.SaleID,
		WhitelistSize: result.WhitelistSize,
	}}))
}
