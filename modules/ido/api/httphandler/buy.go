package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/usecase"
	"github.com/gaze-network/ido-ledger/pkg/middleware/requestcontext"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
)

type nftProof struct {
	TokenID    string `json:"tokenId"`
	ViewingKey string `json:"viewingKey"`
}

type buyRequest struct {
	ID     uint64    `params:"id"`
	Funds  []string  `json:"funds"`  // native payment, e.g. ["1000uscrt"]
	Amount string    `json:"amount"` // token payment
	Nft    *nftProof `json:"nft"`
}

type buyResult struct {
	Tier     uint8           `json:"tier"`
	Index    uint64          `json:"index"`
	Payment  uint128.Uint128 `json:"payment"`
	Tokens   uint128.Uint128 `json:"tokens"`
	UnlockAt int64           `json:"unlockAt"` // unix timestamp
}

type buyResponse = common.HttpResponse[buyResult]

func (h *HttpHandler) Buy(ctx *fiber.Ctx) (err error) {
	var req buyRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return errors.WithStack(err)
	}
	env, err := requestcontext.Env(ctx, req.Funds)
	if err != nil {
		return errors.WithStack(err)
	}

	params := usecase.BuyParams{SaleID: req.ID, Amount: amount}
	if req.Nft != nil {
		params.Proof = &usecase.NftProof{TokenID: req.Nft.TokenID, ViewingKey: req.Nft.ViewingKey}
	}
	result, err := h.usecase.Buy(ctx.UserContext(), env, params)
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return errors.WithStack(ctx.JSON(buyResponse{Result: &buyResult{
		Tier:     result.Tier,
		Index:    result.Index,
		Payment:  result.Payment,
		Tokens:   result.Tokens,
		UnlockAt: result.UnlockAt.Unix(),
	}}))
}

type recvTokensRequest struct {
	ID     uint64 `params:"id"`
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

func (r recvTokensRequest) Validate() error {
	var errList []error
	if r.Limit > maxPageLimit {
		errList = append(errList, errors.Errorf("'limit' must be at most %d", maxPageLimit))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type recvTokensResult struct {
	Tokens    uint128.Uint128 `json:"tokens"`
	Purchases int             `json:"purchases"`
}

type recvTokensResponse = common.HttpResponse[recvTokensResult]

func (h *HttpHandler) RecvTokens(ctx *fiber.Ctx) (err error) {
	var req recvTokensRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return errors.WithStack(err)
		}
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}
	env, err := requestcontext.Env(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	result, err := h.usecase.RecvTokens(ctx.UserContext(), env, usecase.RecvTokensParams{
		SaleID: req.ID,
		Offset: req.Offset,
		Limit:  req.Limit,
	})
	if err != nil {
		return errors.WithStack(errs.WithPublicKind(err))
	}
	return errors.WithStack(ctx.JSON(recvTokensResponse{Result: &recvTokensResult{
		Tokens:    result.Tokens,
		Purchases: result.Purchases,
	}}))
}
