package httphandler

import (
	"fmt"

	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/modules/ido/internal/usecase"
	"github.com/gaze-network/uint128"
)

const maxPageLimit = 1000

type HttpHandler struct {
	usecase *usecase.Usecase
}

func New(usecase *usecase.Usecase) *HttpHandler {
	return &HttpHandler{
		usecase: usecase,
	}
}

// parseAmount parses a decimal amount of a request body. An empty value is zero.
func parseAmount(field, value string) (uint128.Uint128, error) {
	if value == "" {
		return uint128.Zero, nil
	}
	amount, err := uint128.FromString(value)
	if err != nil {
		return uint128.Zero, errs.NewPublicErrorWithCode(fmt.Sprintf("'%s' must be an unsigned integer", field), errs.InvalidArgument.Code())
	}
	return amount, nil
}
