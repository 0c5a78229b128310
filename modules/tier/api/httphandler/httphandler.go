package httphandler

import (
	"github.com/gaze-network/ido-ledger/modules/tier/internal/usecase"
)

type HttpHandler struct {
	usecase *usecase.Usecase
}

func New(usecase *usecase.Usecase) *HttpHandler {
	return &HttpHandler{
		usecase: usecase,
	}
}
