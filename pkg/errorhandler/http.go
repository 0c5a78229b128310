package errorhandler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gaze-network/ido-ledger/pkg/logger/slogx"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

var kindStatus = map[errs.ErrorKind]int{
	errs.NotFound:             http.StatusNotFound,
	errs.InvalidArgument:      http.StatusBadRequest,
	errs.Unsupported:          http.StatusBadRequest,
	errs.UnsupportedDenom:     http.StatusBadRequest,
	errs.Unauthorized:         http.StatusForbidden,
	errs.ContractStopped:      http.StatusServiceUnavailable,
	errs.SaleNotActive:        http.StatusConflict,
	errs.SaleNotFinished:      http.StatusConflict,
	errs.LockPeriodNotElapsed: http.StatusConflict,
	errs.AlreadyWithdrawn:     http.StatusConflict,
	errs.Conflict:             http.StatusConflict,
}

// StatusOf returns the HTTP status of a ledger rejection. Unknown errors are internal errors.
func StatusOf(err error) int {
	kind, ok := errs.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	switch kind {
	case errs.OverflowUint64, errs.OverflowUint128:
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}

func NewHTTPErrorHandler() func(ctx *fiber.Ctx, err error) error {
	return func(ctx *fiber.Ctx, err error) error {
		if e := new(errs.PublicError); errors.As(err, &e) {
			status := http.StatusBadRequest
			if _, ok := errs.KindOf(err); ok {
				status = StatusOf(err)
			}
			return errors.WithStack(ctx.Status(status).JSON(common.HttpResponse[any]{
				Error: lo.ToPtr(e.Message()),
				Code:  lo.EmptyableToPtr(e.Code()),
			}))
		}
		if e := new(fiber.Error); errors.As(err, &e) {
			return errors.WithStack(ctx.Status(e.Code).JSON(common.HttpResponse[any]{
				Error: lo.ToPtr(e.Error()),
			}))
		}

		logger.ErrorContext(ctx.UserContext(), "Something went wrong, unhandled api error", err,
			slogx.String("event", "api_unhandled_error"),
		)

		return errors.WithStack(ctx.Status(http.StatusInternalServerError).JSON(common.HttpResponse[any]{
			Error: lo.ToPtr("Internal Server Error"),
		}))
	}
}
