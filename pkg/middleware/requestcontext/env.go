package requestcontext

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ido-ledger/common/errs"
	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gofiber/fiber/v2"
)

// Env describes the call of a mutating request. The sender must be attached by WithSender.
func Env(c *fiber.Ctx, funds []string) (types.Env, error) {
	sender := GetSender(c.UserContext())
	if sender == "" {
		return types.Env{}, errs.NewPublicErrorWithCode(SenderHeader+" header is required", errs.Unauthorized.Code())
	}
	coins, err := types.ParseCoins(funds)
	if err != nil {
		return types.Env{}, errors.WithStack(errs.WithPublicKind(err))
	}
	return types.Env{
		Sender:    sender,
		BlockTime: time.Now().UTC().Truncate(time.Second),
		Funds:     coins,
	}, nil
}
