package requestcontext

import (
	"context"
	"net/http"
	"strings"

	"github.com/gaze-network/ido-ledger/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

// SenderHeader carries the address of the account a request acts on behalf of.
// Signature verification happens upstream, the ledger trusts this header.
const SenderHeader = "X-Sender"

type senderKey struct{}

// GetSender returns the sender attached by WithSender, or empty string.
func GetSender(ctx context.Context) string {
	if sender, ok := ctx.Value(senderKey{}).(string); ok {
		return sender
	}
	return ""
}

// WithSender reads the sender address of mutating requests.
// validate is called on the address when it's present.
func WithSender(validate func(string) error) Option {
	return func(ctx context.Context, c *fiber.Ctx) (context.Context, error) {
		sender := strings.TrimSpace(c.Get(SenderHeader))
		if sender == "" {
			return ctx, nil
		}
		if validate != nil {
			if err := validate(sender); err != nil {
				return ctx, requestcontextError{err: err, status: http.StatusBadRequest, message: "invalid " + SenderHeader + " header"}
			}
		}
		ctx = context.WithValue(ctx, senderKey{}, sender)
		ctx = logger.WithContext(ctx, "sender", sender)
		return ctx, nil
	}
}
