package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/tier/v1")

	r.Get("/config", h.GetConfig)
	r.Get("/users/:address", h.GetUserInfo)
	r.Get("/users/:address/withdrawals", h.GetWithdrawals)

	r.Post("/deposit", h.Deposit)
	r.Post("/withdraw", h.Withdraw)
	r.Post("/claim", h.Claim)

	admin := r.Group("/admin")
	admin.Post("/redelegate", h.Redelegate)
	admin.Post("/withdraw-rewards", h.WithdrawRewards)
	admin.Post("/status", h.ChangeStatus)
	admin.Post("/admin", h.ChangeAdmin)
	return nil
}
