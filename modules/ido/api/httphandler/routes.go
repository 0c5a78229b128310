package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/ido/v1")

	r.Get("/config", h.GetConfig)
	r.Get("/sales", h.GetSaleAmount)
	r.Get("/sales/:id", h.GetSale)
	r.Get("/sales/:id/whitelist", h.GetSaleWhitelist)
	r.Get("/sales/:id/eligibility/:address", h.GetEligibility)
	r.Get("/owners/:owner/sales", h.GetSalesByOwner)
	r.Get("/whitelist", h.GetSharedWhitelist)
	r.Get("/users/:address", h.GetUserInfo)
	r.Get("/users/:address/sales/:id", h.GetUserSaleInfo)
	r.Get("/users/:address/sales/:id/purchases", h.GetPurchases)
	r.Get("/users/:address/sales/:id/archive", h.GetArchivedPurchases)

	r.Post("/sales", h.StartSale)
	r.Post("/sales/:id/buy", h.Buy)
	r.Post("/sales/:id/recv", h.RecvTokens)
	r.Post("/sales/:id/withdraw", h.Withdraw)
	r.Post("/sales/:id/whitelist/add", h.SaleWhitelistAdd)
	r.Post("/sales/:id/whitelist/remove", h.SaleWhitelistRemove)

	admin := r.Group("/admin")
	admin.Post("/whitelist/add", h.SharedWhitelistAdd)
	admin.Post("/whitelist/remove", h.SharedWhitelistRemove)
	admin.Post("/status", h.ChangeStatus)
	admin.Post("/admin", h.ChangeAdmin)
	return nil
}
