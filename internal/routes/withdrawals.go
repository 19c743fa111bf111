package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/withdrawal"
)

// RegisterWithdrawalRoutes wires the admin withdrawal queue.
func RegisterWithdrawalRoutes(r fiber.Router, h *withdrawal.Handler) {
	r.Get("/withdrawals/pending", h.Pending)
	r.Post("/withdrawals/resolve", h.Resolve)
}
