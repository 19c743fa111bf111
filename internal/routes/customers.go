package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/customer"
)

// RegisterCustomerRoutes wires account endpoints.
func RegisterCustomerRoutes(r fiber.Router, h *customer.Handler) {
	r.Get("/me", h.Me)
	r.Post("/customers", h.Register)
}
