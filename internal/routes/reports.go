package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/reporting"
)

// RegisterReportRoutes wires inventory and sales reports.
func RegisterReportRoutes(r fiber.Router, h *reporting.Handler) {
	r.Get("/reports/networks/:networkId/categories/:categoryId/counts", h.Counts)
	r.Get("/reports/networks/:networkId/sales", h.Sales)
}
