package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/catalog"
	"github.com/shabakat/ledger/internal/inventory"
)

// RegisterCatalogRoutes wires network configuration and card import.
func RegisterCatalogRoutes(r fiber.Router, networks *catalog.Handler, cards *inventory.Handler) {
	r.Get("/networks/:networkId", networks.GetNetwork)
	r.Put("/networks/:networkId", networks.SaveNetwork)
	r.Post("/networks/:networkId/categories/:categoryId/cards", cards.Import)
}
