package reporting

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/catalog"
	"github.com/shabakat/ledger/internal/middleware"
)

// Handler exposes reporting endpoints.
type Handler struct {
	service *Service
	catalog *catalog.Service
}

// NewHandler builds a reporting HTTP handler.
func NewHandler(service *Service, cat *catalog.Service) *Handler {
	return &Handler{service: service, catalog: cat}
}

// Counts returns available and sold counts for a category.
func (h *Handler) Counts(c *fiber.Ctx) error {
	counts, err := h.service.CountByStatus(c.UserContext(), h.catalog.NewLookup(), c.Params("networkId"), c.Params("categoryId"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(counts)
}

// Sales returns the sales history of a network, narrowed by ?category_id.
func (h *Handler) Sales(c *fiber.Ctx) error {
	rows, err := h.service.SalesHistory(c.UserContext(), middleware.CurrentActor(c), h.catalog.NewLookup(), c.Params("networkId"), c.Query("category_id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"sales": rows})
}
