package catalog

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/middleware"
)

// Handler exposes network catalog endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a catalog HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SaveNetwork replaces the network named in the path.
func (h *Handler) SaveNetwork(c *fiber.Ctx) error {
	var n domain.Network
	if err := c.BodyParser(&n); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	n.ID = c.Params("networkId")
	saved, err := h.service.SaveNetwork(c.UserContext(), middleware.CurrentActor(c), n)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(saved)
}

// GetNetwork returns a network with its categories.
func (h *Handler) GetNetwork(c *fiber.Ctx) error {
	n, err := h.service.Network(c.UserContext(), c.Params("networkId"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(n)
}
