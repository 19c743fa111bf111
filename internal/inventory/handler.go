package inventory

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/middleware"
)

// Handler exposes card stock endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an inventory HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type importRequest struct {
	Cards []string `json:"cards"`
}

// Import adds card numbers to a category.
func (h *Handler) Import(c *fiber.Ctx) error {
	var req importRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if len(req.Cards) == 0 {
		return fiber.NewError(http.StatusBadRequest, "cards must not be empty")
	}
	res, err := h.service.ImportCards(c.UserContext(), middleware.CurrentActor(c), c.Params("networkId"), c.Params("categoryId"), req.Cards)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(res)
}
