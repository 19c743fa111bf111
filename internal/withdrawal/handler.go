package withdrawal

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/middleware"
)

// Handler exposes the admin withdrawal queue.
type Handler struct {
	service *Service
}

// NewHandler builds a withdrawal HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type resolveRequest struct {
	OperationPath string `json:"operation_path"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
}

// Pending lists unresolved withdrawals.
func (h *Handler) Pending(c *fiber.Ctx) error {
	ops, err := h.service.Pending(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"withdrawals": ops})
}

// Resolve completes or rejects a withdrawal.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	op, err := h.service.Resolve(c.UserContext(), middleware.CurrentActor(c), req.OperationPath, domain.OperationStatus(req.Status), req.Notes)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(op)
}
