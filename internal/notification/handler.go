package notification

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/middleware"
)

// Handler exposes the caller's notification feed.
type Handler struct {
	service *Service
}

// NewHandler builds a notification HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List returns the caller's notifications.
func (h *Handler) List(c *fiber.Ctx) error {
	actor := middleware.CurrentActor(c)
	items, err := h.service.List(c.UserContext(), actor, actor.CustomerID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"notifications": items})
}

// MarkRead acknowledges one of the caller's notifications.
func (h *Handler) MarkRead(c *fiber.Ctx) error {
	actor := middleware.CurrentActor(c)
	n, err := h.service.MarkRead(c.UserContext(), actor, actor.CustomerID, c.Params("notificationId"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(n)
}

// MarkAllRead acknowledges the caller's unread notifications.
func (h *Handler) MarkAllRead(c *fiber.Ctx) error {
	actor := middleware.CurrentActor(c)
	n, err := h.service.MarkAllRead(c.UserContext(), actor, actor.CustomerID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"updated": n})
}
