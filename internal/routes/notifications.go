package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/notification"
)

// RegisterNotificationRoutes wires the caller's notification feed.
func RegisterNotificationRoutes(r fiber.Router, h *notification.Handler) {
	r.Get("/notifications", h.List)
	r.Post("/notifications/read", h.MarkAllRead)
	r.Post("/notifications/:notificationId/read", h.MarkRead)
}
