package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/wallet"
)

// RegisterWalletRoutes wires balance-moving endpoints. spend throttles the
// ones a customer can trigger repeatedly.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, spend fiber.Handler) {
	r.Post("/purchases", spend, h.Purchase)
	r.Post("/networks/:networkId/categories/:categoryId/purchase", spend, h.PurchaseFromCategory)
	r.Post("/cards/:cardId/transfer-profit", h.TransferProfit)
	r.Post("/withdrawals", spend, h.RequestWithdrawal)
	r.Post("/topups", h.TopUp)
	r.Post("/transfers", spend, h.Transfer)
	r.Get("/operations", h.History)
	r.Get("/customers/:customerId/reconcile", h.Reconcile)
}
