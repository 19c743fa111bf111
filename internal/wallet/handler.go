package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/middleware"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type purchaseRequest struct {
	CustomerID string `json:"customer_id"`
	CardID     string `json:"card_id"`
}

type profitRequest struct {
	OwnerID string `json:"owner_id"`
}

type withdrawalRequest struct {
	OwnerID          string `json:"owner_id"`
	Amount           int64  `json:"amount"`
	Method           string `json:"method"`
	RecipientName    string `json:"recipient_name"`
	RecipientAccount string `json:"recipient_account"`
}

type topUpRequest struct {
	CustomerID string `json:"customer_id"`
	Amount     int64  `json:"amount"`
	Note       string `json:"note"`
}

type transferRequest struct {
	ToAccountNumber string `json:"to_account_number"`
	Amount          int64  `json:"amount"`
	Note            string `json:"note"`
}

// subject returns the customer a request acts on, defaulting to the caller.
func subject(c *fiber.Ctx, requested string) string {
	if requested != "" {
		return requested
	}
	return middleware.CurrentActor(c).CustomerID
}

// Purchase buys a specific card.
func (h *Handler) Purchase(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.CardID == "" {
		return fiber.NewError(http.StatusBadRequest, "card_id is required")
	}
	res, err := h.service.Purchase(c.UserContext(), middleware.CurrentActor(c), subject(c, req.CustomerID), req.CardID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(res)
}

// PurchaseFromCategory buys the next available card of a category.
func (h *Handler) PurchaseFromCategory(c *fiber.Ctx) error {
	var req purchaseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	res, err := h.service.PurchaseFromCategory(c.UserContext(), middleware.CurrentActor(c),
		subject(c, req.CustomerID), c.Params("networkId"), c.Params("categoryId"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(res)
}

// TransferProfit pays out a sold card to its network owner.
func (h *Handler) TransferProfit(c *fiber.Ctx) error {
	var req profitRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	res, err := h.service.TransferProfit(c.UserContext(), middleware.CurrentActor(c), c.Params("cardId"), req.OwnerID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(res)
}

// RequestWithdrawal records a pending cash-out.
func (h *Handler) RequestWithdrawal(c *fiber.Ctx) error {
	var req withdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	op, err := h.service.RecordWithdrawalRequest(c.UserContext(), middleware.CurrentActor(c), WithdrawalInput{
		OwnerID:          subject(c, req.OwnerID),
		Amount:           req.Amount,
		Method:           req.Method,
		RecipientName:    req.RecipientName,
		RecipientAccount: req.RecipientAccount,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(op)
}

// TopUp credits a customer balance.
func (h *Handler) TopUp(c *fiber.Ctx) error {
	var req topUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.CustomerID == "" {
		return fiber.NewError(http.StatusBadRequest, "customer_id is required")
	}
	op, err := h.service.TopUp(c.UserContext(), middleware.CurrentActor(c), req.CustomerID, req.Amount, req.Note)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(op)
}

// Transfer sends funds to another account number.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	actor := middleware.CurrentActor(c)
	res, err := h.service.Transfer(c.UserContext(), actor, actor.CustomerID, req.ToAccountNumber, req.Amount, req.Note)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(res)
}

// History lists operations of the caller, or of ?customer_id for admins.
func (h *Handler) History(c *fiber.Ctx) error {
	ops, err := h.service.History(c.UserContext(), middleware.CurrentActor(c), subject(c, c.Query("customer_id")))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"operations": ops})
}

// Reconcile audits one customer's balance.
func (h *Handler) Reconcile(c *fiber.Ctx) error {
	rec, err := h.service.Reconcile(c.UserContext(), middleware.CurrentActor(c), c.Params("customerId"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(rec)
}
