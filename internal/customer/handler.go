package customer

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/middleware"
)

// Handler exposes customer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a customer HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	AccountType string `json:"account_type"`
}

type customerResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PhoneNumber   string `json:"phone_number"`
	Balance       int64  `json:"balance"`
	AccountType   string `json:"account_type"`
	AccountNumber string `json:"account_number"`
}

func toResponse(c domain.Customer) customerResponse {
	return customerResponse{
		ID:            c.ID,
		Name:          c.Name,
		PhoneNumber:   c.PhoneNumber,
		Balance:       c.Balance,
		AccountType:   string(c.AccountType),
		AccountNumber: c.AccountNumber,
	}
}

// Register provisions a customer account. Admin only.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	created, err := h.service.Register(c.UserContext(), middleware.CurrentActor(c), RegisterInput{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		AccountType: domain.Role(req.AccountType),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(toResponse(created))
}

// Me returns the caller's account and balance.
func (h *Handler) Me(c *fiber.Ctx) error {
	actor := middleware.CurrentActor(c)
	me, err := h.service.Get(c.UserContext(), actor.CustomerID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponse(me))
}
