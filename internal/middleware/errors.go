package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: an already transferred card matches both
// ErrAlreadyTransferred and ErrInvalidTransition.
var errorMappings = []errorMapping{
	{domain.ErrInsufficientBalance, http.StatusPaymentRequired, "insufficient_balance"},
	{domain.ErrAlreadyTransferred, http.StatusConflict, "already_transferred"},
	{domain.ErrCardUnavailable, http.StatusConflict, "card_unavailable"},
	{domain.ErrDuplicateCard, http.StatusConflict, "duplicate_card"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrAlreadyResolved, http.StatusConflict, "already_resolved"},
	{store.ErrConflict, http.StatusConflict, "conflict"},
	{domain.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{domain.ErrOwnerNotFound, http.StatusNotFound, "owner_not_found"},
	{domain.ErrOperationNotFound, http.StatusNotFound, "operation_not_found"},
	{domain.ErrCustomerNotFound, http.StatusNotFound, "customer_not_found"},
	{domain.ErrCardNotFound, http.StatusNotFound, "card_not_found"},
	{domain.ErrNetworkNotFound, http.StatusNotFound, "network_not_found"},
	{domain.ErrCategoryNotFound, http.StatusNotFound, "category_not_found"},
	{domain.ErrNotificationNotFound, http.StatusNotFound, "notification_not_found"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{store.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// StatusFor maps an error returned by a handler to its HTTP status and code.
func StatusFor(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, http.StatusText(fe.Code)
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// retryAfterSeconds is advertised on transient store failures.
const retryAfterSeconds = "1"

// ErrorHandler is the fiber error handler for the API.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, code := StatusFor(err)
		msg := err.Error()
		if domain.IsRetryable(err) {
			c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		}
		if status == http.StatusInternalServerError {
			logger.Error("unhandled error", slog.String("path", c.Path()), slog.String("request_id", RequestIDFrom(c)), slog.Any("error", err))
			msg = "internal server error"
		}
		return c.Status(status).JSON(errorResponse{Error: msg, Code: code})
	}
}
