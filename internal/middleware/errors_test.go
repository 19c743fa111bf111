package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/logging"
	"github.com/shabakat/ledger/internal/store"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrInsufficientBalance, http.StatusPaymentRequired, "insufficient_balance"},
		{fmt.Errorf("%w: %w", domain.ErrInvalidTransition, domain.ErrAlreadyTransferred), http.StatusConflict, "already_transferred"},
		{fmt.Errorf("card 1: %w", domain.ErrCardUnavailable), http.StatusConflict, "card_unavailable"},
		{fmt.Errorf("gave up after 5 attempts: %w", store.ErrConflict), http.StatusConflict, "conflict"},
		{domain.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
		{domain.ErrOperationNotFound, http.StatusNotFound, "operation_not_found"},
		{fmt.Errorf("amount: %w", domain.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{store.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{fiber.NewError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, "Too Many Requests"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, code := StatusFor(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v: expected %d/%s, got %d/%s", tc.err, tc.status, tc.code, status, code)
		}
	}
}

func TestErrorHandlerAdvertisesRetryOnTransientFailures(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	failures := map[string]error{
		"/conflict":    fmt.Errorf("gave up after 5 attempts: %w", store.ErrConflict),
		"/unavailable": store.ErrUnavailable,
		"/balance":     domain.ErrInsufficientBalance,
	}
	for path, err := range failures {
		err := err
		app.Get(path, func(*fiber.Ctx) error { return err })
	}

	cases := []struct {
		path       string
		status     int
		retryAfter string
	}{
		{"/conflict", http.StatusConflict, "1"},
		{"/unavailable", http.StatusServiceUnavailable, "1"},
		{"/balance", http.StatusPaymentRequired, ""},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil), -1)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.path, tc.status, resp.StatusCode)
		}
		if got := resp.Header.Get(fiber.HeaderRetryAfter); got != tc.retryAfter {
			t.Fatalf("%s: expected Retry-After %q, got %q", tc.path, tc.retryAfter, got)
		}
	}
}
