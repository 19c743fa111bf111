package domain

import (
	"errors"

	"github.com/shabakat/ledger/internal/store"
)

var (
	// ErrInsufficientBalance occurs when a customer's balance cannot cover a debit.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCardUnavailable indicates the card is not in the available state.
	ErrCardUnavailable = errors.New("card unavailable")

	// ErrDuplicateCard is reported for a card number that already exists.
	ErrDuplicateCard = errors.New("duplicate card")

	// ErrInvalidTransition indicates a card status change outside its lifecycle.
	ErrInvalidTransition = errors.New("invalid card transition")

	// ErrAlreadyTransferred indicates profit for the card was already paid out.
	ErrAlreadyTransferred = errors.New("profit already transferred")

	// ErrAlreadyResolved indicates the withdrawal is in a terminal state.
	ErrAlreadyResolved = errors.New("withdrawal already resolved")

	ErrOwnerNotFound     = errors.New("owner not found")
	ErrOperationNotFound = errors.New("operation not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrCardNotFound      = errors.New("card not found")
	ErrNetworkNotFound   = errors.New("network not found")
	ErrCategoryNotFound  = errors.New("category not found")

	ErrNotificationNotFound = errors.New("notification not found")

	// ErrPermissionDenied is returned when the actor's role does not allow the call.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// IsRetryable reports whether err is a transient store failure that a caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrUnavailable)
}
