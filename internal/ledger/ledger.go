// Package ledger is the append-only operation journal behind customer
// balances. Post is the only way a new operation changes a balance, so a
// balance can always be rebuilt from the operations that were not failed.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shabakat/ledger/internal/customer"
	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/store"
)

const (
	customersCollection  = "customers"
	operationsCollection = "operations"
	operationNumberMod   = 100_000_000
)

// Entry describes an operation to post.
type Entry struct {
	Type        domain.OperationType
	Amount      int64
	Description string
	// Status defaults to completed.
	Status  domain.OperationStatus
	Details map[string]any
}

// OperationPath returns the document path of a customer's operation.
func OperationPath(customerID, operationID string) string {
	return store.Join(customersCollection, customerID, operationsCollection, operationID)
}

// ParseOperationPath extracts the owning customer and operation ids from a
// path built by OperationPath.
func ParseOperationPath(path string) (customerID, operationID string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 4 || parts[0] != customersCollection || parts[2] != operationsCollection ||
		strings.TrimSpace(parts[1]) == "" || strings.TrimSpace(parts[3]) == "" {
		return "", "", fmt.Errorf("operation path %q: %w", path, domain.ErrOperationNotFound)
	}
	return parts[1], parts[3], nil
}

// NextOperationNumber derives the 8 digit display number of an operation
// from the clock. It is not unique; collisions are tolerated.
func NextOperationNumber(now time.Time) string {
	return fmt.Sprintf("%08d", now.UnixMilli()%operationNumberMod)
}

// Post applies e to c and appends the matching operation inside tx. A debit
// that would take the balance below zero fails with ErrInsufficientBalance; a
// credit that would overflow the balance fails with ErrInvalidInput.
func Post(tx store.Tx, c *domain.Customer, e Entry, now time.Time) (domain.Operation, error) {
	if e.Amount > 0 && c.Balance > math.MaxInt64-e.Amount {
		return domain.Operation{}, fmt.Errorf("credit %d overflows balance of customer %s: %w", e.Amount, c.ID, domain.ErrInvalidInput)
	}
	if c.Balance+e.Amount < 0 {
		return domain.Operation{}, fmt.Errorf("customer %s balance %d, need %d: %w", c.ID, c.Balance, -e.Amount, domain.ErrInsufficientBalance)
	}
	c.Balance += e.Amount
	if err := customer.Save(tx, *c); err != nil {
		return domain.Operation{}, err
	}

	status := e.Status
	if status == "" {
		status = domain.StatusCompleted
	}
	balance := c.Balance
	op := domain.Operation{
		ID:              uuid.NewString(),
		CustomerID:      c.ID,
		Type:            e.Type,
		Amount:          e.Amount,
		Date:            now.UTC(),
		Description:     e.Description,
		Status:          status,
		OperationNumber: NextOperationNumber(now),
		Details:         e.Details,
		BalanceAfter:    &balance,
	}
	if err := tx.Create(OperationPath(c.ID, op.ID), op); err != nil {
		return domain.Operation{}, err
	}
	return op, nil
}

// Settle moves a pending operation to a terminal status inside tx. Failing
// it credits abs(amount) back to c in the same transaction.
func Settle(tx store.Tx, c *domain.Customer, op domain.Operation, status domain.OperationStatus, notes string, now time.Time) (domain.Operation, error) {
	if status != domain.StatusCompleted && status != domain.StatusFailed {
		return domain.Operation{}, fmt.Errorf("status %q: %w", status, domain.ErrInvalidInput)
	}
	if op.Status != domain.StatusPending {
		return domain.Operation{}, fmt.Errorf("operation %s is %s: %w", op.ID, op.Status, domain.ErrAlreadyResolved)
	}

	if status == domain.StatusFailed {
		refund := op.Amount
		if refund < 0 {
			refund = -refund
		}
		c.Balance += refund
		if err := customer.Save(tx, *c); err != nil {
			return domain.Operation{}, err
		}
	}

	details := make(map[string]any, len(op.Details)+2)
	for k, v := range op.Details {
		details[k] = v
	}
	details["resolvedAt"] = now.UTC().Format(time.RFC3339)
	if notes != "" {
		details["notes"] = notes
	}
	op.Details = details
	op.Status = status
	if err := tx.Set(OperationPath(c.ID, op.ID), op); err != nil {
		return domain.Operation{}, err
	}
	return op, nil
}

// LoadOperation reads an operation through r.
func LoadOperation(ctx context.Context, r store.Reader, customerID, operationID string) (domain.Operation, error) {
	var op domain.Operation
	if err := r.Get(ctx, OperationPath(customerID, operationID), &op); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Operation{}, fmt.Errorf("operation %s: %w", operationID, domain.ErrOperationNotFound)
		}
		return domain.Operation{}, err
	}
	return op, nil
}
