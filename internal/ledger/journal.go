package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/shabakat/ledger/internal/customer"
	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/store"
)

// Reconciliation compares a stored balance with the one implied by the
// journal.
type Reconciliation struct {
	CustomerID string `json:"customerId"`
	Balance    int64  `json:"balance"`
	Expected   int64  `json:"expected"`
	Operations int    `json:"operations"`
	Consistent bool   `json:"consistent"`
}

// Journal serves read access to customer operations.
type Journal struct {
	store store.Store
}

// NewJournal builds a journal reader.
func NewJournal(s store.Store) *Journal {
	return &Journal{store: s}
}

// History returns a customer's operations, newest first.
func (j *Journal) History(ctx context.Context, customerID string) ([]domain.Operation, error) {
	if _, err := customer.Load(ctx, j.store, customerID); err != nil {
		return nil, err
	}
	docs, err := j.store.List(ctx, store.Join(customersCollection, customerID, operationsCollection))
	if err != nil {
		return nil, err
	}
	ops, err := decodeOperations(docs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ops, func(a, b int) bool { return ops[a].Date.After(ops[b].Date) })
	return ops, nil
}

// Reconcile checks balance == sum(amount) over operations that did not fail.
// Pending withdrawals count because they are debited when requested.
func (j *Journal) Reconcile(ctx context.Context, customerID string) (Reconciliation, error) {
	c, err := customer.Load(ctx, j.store, customerID)
	if err != nil {
		return Reconciliation{}, err
	}
	docs, err := j.store.List(ctx, store.Join(customersCollection, customerID, operationsCollection))
	if err != nil {
		return Reconciliation{}, err
	}
	ops, err := decodeOperations(docs)
	if err != nil {
		return Reconciliation{}, err
	}
	var expected int64
	for _, op := range ops {
		if op.Status != domain.StatusFailed {
			expected += op.Amount
		}
	}
	return Reconciliation{
		CustomerID: customerID,
		Balance:    c.Balance,
		Expected:   expected,
		Operations: len(ops),
		Consistent: expected == c.Balance,
	}, nil
}

// Pending lists operations of a type awaiting resolution across all
// customers, oldest first.
func (j *Journal) Pending(ctx context.Context, opType domain.OperationType) ([]domain.Operation, error) {
	docs, err := j.store.ListGroup(ctx, operationsCollection,
		store.Where("type", string(opType)),
		store.Where("status", string(domain.StatusPending)),
	)
	if err != nil {
		return nil, err
	}
	ops, err := decodeOperations(docs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ops, func(a, b int) bool { return ops[a].Date.Before(ops[b].Date) })
	return ops, nil
}

func decodeOperations(docs []store.Document) ([]domain.Operation, error) {
	ops := make([]domain.Operation, 0, len(docs))
	for _, doc := range docs {
		var op domain.Operation
		if err := doc.Decode(&op); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Path, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}
