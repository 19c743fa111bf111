// Package withdrawal resolves pending withdraw operations. A withdrawal moves
// from pending to exactly one of completed or failed; failing it refunds the
// amount debited at request time in the same transaction.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shabakat/ledger/internal/customer"
	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/ledger"
	"github.com/shabakat/ledger/internal/metrics"
	"github.com/shabakat/ledger/internal/notification"
	"github.com/shabakat/ledger/internal/store"
)

// Service owns the withdrawal lifecycle.
type Service struct {
	store    store.Store
	journal  *ledger.Journal
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a withdrawal service.
func NewService(s store.Store, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:    s,
		journal:  ledger.NewJournal(s),
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve settles the withdrawal stored at operationPath. Admin only.
func (s *Service) Resolve(ctx context.Context, actor domain.Actor, operationPath string, status domain.OperationStatus, notes string) (domain.Operation, error) {
	if !actor.IsAdmin() {
		return domain.Operation{}, domain.ErrPermissionDenied
	}
	if status != domain.StatusCompleted && status != domain.StatusFailed {
		return domain.Operation{}, fmt.Errorf("status %q: %w", status, domain.ErrInvalidInput)
	}
	customerID, operationID, err := ledger.ParseOperationPath(operationPath)
	if err != nil {
		return domain.Operation{}, err
	}

	var settled domain.Operation
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		now := s.now()
		op, err := ledger.LoadOperation(ctx, tx, customerID, operationID)
		if err != nil {
			return err
		}
		if op.Type != domain.OpWithdraw {
			return fmt.Errorf("operation %s is a %s: %w", operationID, op.Type, domain.ErrOperationNotFound)
		}
		owner, err := customer.Load(ctx, tx, customerID)
		if err != nil {
			if errors.Is(err, domain.ErrCustomerNotFound) {
				return fmt.Errorf("owner of %s: %w", operationPath, domain.ErrOwnerNotFound)
			}
			return err
		}
		if settled, err = ledger.Settle(tx, &owner, op, status, notes, now); err != nil {
			return err
		}
		_, err = notification.Append(tx, owner.ID, outcome(settled, notes), now)
		return err
	})
	s.metrics.Observe("withdraw_resolve", err)
	if err != nil {
		s.logger.Warn("withdrawal resolve rejected",
			slog.String("operation_path", operationPath),
			slog.String("status", string(status)),
			slog.Any("error", err),
		)
		return domain.Operation{}, err
	}

	s.logger.Info("withdrawal resolved",
		slog.String("operation_path", operationPath),
		slog.String("status", string(status)),
		slog.String("admin_id", actor.CustomerID),
	)
	if s.notifier != nil {
		msg := notification.Message{Kind: kindFor(status), Destination: customerID, Body: outcome(settled, notes).Body}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.Warn("notification delivery failed", slog.String("kind", msg.Kind), slog.Any("error", err))
		}
	}
	return settled, nil
}

// Pending lists withdrawals awaiting resolution, oldest first. Admin only.
func (s *Service) Pending(ctx context.Context, actor domain.Actor) ([]domain.Operation, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrPermissionDenied
	}
	return s.journal.Pending(ctx, domain.OpWithdraw)
}

func kindFor(status domain.OperationStatus) string {
	if status == domain.StatusFailed {
		return notification.KindWithdrawFailed
	}
	return notification.KindWithdrawCompleted
}

func outcome(op domain.Operation, notes string) domain.Notification {
	amount := -op.Amount
	n := domain.Notification{Type: kindFor(op.Status), Amount: &amount}
	if op.Status == domain.StatusFailed {
		n.Title = "Withdrawal rejected"
		n.Body = fmt.Sprintf("Your withdrawal %s of %d was rejected and refunded.", op.OperationNumber, amount)
	} else {
		n.Title = "Withdrawal completed"
		n.Body = fmt.Sprintf("Your withdrawal %s of %d was sent.", op.OperationNumber, amount)
	}
	if notes != "" {
		n.Body += " " + notes
	}
	return n
}
