package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/store"
)

const collection = "notifications"

// Path returns the document path of a customer notification.
func Path(customerID, id string) string {
	return store.Join("customers", customerID, collection, id)
}

// Append buffers a new unread notification in tx, so it commits together
// with the balance change it describes.
func Append(tx store.Tx, customerID string, n domain.Notification, now time.Time) (domain.Notification, error) {
	n.ID = uuid.NewString()
	n.Date = now.UTC()
	n.Read = false
	if err := tx.Create(Path(customerID, n.ID), n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

// Service reads and acknowledges stored notifications.
type Service struct {
	store store.Store
}

// NewService builds a notification service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// List returns the actor's notifications, newest first.
func (s *Service) List(ctx context.Context, actor domain.Actor, customerID string) ([]domain.Notification, error) {
	if !actor.CanActFor(customerID) {
		return nil, domain.ErrPermissionDenied
	}
	docs, err := s.store.List(ctx, store.Join("customers", customerID, collection))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(docs))
	for _, doc := range docs {
		var n domain.Notification
		if err := doc.Decode(&n); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Path, err)
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date.After(out[b].Date) })
	return out, nil
}

// MarkRead flags a single notification as read.
func (s *Service) MarkRead(ctx context.Context, actor domain.Actor, customerID, id string) (domain.Notification, error) {
	if !actor.CanActFor(customerID) {
		return domain.Notification{}, domain.ErrPermissionDenied
	}
	n, err := store.Update(ctx, s.store, Path(customerID, id), func(n *domain.Notification) error {
		n.Read = true
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.Notification{}, fmt.Errorf("notification %s: %w", id, domain.ErrNotificationNotFound)
	}
	return n, err
}

// MarkAllRead flags every unread notification as read in one batch and
// returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, actor domain.Actor, customerID string) (int, error) {
	items, err := s.List(ctx, actor, customerID)
	if err != nil {
		return 0, err
	}
	var ops []store.WriteOp
	for _, n := range items {
		if n.Read {
			continue
		}
		n.Read = true
		ops = append(ops, store.SetOp(Path(customerID, n.ID), n))
	}
	if len(ops) == 0 {
		return 0, nil
	}
	if err := s.store.BatchWrite(ctx, ops); err != nil {
		return 0, err
	}
	return len(ops), nil
}
