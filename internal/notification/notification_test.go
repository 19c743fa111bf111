package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/logging"
	"github.com/shabakat/ledger/internal/store"
)

func TestAppendListAndMarkAllRead(t *testing.T) {
	s := store.NewInMemory(store.RetryPolicy{MaxAttempts: 1})
	ctx := context.Background()
	base := time.Now()

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := Append(tx, "c1", domain.Notification{Type: KindPurchase, Title: "first"}, base); err != nil {
			return err
		}
		_, err := Append(tx, "c1", domain.Notification{Type: KindTopUp, Title: "second"}, base.Add(time.Minute))
		return err
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	svc := NewService(s)
	self := domain.Actor{CustomerID: "c1", Role: domain.RoleUser}
	items, err := svc.List(ctx, self, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].Title != "second" || items[0].Read {
		t.Fatalf("unexpected list %+v", items)
	}

	n, err := svc.MarkAllRead(ctx, self, "c1")
	if err != nil || n != 2 {
		t.Fatalf("mark all read: %d %v", n, err)
	}
	if n, _ := svc.MarkAllRead(ctx, self, "c1"); n != 0 {
		t.Fatalf("expected nothing left to mark, got %d", n)
	}
	items, _ = svc.List(ctx, self, "c1")
	for _, item := range items {
		if !item.Read {
			t.Fatalf("notification %s still unread", item.ID)
		}
	}

	other := domain.Actor{CustomerID: "c2", Role: domain.RoleUser}
	if _, err := svc.List(ctx, other, "c1"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestLoggerNotifierNilSafe(t *testing.T) {
	var n *LoggerNotifier
	if err := n.Send(context.Background(), Message{Kind: KindPurchase}); err != nil {
		t.Fatalf("nil notifier: %v", err)
	}
	if err := NewLoggerNotifier(logging.Discard()).Send(context.Background(), Message{Kind: KindTopUp, Destination: "c1", Body: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	s := store.NewInMemory(store.RetryPolicy{MaxAttempts: 1})
	ctx := context.Background()

	var first, second domain.Notification
	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if first, err = Append(tx, "c1", domain.Notification{Type: KindPurchase, Title: "first"}, time.Now()); err != nil {
			return err
		}
		second, err = Append(tx, "c1", domain.Notification{Type: KindTopUp, Title: "second"}, time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	svc := NewService(s)
	self := domain.Actor{CustomerID: "c1", Role: domain.RoleUser}
	got, err := svc.MarkRead(ctx, self, "c1", first.ID)
	if err != nil || !got.Read || got.Title != "first" {
		t.Fatalf("mark read: %+v %v", got, err)
	}
	items, _ := svc.List(ctx, self, "c1")
	for _, item := range items {
		if item.Read != (item.ID == first.ID) {
			t.Fatalf("notification %s read=%v", item.ID, item.Read)
		}
	}
	if n, err := svc.MarkAllRead(ctx, self, "c1"); err != nil || n != 1 {
		t.Fatalf("expected only %s left unread, got %d %v", second.ID, n, err)
	}

	if _, err := svc.MarkRead(ctx, self, "c1", "missing"); !errors.Is(err, domain.ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
	other := domain.Actor{CustomerID: "c2", Role: domain.RoleUser}
	if _, err := svc.MarkRead(ctx, other, "c1", first.ID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}
