package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shabakat/ledger/internal/catalog"
	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/inventory"
	"github.com/shabakat/ledger/internal/logging"
	"github.com/shabakat/ledger/internal/store"
)

var admin = domain.Actor{CustomerID: "admin", Role: domain.RoleAdmin}

func at(minutes int) *time.Time {
	t := time.Date(2026, 1, 1, 12, minutes, 0, 0, time.UTC)
	return &t
}

func setup(t *testing.T) (*Service, *catalog.Service) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewInMemory(store.RetryPolicy{MaxAttempts: 1})
	mem.Set(ctx, catalog.Path("net-1"), domain.Network{
		ID:   "net-1",
		Name: "Net One",
		Categories: []domain.Category{
			{ID: "week", Name: "Week", Price: 3000},
			{ID: "month", Name: "Month", Price: 9000},
		},
	})
	cards := []domain.Card{
		{ID: "new-unsold", CategoryID: "week", Status: domain.CardAvailable, CreatedAt: *at(30)},
		{ID: "old-unsold", CategoryID: "week", Status: domain.CardAvailable, CreatedAt: *at(1)},
		{ID: "sold-early", CategoryID: "week", Status: domain.CardUsed, CreatedAt: *at(2), UsedAt: at(10), UsedBy: "b"},
		{ID: "sold-late", CategoryID: "month", Status: domain.CardTransferred, CreatedAt: *at(3), UsedAt: at(20), UsedBy: "b", TransferredAt: at(25)},
	}
	for _, card := range cards {
		card.NetworkID = "net-1"
		if err := mem.Set(ctx, inventory.Path(card.ID), card); err != nil {
			t.Fatalf("seed card: %v", err)
		}
	}
	cat := catalog.NewService(mem, nil, time.Minute, logging.Discard())
	return NewService(inventory.NewService(mem, logging.Discard())), cat
}

func TestCountByStatus(t *testing.T) {
	svc, cat := setup(t)
	ctx := context.Background()

	counts, err := svc.CountByStatus(ctx, cat.NewLookup(), "net-1", "week")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Available != 2 || counts.Sold != 1 {
		t.Fatalf("unexpected week counts %+v", counts)
	}
	counts, _ = svc.CountByStatus(ctx, cat.NewLookup(), "net-1", "month")
	if counts.Available != 0 || counts.Sold != 1 {
		t.Fatalf("transferred cards count as sold, got %+v", counts)
	}
	if _, err := svc.CountByStatus(ctx, cat.NewLookup(), "net-1", "year"); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected category not found, got %v", err)
	}
}

func TestSalesHistoryOrdering(t *testing.T) {
	svc, cat := setup(t)
	ctx := context.Background()

	rows, err := svc.SalesHistory(ctx, admin, cat.NewLookup(), "net-1", "")
	if err != nil {
		t.Fatalf("sales: %v", err)
	}
	want := []string{"sold-late", "sold-early", "new-unsold", "old-unsold"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, id := range want {
		if rows[i].Card.ID != id {
			t.Fatalf("row %d: expected %s, got %s", i, id, rows[i].Card.ID)
		}
	}
	if rows[0].CategoryName != "Month" || rows[0].Price != 9000 {
		t.Fatalf("row not enriched: %+v", rows[0])
	}

	rows, _ = svc.SalesHistory(ctx, admin, cat.NewLookup(), "net-1", "week")
	if len(rows) != 3 || rows[0].Card.ID != "sold-early" {
		t.Fatalf("unexpected filtered rows %+v", rows)
	}
}

func TestSalesHistoryAuthorization(t *testing.T) {
	svc, cat := setup(t)
	ctx := context.Background()

	user := domain.Actor{CustomerID: "b", Role: domain.RoleUser}
	if _, err := svc.SalesHistory(ctx, user, cat.NewLookup(), "net-1", ""); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	owner := domain.Actor{CustomerID: "o", Role: domain.RoleNetworkOwner, OwnedNetworkID: "net-1"}
	if _, err := svc.SalesHistory(ctx, owner, cat.NewLookup(), "net-1", ""); err != nil {
		t.Fatalf("owner sales: %v", err)
	}
	if _, err := svc.SalesHistory(ctx, admin, cat.NewLookup(), "net-9", ""); !errors.Is(err, domain.ErrNetworkNotFound) {
		t.Fatalf("expected network not found, got %v", err)
	}
}
