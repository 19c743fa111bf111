package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shabakat/ledger/internal/catalog"
	"github.com/shabakat/ledger/internal/customer"
	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/inventory"
	"github.com/shabakat/ledger/internal/logging"
	"github.com/shabakat/ledger/internal/metrics"
	"github.com/shabakat/ledger/internal/store"
)

const ownerPhone = "+963100200"

var admin = domain.Actor{CustomerID: "admin", Role: domain.RoleAdmin}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *store.Memory
	svc     *Service
	buyer   domain.Customer
	owner   domain.Customer
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, cards ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewInMemory(store.RetryPolicy{MaxAttempts: 25, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond})
	customers := customer.NewService(mem)

	owner, err := customers.Register(ctx, admin, customer.RegisterInput{Name: "Owner", PhoneNumber: ownerPhone, AccountType: domain.RoleNetworkOwner})
	if err != nil {
		t.Fatalf("register owner: %v", err)
	}
	buyer, err := customers.Register(ctx, admin, customer.RegisterInput{Name: "Buyer", PhoneNumber: "+963555000"})
	if err != nil {
		t.Fatalf("register buyer: %v", err)
	}
	if err := mem.Set(ctx, catalog.Path("net-1"), domain.Network{
		ID:         "net-1",
		Name:       "Net One",
		OwnerPhone: ownerPhone,
		Categories: []domain.Category{
			{ID: "week", Name: "1 week / 5GB", Price: 3000},
			{ID: "odd", Name: "Odd", Price: 1005},
		},
	}); err != nil {
		t.Fatalf("seed network: %v", err)
	}

	inv := inventory.NewService(mem, logging.Discard())
	if len(cards) == 0 {
		cards = []string{"c-1", "c-2", "c-3"}
	}
	if _, err := inv.ImportCards(ctx, admin, "net-1", "week", cards); err != nil {
		t.Fatalf("import cards: %v", err)
	}

	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(Deps{
		Store:          mem,
		Catalog:        catalog.NewService(mem, nil, time.Minute, logging.Discard()),
		Inventory:      inv,
		Customers:      customers,
		Metrics:        m,
		Logger:         logging.Discard(),
		CommissionRate: DefaultCommissionRate,
	})
	return &fixture{t: t, ctx: ctx, store: mem, svc: svc, buyer: buyer, owner: owner, metrics: m}
}

func (f *fixture) actor(c domain.Customer) domain.Actor {
	a := domain.Actor{CustomerID: c.ID, Role: c.AccountType}
	if c.AccountType == domain.RoleNetworkOwner {
		a.OwnedNetworkID = "net-1"
	}
	return a
}

func (f *fixture) topUp(c domain.Customer, amount int64) {
	f.t.Helper()
	if _, err := f.svc.TopUp(f.ctx, admin, c.ID, amount, ""); err != nil {
		f.t.Fatalf("top up: %v", err)
	}
}

func (f *fixture) balance(c domain.Customer) int64 {
	f.t.Helper()
	got, err := customer.Load(f.ctx, f.store, c.ID)
	if err != nil {
		f.t.Fatalf("load customer: %v", err)
	}
	return got.Balance
}

func (f *fixture) card(id string) domain.Card {
	f.t.Helper()
	card, err := inventory.Get(f.ctx, f.store, id)
	if err != nil {
		f.t.Fatalf("load card: %v", err)
	}
	return card
}

func (f *fixture) count(c domain.Customer, collection string) int {
	f.t.Helper()
	docs, err := f.store.List(f.ctx, store.Join("customers", c.ID, collection))
	if err != nil {
		f.t.Fatalf("list %s: %v", collection, err)
	}
	return len(docs)
}

func (f *fixture) assertConsistent(c domain.Customer) {
	f.t.Helper()
	rec, err := f.svc.Reconcile(f.ctx, admin, c.ID)
	if err != nil {
		f.t.Fatalf("reconcile: %v", err)
	}
	if !rec.Consistent {
		f.t.Fatalf("balance %d does not match journal %d", rec.Balance, rec.Expected)
	}
}
