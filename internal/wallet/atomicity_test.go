package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/shabakat/ledger/internal/catalog"
	"github.com/shabakat/ledger/internal/customer"
	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/store"
)

func TestTransferProfitAtomicUnderCommitFailure(t *testing.T) {
	f := newFixture(t)
	f.topUp(f.buyer, 10_000)
	if _, err := f.svc.Purchase(f.ctx, f.actor(f.buyer), f.buyer.ID, "c-1"); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	injected := errors.New("injected abort")
	f.store.FailNextCommit(injected)
	if _, err := f.svc.TransferProfit(f.ctx, f.actor(f.owner), "c-1", ""); !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}

	if got := f.balance(f.owner); got != 0 {
		t.Fatalf("owner credited on aborted transfer: %d", got)
	}
	if f.card("c-1").Status != domain.CardUsed {
		t.Fatalf("card left %s on aborted transfer", f.card("c-1").Status)
	}
	if n := f.count(f.owner, "operations"); n != 0 {
		t.Fatalf("expected no profit operation, got %d", n)
	}
	if n := f.count(f.owner, "notifications"); n != 0 {
		t.Fatalf("expected no notification, got %d", n)
	}

	res, err := f.svc.TransferProfit(f.ctx, f.actor(f.owner), "c-1", "")
	if err != nil || res.Profit != 2_700 {
		t.Fatalf("retry after abort: %+v %v", res, err)
	}
	f.assertConsistent(f.owner)
}

func TestWithdrawalRequestAtomicUnderCommitFailure(t *testing.T) {
	f := newFixture(t)
	f.topUp(f.owner, 5_000)

	injected := errors.New("injected abort")
	f.store.FailNextCommit(injected)
	_, err := f.svc.RecordWithdrawalRequest(f.ctx, f.actor(f.owner), WithdrawalInput{
		OwnerID: f.owner.ID, Amount: 2_000, Method: "bank", RecipientAccount: "IBAN-1",
	})
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}

	if got := f.balance(f.owner); got != 5_000 {
		t.Fatalf("balance changed to %d", got)
	}
	if n := f.count(f.owner, "operations"); n != 1 {
		t.Fatalf("expected only the top-up operation, got %d", n)
	}
	if n := f.count(f.owner, "notifications"); n != 1 {
		t.Fatalf("expected only the top-up notification, got %d", n)
	}
	f.assertConsistent(f.owner)
}

// hookStore runs beforeCommit once, after the first transaction body and
// before its commit.
type hookStore struct {
	*store.Memory
	beforeCommit func()
}

func (h *hookStore) RunTransaction(ctx context.Context, fn store.TxFunc) error {
	return h.Memory.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if hook := h.beforeCommit; hook != nil {
			h.beforeCommit = nil
			hook()
		}
		return nil
	})
}

func TestTransferProfitPaysOwnerSeenByTransaction(t *testing.T) {
	f := newFixture(t)
	f.topUp(f.buyer, 10_000)
	if _, err := f.svc.Purchase(f.ctx, f.actor(f.buyer), f.buyer.ID, "c-1"); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	successor, err := customer.NewService(f.store).Register(f.ctx, admin, customer.RegisterInput{
		Name: "Successor", PhoneNumber: "+963100300", AccountType: domain.RoleNetworkOwner,
	})
	if err != nil {
		t.Fatalf("register successor: %v", err)
	}

	hooked := &hookStore{Memory: f.store}
	hooked.beforeCommit = func() {
		n, err := catalog.LoadNetwork(f.ctx, f.store, "net-1")
		if err != nil {
			t.Errorf("load network: %v", err)
			return
		}
		n.OwnerPhone = successor.PhoneNumber
		if err := f.store.Set(f.ctx, catalog.Path("net-1"), n); err != nil {
			t.Errorf("reassign owner: %v", err)
		}
	}
	svc := NewService(Deps{
		Store:          hooked,
		Catalog:        f.svc.catalog,
		Inventory:      f.svc.inventory,
		Customers:      f.svc.customers,
		Metrics:        f.metrics,
		Logger:         f.svc.logger,
		CommissionRate: DefaultCommissionRate,
	})

	res, err := svc.TransferProfit(f.ctx, admin, "c-1", "")
	if err != nil {
		t.Fatalf("transfer profit: %v", err)
	}
	if res.Operation.CustomerID != successor.ID {
		t.Fatalf("expected payout to %s, got %s", successor.ID, res.Operation.CustomerID)
	}
	if got := f.balance(f.owner); got != 0 {
		t.Fatalf("previous owner credited %d", got)
	}
	if got := f.balance(successor); got != 2_700 {
		t.Fatalf("expected successor balance 2700, got %d", got)
	}
}
