package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

type account struct {
	Owner   string `json:"owner"`
	Balance int64  `json:"balance"`
	Active  bool   `json:"active"`
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestInMemory_TransactionCommitsAllWrites(t *testing.T) {
	s := NewInMemory(fastPolicy(3))
	ctx := context.Background()

	if err := s.Set(ctx, "accounts/a", account{Owner: "a", Balance: 100}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		var a account
		if err := tx.Get(ctx, "accounts/a", &a); err != nil {
			return err
		}
		a.Balance -= 40
		if err := tx.Set("accounts/a", a); err != nil {
			return err
		}
		return tx.Create("accounts/b", account{Owner: "b", Balance: 40})
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	var a, b account
	if err := s.Get(ctx, "accounts/a", &a); err != nil {
		t.Fatalf("get a: %v", err)
	}
	if err := s.Get(ctx, "accounts/b", &b); err != nil {
		t.Fatalf("get b: %v", err)
	}
	if a.Balance+b.Balance != 100 {
		t.Fatalf("expected total 100, got %d", a.Balance+b.Balance)
	}
}

func TestInMemory_ReadYourWrites(t *testing.T) {
	s := NewInMemory(fastPolicy(1))
	ctx := context.Background()

	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set("accounts/a", account{Balance: 7}); err != nil {
			return err
		}
		var a account
		if err := tx.Get(ctx, "accounts/a", &a); err != nil {
			return err
		}
		if a.Balance != 7 {
			t.Errorf("expected buffered balance 7, got %d", a.Balance)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestInMemory_ConflictWhenReadInvalidated(t *testing.T) {
	s := NewInMemory(fastPolicy(1))
	ctx := context.Background()
	s.Set(ctx, "accounts/a", account{Balance: 100})

	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		var a account
		if err := tx.Get(ctx, "accounts/a", &a); err != nil {
			return err
		}
		// concurrent writer commits between our read and our commit
		if err := s.Set(ctx, "accounts/a", account{Balance: 1}); err != nil {
			return err
		}
		a.Balance -= 50
		return tx.Set("accounts/a", a)
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	var a account
	s.Get(ctx, "accounts/a", &a)
	if a.Balance != 1 {
		t.Fatalf("expected concurrent value to survive, got %d", a.Balance)
	}
}

func TestInMemory_ConflictIsRetried(t *testing.T) {
	s := NewInMemory(fastPolicy(3))
	ctx := context.Background()
	s.Set(ctx, "accounts/a", account{Balance: 100})

	attempts := 0
	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		attempts++
		var a account
		if err := tx.Get(ctx, "accounts/a", &a); err != nil {
			return err
		}
		if attempts == 1 {
			s.Set(ctx, "accounts/a", account{Balance: 200})
		}
		a.Balance -= 50
		return tx.Set("accounts/a", a)
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}

	var a account
	s.Get(ctx, "accounts/a", &a)
	if a.Balance != 150 {
		t.Fatalf("expected 150 after retry on fresh read, got %d", a.Balance)
	}
}

func TestInMemory_ConflictWhenAbsentDocumentCreated(t *testing.T) {
	s := NewInMemory(fastPolicy(1))
	ctx := context.Background()

	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		var a account
		if err := tx.Get(ctx, "accounts/new", &a); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		s.Set(ctx, "accounts/new", account{Balance: 5})
		return tx.Set("accounts/new", account{Balance: 10})
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestInMemory_CreateRejectsDuplicate(t *testing.T) {
	s := NewInMemory(fastPolicy(1))
	ctx := context.Background()

	if err := s.Create(ctx, "cards/123", account{}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := s.Create(ctx, "cards/123", account{Balance: 9}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	var a account
	s.Get(ctx, "cards/123", &a)
	if a.Balance != 0 {
		t.Fatalf("duplicate create overwrote document")
	}
}

func TestInMemory_BatchWriteIsAllOrNothing(t *testing.T) {
	s := NewInMemory(fastPolicy(1))
	ctx := context.Background()
	s.Set(ctx, "accounts/taken", account{Balance: 1})

	err := s.BatchWrite(ctx, []WriteOp{
		SetOp("accounts/a", account{Balance: 10}),
		CreateOp("accounts/taken", account{Balance: 2}),
		SetOp("accounts/b", account{Balance: 20}),
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	var a account
	if err := s.Get(ctx, "accounts/a", &a); !errors.Is(err, ErrNotFound) {
		t.Fatalf("batch partially applied: %v", err)
	}
}

func TestInMemory_FailNextCommitWritesNothing(t *testing.T) {
	s := NewInMemory(fastPolicy(3))
	ctx := context.Background()
	s.Set(ctx, "accounts/a", account{Balance: 100})

	injected := errors.New("injected abort")
	s.FailNextCommit(injected)

	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set("accounts/a", account{Balance: 0}); err != nil {
			return err
		}
		return tx.Create("accounts/b", account{Balance: 100})
	})
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}

	var a account
	s.Get(ctx, "accounts/a", &a)
	if a.Balance != 100 {
		t.Fatalf("expected untouched balance, got %d", a.Balance)
	}
	if err := s.Get(ctx, "accounts/b", &a); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no created document, got %v", err)
	}
}

func TestInMemory_AbandonedTransactionWritesNothing(t *testing.T) {
	s := NewInMemory(fastPolicy(3))
	ctx, cancel := context.WithCancel(context.Background())

	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set("accounts/a", account{Balance: 1}); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	var a account
	if err := s.Get(context.Background(), "accounts/a", &a); !errors.Is(err, ErrNotFound) {
		t.Fatalf("abandoned transaction wrote: %v", err)
	}
}

func TestInMemory_ListAndListGroup(t *testing.T) {
	s := NewInMemory(fastPolicy(1))
	ctx := context.Background()
	s.Set(ctx, "customers/1/operations/a", account{Owner: "1", Active: true})
	s.Set(ctx, "customers/1/operations/b", account{Owner: "1"})
	s.Set(ctx, "customers/2/operations/c", account{Owner: "2", Active: true})
	s.Set(ctx, "customers/1", account{Owner: "1"})

	docs, err := s.List(ctx, "customers/1/operations")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0].ID() != "a" || docs[1].ID() != "b" {
		t.Fatalf("unexpected list result: %+v", docs)
	}

	group, err := s.ListGroup(ctx, "operations", Where("active", "true"))
	if err != nil {
		t.Fatalf("list group: %v", err)
	}
	if len(group) != 2 {
		t.Fatalf("expected 2 active operations, got %d", len(group))
	}

	var a account
	if err := group[1].Decode(&a); err != nil || a.Owner != "2" {
		t.Fatalf("decode: %v %+v", err, a)
	}
}

func TestUpdate(t *testing.T) {
	s := NewInMemory(fastPolicy(1))
	ctx := context.Background()
	s.Set(ctx, "accounts/a", account{Balance: 10})

	got, err := Update(ctx, Store(s), "accounts/a", func(a *account) error {
		a.Balance *= 3
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Balance != 30 {
		t.Fatalf("expected 30, got %d", got.Balance)
	}

	if _, err := Update(ctx, Store(s), "accounts/missing", func(*account) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestValidatePath(t *testing.T) {
	for _, path := range []string{"customers/1", "customers/1/operations/2"} {
		if err := ValidatePath(path); err != nil {
			t.Fatalf("%s: unexpected error %v", path, err)
		}
	}
	for _, path := range []string{"", "customers", "customers/1/operations", "customers//x/y"} {
		if err := ValidatePath(path); err == nil {
			t.Fatalf("%q: expected error", path)
		}
	}
}
