package customer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/store"
)

const (
	collection            = "customers"
	phoneIndexCollection  = "customerPhones"
	numberIndexCollection = "customerAccounts"
	accountNumberDigits   = 10
	accountNumberAttempts = 3
)

type indexEntry struct {
	CustomerID string `json:"customerId"`
}

// Path returns the document path of a customer.
func Path(id string) string {
	return store.Join(collection, id)
}

// Load reads a customer through r, which may be a store or an open transaction.
func Load(ctx context.Context, r store.Reader, id string) (domain.Customer, error) {
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	var c domain.Customer
	if err := r.Get(ctx, Path(id), &c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Customer{}, fmt.Errorf("customer %s: %w", id, domain.ErrCustomerNotFound)
		}
		return domain.Customer{}, err
	}
	return c, nil
}

// Save buffers the customer document in tx.
func Save(tx store.Tx, c domain.Customer) error {
	return tx.Set(Path(c.ID), c)
}

// Service manages customer accounts.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates a customer service.
func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// RegisterInput captures the data needed to open a customer account.
type RegisterInput struct {
	Name        string
	PhoneNumber string
	AccountType domain.Role
}

// Register opens a zero-balance account. Phone numbers and account numbers
// are unique through index documents created in the same transaction.
func (s *Service) Register(ctx context.Context, actor domain.Actor, input RegisterInput) (domain.Customer, error) {
	if !actor.IsAdmin() {
		return domain.Customer{}, domain.ErrPermissionDenied
	}
	phone := strings.TrimSpace(input.PhoneNumber)
	if phone == "" || strings.Contains(phone, "/") {
		return domain.Customer{}, fmt.Errorf("phone number is required: %w", domain.ErrInvalidInput)
	}
	if input.AccountType == "" {
		input.AccountType = domain.RoleUser
	}
	if !input.AccountType.Valid() {
		return domain.Customer{}, fmt.Errorf("unknown account type %q: %w", input.AccountType, domain.ErrInvalidInput)
	}

	c := domain.Customer{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		PhoneNumber: phone,
		AccountType: input.AccountType,
		CreatedAt:   s.now().UTC(),
	}

	var err error
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		c.AccountNumber = newAccountNumber()
		err = s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.Create(store.Join(phoneIndexCollection, phone), indexEntry{CustomerID: c.ID}); err != nil {
				return err
			}
			if err := tx.Create(store.Join(numberIndexCollection, c.AccountNumber), indexEntry{CustomerID: c.ID}); err != nil {
				return err
			}
			return tx.Create(Path(c.ID), c)
		})
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return domain.Customer{}, err
		}
		if _, lookupErr := s.FindByPhone(ctx, phone); lookupErr == nil {
			return domain.Customer{}, fmt.Errorf("phone %s already registered: %w", phone, domain.ErrInvalidInput)
		}
	}
	return domain.Customer{}, err
}

// Get fetches a customer by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Customer, error) {
	return Load(ctx, s.store, id)
}

// FindByPhone resolves a customer through the phone index.
func (s *Service) FindByPhone(ctx context.Context, phone string) (domain.Customer, error) {
	return LoadByPhone(ctx, s.store, phone)
}

// FindByAccountNumber resolves a customer through the account number index.
func (s *Service) FindByAccountNumber(ctx context.Context, number string) (domain.Customer, error) {
	return LoadByAccountNumber(ctx, s.store, number)
}

// LoadByPhone resolves a customer through the phone index using r, so that
// inside a transaction both the index entry and the customer are tracked reads.
func LoadByPhone(ctx context.Context, r store.Reader, phone string) (domain.Customer, error) {
	return loadByIndex(ctx, r, phoneIndexCollection, strings.TrimSpace(phone))
}

// LoadByAccountNumber resolves a customer through the account number index using r.
func LoadByAccountNumber(ctx context.Context, r store.Reader, number string) (domain.Customer, error) {
	return loadByIndex(ctx, r, numberIndexCollection, strings.TrimSpace(number))
}

func loadByIndex(ctx context.Context, r store.Reader, index, key string) (domain.Customer, error) {
	if key == "" || strings.Contains(key, "/") {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	var entry indexEntry
	if err := r.Get(ctx, store.Join(index, key), &entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Customer{}, fmt.Errorf("%s %s: %w", index, key, domain.ErrCustomerNotFound)
		}
		return domain.Customer{}, err
	}
	return Load(ctx, r, entry.CustomerID)
}

func newAccountNumber() string {
	var sb strings.Builder
	sb.WriteByte(byte('1' + rand.N(9)))
	for i := 1; i < accountNumberDigits; i++ {
		sb.WriteByte(byte('0' + rand.N(10)))
	}
	return sb.String()
}
