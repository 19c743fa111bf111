// Package catalog reads and writes networks and their embedded categories.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shabakat/ledger/internal/customer"
	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/store"
)

const collection = "networks"

// Path returns the document path of a network.
func Path(id string) string {
	return store.Join(collection, id)
}

// LoadNetwork reads a network through r, bypassing every cache.
func LoadNetwork(ctx context.Context, r store.Reader, id string) (domain.Network, error) {
	if !validID(id) {
		return domain.Network{}, fmt.Errorf("network %q: %w", id, domain.ErrNetworkNotFound)
	}
	var n domain.Network
	if err := r.Get(ctx, Path(id), &n); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Network{}, fmt.Errorf("network %s: %w", id, domain.ErrNetworkNotFound)
		}
		return domain.Network{}, err
	}
	return n, nil
}

// LoadCategory reads a network and one of its categories through r. Inside a
// transaction this puts the network in the read set, so a concurrent price
// edit invalidates the transaction.
func LoadCategory(ctx context.Context, r store.Reader, networkID, categoryID string) (domain.Network, domain.Category, error) {
	n, err := LoadNetwork(ctx, r, networkID)
	if err != nil {
		return domain.Network{}, domain.Category{}, err
	}
	cat, ok := n.Category(categoryID)
	if !ok {
		return domain.Network{}, domain.Category{}, fmt.Errorf("category %s in network %s: %w", categoryID, networkID, domain.ErrCategoryNotFound)
	}
	return n, cat, nil
}

// LoadOwner resolves the customer registered as owner of n through its
// ownerPhone, reading the phone index and the customer through r.
func LoadOwner(ctx context.Context, r store.Reader, n domain.Network) (domain.Customer, error) {
	if n.OwnerPhone == "" {
		return domain.Customer{}, fmt.Errorf("network %s has no owner: %w", n.ID, domain.ErrOwnerNotFound)
	}
	owner, err := customer.LoadByPhone(ctx, r, n.OwnerPhone)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return domain.Customer{}, fmt.Errorf("owner of network %s: %w", n.ID, domain.ErrOwnerNotFound)
		}
		return domain.Customer{}, err
	}
	return owner, nil
}

// Service is the read-mostly network catalog.
type Service struct {
	store  store.Store
	cache  *RedisCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewService builds a catalog service. cache may be nil.
func NewService(s store.Store, cache *RedisCache, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{store: s, cache: cache, ttl: ttl, logger: logger}
}

// SaveNetwork creates or replaces a network. Admins may write any network;
// owners only their own, and cannot reassign its owner.
func (s *Service) SaveNetwork(ctx context.Context, actor domain.Actor, n domain.Network) (domain.Network, error) {
	if !actor.OwnsNetwork(n.ID) {
		return domain.Network{}, domain.ErrPermissionDenied
	}
	if err := validateNetwork(n); err != nil {
		return domain.Network{}, err
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		existing, err := LoadNetwork(ctx, tx, n.ID)
		switch {
		case errors.Is(err, domain.ErrNetworkNotFound):
		case err != nil:
			return err
		case !actor.IsAdmin():
			n.OwnerPhone = existing.OwnerPhone
		}
		return tx.Set(Path(n.ID), n)
	})
	if err != nil {
		return domain.Network{}, err
	}

	if err := s.cache.invalidate(ctx, n.ID); err != nil && s.logger != nil {
		s.logger.Warn("catalog cache invalidation failed", slog.String("network_id", n.ID), slog.Any("error", err))
	}
	return n, nil
}

// Network reads a network through the shared cache.
func (s *Service) Network(ctx context.Context, id string) (domain.Network, error) {
	if data, ok := s.cache.get(ctx, id); ok {
		var n domain.Network
		if err := json.Unmarshal(data, &n); err == nil {
			return n, nil
		}
	}
	n, err := LoadNetwork(ctx, s.store, id)
	if err != nil {
		return domain.Network{}, err
	}
	if data, err := json.Marshal(n); err == nil {
		s.cache.set(ctx, id, data, s.ttl)
	}
	return n, nil
}

// NewLookup returns a request-scoped read-through cache over this catalog.
func (s *Service) NewLookup() *Lookup {
	return &Lookup{catalog: s, networks: make(map[string]domain.Network)}
}

func validateNetwork(n domain.Network) error {
	if !validID(n.ID) {
		return fmt.Errorf("network id is required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("network name is required: %w", domain.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(n.Categories))
	for _, c := range n.Categories {
		if !validID(c.ID) {
			return fmt.Errorf("category id is required: %w", domain.ErrInvalidInput)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate category id %s: %w", c.ID, domain.ErrInvalidInput)
		}
		seen[c.ID] = true
		if c.Price <= 0 {
			return fmt.Errorf("category %s price must be positive: %w", c.ID, domain.ErrInvalidInput)
		}
	}
	return nil
}

func validID(id string) bool {
	return strings.TrimSpace(id) != "" && !strings.Contains(id, "/")
}
