package catalog

import (
	"context"
	"fmt"

	"github.com/shabakat/ledger/internal/domain"
)

// Lookup memoizes network reads for the lifetime of one request. It is not
// safe for concurrent use.
type Lookup struct {
	catalog  *Service
	networks map[string]domain.Network
}

// Network returns the network, reading through on the first call.
func (l *Lookup) Network(ctx context.Context, id string) (domain.Network, error) {
	if n, ok := l.networks[id]; ok {
		return n, nil
	}
	n, err := l.catalog.Network(ctx, id)
	if err != nil {
		return domain.Network{}, err
	}
	l.networks[id] = n
	return n, nil
}

// Category returns one category of a network.
func (l *Lookup) Category(ctx context.Context, networkID, categoryID string) (domain.Category, error) {
	n, err := l.Network(ctx, networkID)
	if err != nil {
		return domain.Category{}, err
	}
	cat, ok := n.Category(categoryID)
	if !ok {
		return domain.Category{}, fmt.Errorf("category %s: %w", categoryID, domain.ErrCategoryNotFound)
	}
	return cat, nil
}
