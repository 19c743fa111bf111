// Package reporting computes read-only views over card inventory. Results
// are a recent snapshot and must never authorize a write.
package reporting

import (
	"context"
	"sort"

	"github.com/shabakat/ledger/internal/catalog"
	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/inventory"
)

// Counts is the stock of a category.
type Counts struct {
	Available int `json:"available"`
	Sold      int `json:"sold"`
}

// SaleRow is a card enriched with its category for display.
type SaleRow struct {
	Card         domain.Card `json:"card"`
	CategoryName string      `json:"categoryName"`
	Price        int64       `json:"price"`
}

// Service builds reporting views.
type Service struct {
	inventory *inventory.Service
}

// NewService creates a reporting service.
func NewService(inv *inventory.Service) *Service {
	return &Service{inventory: inv}
}

// CountByStatus counts available and sold (used or transferred) cards.
func (s *Service) CountByStatus(ctx context.Context, lookup *catalog.Lookup, networkID, categoryID string) (Counts, error) {
	if _, err := lookup.Category(ctx, networkID, categoryID); err != nil {
		return Counts{}, err
	}
	cards, err := s.inventory.List(ctx, networkID, categoryID)
	if err != nil {
		return Counts{}, err
	}
	var c Counts
	for _, card := range cards {
		switch {
		case card.Status == domain.CardAvailable:
			c.Available++
		case card.Sold():
			c.Sold++
		}
	}
	return c, nil
}

// SalesHistory lists the cards of a network, optionally one category: sold
// cards first by most recent sale, then unsold cards by most recent import.
// Only admins and the network owner may read it.
func (s *Service) SalesHistory(ctx context.Context, actor domain.Actor, lookup *catalog.Lookup, networkID, categoryID string) ([]SaleRow, error) {
	if !actor.OwnsNetwork(networkID) {
		return nil, domain.ErrPermissionDenied
	}
	if categoryID != "" {
		if _, err := lookup.Category(ctx, networkID, categoryID); err != nil {
			return nil, err
		}
	} else if _, err := lookup.Network(ctx, networkID); err != nil {
		return nil, err
	}

	cards, err := s.inventory.List(ctx, networkID, categoryID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cards, func(i, j int) bool { return before(cards[i], cards[j]) })

	rows := make([]SaleRow, 0, len(cards))
	for _, card := range cards {
		row := SaleRow{Card: card}
		if cat, err := lookup.Category(ctx, networkID, card.CategoryID); err == nil {
			row.CategoryName = cat.Name
			row.Price = cat.Price
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func before(a, b domain.Card) bool {
	if a.Sold() != b.Sold() {
		return a.Sold()
	}
	if a.Sold() && a.UsedAt != nil && b.UsedAt != nil && !a.UsedAt.Equal(*b.UsedAt) {
		return a.UsedAt.After(*b.UsedAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}
