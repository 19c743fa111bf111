package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shabakat/ledger/internal/catalog"
	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/store"
)

// Rejection reasons reported per card number.
const (
	ReasonDuplicateCard = "duplicate_card"
	ReasonInvalidInput  = "invalid_input"
)

// Rejection is one card number the import refused.
type Rejection struct {
	Number string `json:"number"`
	Reason string `json:"reason"`
	// Err wraps domain.ErrDuplicateCard or domain.ErrInvalidInput.
	Err error `json:"-"`
}

// ImportResult reports the outcome of a bulk card import.
type ImportResult struct {
	Accepted int         `json:"accepted"`
	Rejected []Rejection `json:"rejected"`
}

func (r *ImportResult) reject(number, reason string, err error) {
	r.Rejected = append(r.Rejected, Rejection{Number: number, Reason: reason, Err: err})
}

// Service manages card stock for network categories.
type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs an inventory service.
func NewService(s store.Store, logger *slog.Logger) *Service {
	return &Service{store: s, logger: logger, now: time.Now}
}

// ImportCards creates each card number as available. Blank, repeated or
// already present numbers are rejected individually; the import as a whole
// is not atomic. A store failure stops the import and returns the partial
// result with the error.
func (s *Service) ImportCards(ctx context.Context, actor domain.Actor, networkID, categoryID string, numbers []string) (ImportResult, error) {
	if !actor.OwnsNetwork(networkID) {
		return ImportResult{}, domain.ErrPermissionDenied
	}
	if _, _, err := catalog.LoadCategory(ctx, s.store, networkID, categoryID); err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Rejected: []Rejection{}}
	seen := make(map[string]bool, len(numbers))
	for _, raw := range numbers {
		number := strings.TrimSpace(raw)
		if !validNumber(number) {
			result.reject(raw, ReasonInvalidInput, fmt.Errorf("card number %q: %w", raw, domain.ErrInvalidInput))
			continue
		}
		if seen[number] {
			result.reject(number, ReasonInvalidInput, fmt.Errorf("card %s repeated in request: %w", number, domain.ErrInvalidInput))
			continue
		}
		seen[number] = true

		card := domain.Card{
			ID:         number,
			NetworkID:  networkID,
			CategoryID: categoryID,
			Status:     domain.CardAvailable,
			CreatedAt:  s.now().UTC(),
		}
		if err := s.store.Create(ctx, Path(number), card); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				result.reject(number, ReasonDuplicateCard, fmt.Errorf("card %s: %w", number, domain.ErrDuplicateCard))
				continue
			}
			return result, fmt.Errorf("import card %s: %w", number, err)
		}
		result.Accepted++
	}

	s.logger.Info("cards imported",
		slog.String("network_id", networkID),
		slog.String("category_id", categoryID),
		slog.Int("accepted", result.Accepted),
		slog.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// Get returns a single card.
func (s *Service) Get(ctx context.Context, cardID string) (domain.Card, error) {
	return Get(ctx, s.store, cardID)
}

// List returns the cards of a network, optionally narrowed to one category.
func (s *Service) List(ctx context.Context, networkID, categoryID string) ([]domain.Card, error) {
	filters := []store.Filter{store.Where("networkId", networkID)}
	if categoryID != "" {
		filters = append(filters, store.Where("categoryId", categoryID))
	}
	return s.list(ctx, filters...)
}

// FirstAvailable returns an available card of the category that is not in
// skip. It fails with ErrCardUnavailable when the category is sold out.
func (s *Service) FirstAvailable(ctx context.Context, networkID, categoryID string, skip map[string]bool) (domain.Card, error) {
	cards, err := s.list(ctx,
		store.Where("networkId", networkID),
		store.Where("categoryId", categoryID),
		store.Where("status", string(domain.CardAvailable)),
	)
	if err != nil {
		return domain.Card{}, err
	}
	for _, card := range cards {
		if !skip[card.ID] {
			return card, nil
		}
	}
	return domain.Card{}, fmt.Errorf("no card left in %s/%s: %w", networkID, categoryID, domain.ErrCardUnavailable)
}

func (s *Service) list(ctx context.Context, filters ...store.Filter) ([]domain.Card, error) {
	docs, err := s.store.List(ctx, collection, filters...)
	if err != nil {
		return nil, err
	}
	cards := make([]domain.Card, 0, len(docs))
	for _, doc := range docs {
		var card domain.Card
		if err := doc.Decode(&card); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Path, err)
		}
		cards = append(cards, card)
	}
	return cards, nil
}
