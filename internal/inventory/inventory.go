// Package inventory tracks the lifecycle of prepaid cards:
// available -> used -> transferred. Status changes only happen inside a
// caller's store transaction.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/store"
)

const collection = "cards"

// Path returns the document path of a card keyed by its number.
func Path(cardID string) string {
	return store.Join(collection, cardID)
}

// Get reads a card through r.
func Get(ctx context.Context, r store.Reader, cardID string) (domain.Card, error) {
	if !validNumber(cardID) {
		return domain.Card{}, fmt.Errorf("card %q: %w", cardID, domain.ErrCardNotFound)
	}
	var card domain.Card
	if err := r.Get(ctx, Path(cardID), &card); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Card{}, fmt.Errorf("card %s: %w", cardID, domain.ErrCardNotFound)
		}
		return domain.Card{}, err
	}
	return card, nil
}

// MarkUsed moves an available card to used within tx.
func MarkUsed(ctx context.Context, tx store.Tx, cardID, buyerID string, at time.Time) (domain.Card, error) {
	card, err := Get(ctx, tx, cardID)
	if err != nil {
		return domain.Card{}, err
	}
	if card.Status != domain.CardAvailable {
		return domain.Card{}, fmt.Errorf("card %s is %s: %w", cardID, card.Status, domain.ErrCardUnavailable)
	}
	card.Status = domain.CardUsed
	card.UsedAt = &at
	card.UsedBy = buyerID
	if err := tx.Set(Path(cardID), card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

// MarkTransferred moves a used card to transferred within tx. A card that is
// already transferred fails with an error matching both ErrInvalidTransition
// and ErrAlreadyTransferred.
func MarkTransferred(ctx context.Context, tx store.Tx, cardID string, at time.Time) (domain.Card, error) {
	card, err := Get(ctx, tx, cardID)
	if err != nil {
		return domain.Card{}, err
	}
	switch card.Status {
	case domain.CardUsed:
	case domain.CardTransferred:
		return domain.Card{}, fmt.Errorf("card %s: %w: %w", cardID, domain.ErrInvalidTransition, domain.ErrAlreadyTransferred)
	default:
		return domain.Card{}, fmt.Errorf("card %s is %s: %w", cardID, card.Status, domain.ErrInvalidTransition)
	}
	card.Status = domain.CardTransferred
	card.TransferredAt = &at
	if err := tx.Set(Path(cardID), card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

func validNumber(n string) bool {
	return n != "" && strings.TrimSpace(n) == n && !strings.Contains(n, "/")
}
