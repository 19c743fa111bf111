// Package wallet runs the balance-moving operations: card purchases, profit
// transfers to network owners, withdrawal requests, admin top-ups and
// customer to customer transfers. Each runs as one store transaction that
// applies all of its effects or none.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shabakat/ledger/internal/catalog"
	"github.com/shabakat/ledger/internal/customer"
	"github.com/shabakat/ledger/internal/domain"
	"github.com/shabakat/ledger/internal/inventory"
	"github.com/shabakat/ledger/internal/ledger"
	"github.com/shabakat/ledger/internal/metrics"
	"github.com/shabakat/ledger/internal/notification"
	"github.com/shabakat/ledger/internal/store"
)

// DefaultCommissionRate is the share of a card price kept on profit transfer.
var DefaultCommissionRate = decimal.RequireFromString("0.10")

const maxCandidateCards = 5

// Deps aggregates the collaborators of the wallet service.
type Deps struct {
	Store          store.Store
	Catalog        *catalog.Service
	Inventory      *inventory.Service
	Customers      *customer.Service
	Notifier       notification.Notifier
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	CommissionRate decimal.Decimal
}

// Service executes wallet ledger operations.
type Service struct {
	store      store.Store
	catalog    *catalog.Service
	inventory  *inventory.Service
	customers  *customer.Service
	journal    *ledger.Journal
	notifier   notification.Notifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
	commission decimal.Decimal
	now        func() time.Time
}

// NewService constructs a wallet service.
func NewService(d Deps) *Service {
	return &Service{
		store:      d.Store,
		catalog:    d.Catalog,
		inventory:  d.Inventory,
		customers:  d.Customers,
		journal:    ledger.NewJournal(d.Store),
		notifier:   d.Notifier,
		metrics:    d.Metrics,
		logger:     d.Logger,
		commission: d.CommissionRate,
		now:        time.Now,
	}
}

// PurchaseResult is the outcome of a card purchase.
type PurchaseResult struct {
	Card      domain.Card      `json:"card"`
	Operation domain.Operation `json:"operation"`
}

// Purchase sells an available card to the customer at the category's
// current price.
func (s *Service) Purchase(ctx context.Context, actor domain.Actor, customerID, cardID string) (PurchaseResult, error) {
	if !actor.CanActFor(customerID) {
		return PurchaseResult{}, domain.ErrPermissionDenied
	}

	var res PurchaseResult
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		now := s.now()
		card, err := inventory.Get(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if card.Status != domain.CardAvailable {
			return fmt.Errorf("card %s is %s: %w", cardID, card.Status, domain.ErrCardUnavailable)
		}
		network, category, err := catalog.LoadCategory(ctx, tx, card.NetworkID, card.CategoryID)
		if err != nil {
			return err
		}
		buyer, err := customer.Load(ctx, tx, customerID)
		if err != nil {
			return err
		}

		if card, err = inventory.MarkUsed(ctx, tx, cardID, customerID, now); err != nil {
			return err
		}
		op, err := ledger.Post(tx, &buyer, ledger.Entry{
			Type:        domain.OpPurchase,
			Amount:      -category.Price,
			Description: fmt.Sprintf("Purchase of %s card (%s)", category.Name, network.Name),
			Details: map[string]any{
				"cardNumber":   card.ID,
				"networkId":    network.ID,
				"networkName":  network.Name,
				"categoryId":   category.ID,
				"categoryName": category.Name,
			},
		}, now)
		if err != nil {
			return err
		}
		amount := category.Price
		if _, err := notification.Append(tx, customerID, domain.Notification{
			Type:   notification.KindPurchase,
			Title:  "Card purchased",
			Body:   fmt.Sprintf("You bought a %s card from %s for %d.", category.Name, network.Name, category.Price),
			Amount: &amount,
		}, now); err != nil {
			return err
		}
		res = PurchaseResult{Card: card, Operation: op}
		return nil
	})
	s.observe(ctx, "purchase", err, customerID, slog.String("card_id", cardID))
	if err != nil {
		return PurchaseResult{}, err
	}
	s.deliver(ctx, notification.Message{
		Kind:        notification.KindPurchase,
		Destination: customerID,
		Body:        fmt.Sprintf("card %s purchased, operation %s", cardID, res.Operation.OperationNumber),
	})
	return res, nil
}

// PurchaseFromCategory buys any available card of the category. A card
// taken by a concurrent buyer is skipped and the next candidate is tried.
func (s *Service) PurchaseFromCategory(ctx context.Context, actor domain.Actor, customerID, networkID, categoryID string) (PurchaseResult, error) {
	if !actor.CanActFor(customerID) {
		return PurchaseResult{}, domain.ErrPermissionDenied
	}
	if _, _, err := catalog.LoadCategory(ctx, s.store, networkID, categoryID); err != nil {
		return PurchaseResult{}, err
	}

	skip := make(map[string]bool)
	var lastErr error
	for i := 0; i < maxCandidateCards; i++ {
		card, err := s.inventory.FirstAvailable(ctx, networkID, categoryID, skip)
		if err != nil {
			return PurchaseResult{}, err
		}
		res, err := s.Purchase(ctx, actor, customerID, card.ID)
		if !errors.Is(err, domain.ErrCardUnavailable) {
			return res, err
		}
		skip[card.ID] = true
		lastErr = err
	}
	return PurchaseResult{}, lastErr
}

// ProfitResult is the outcome of a profit transfer.
type ProfitResult struct {
	Profit     int64            `json:"profit"`
	Commission int64            `json:"commission"`
	Card       domain.Card      `json:"card"`
	Operation  domain.Operation `json:"operation"`
}

// TransferProfit pays the network owner their share of a sold card's price
// and marks the card transferred. Each card pays out at most once. An empty
// ownerID pays the network's registered owner; a non-empty one must match it.
func (s *Service) TransferProfit(ctx context.Context, actor domain.Actor, cardID, ownerID string) (ProfitResult, error) {
	res, err := s.transferProfit(ctx, actor, cardID, ownerID)
	s.observe(ctx, "transfer_profit", err, res.Operation.CustomerID, slog.String("card_id", cardID))
	if err != nil {
		return ProfitResult{}, err
	}
	s.deliver(ctx, notification.Message{
		Kind:        notification.KindProfitTransfer,
		Destination: res.Operation.CustomerID,
		Body:        fmt.Sprintf("profit %d for card %s credited", res.Profit, cardID),
	})
	return res, nil
}

func (s *Service) transferProfit(ctx context.Context, actor domain.Actor, cardID, ownerID string) (ProfitResult, error) {
	card, err := inventory.Get(ctx, s.store, cardID)
	if err != nil {
		return ProfitResult{}, err
	}
	if !actor.OwnsNetwork(card.NetworkID) {
		return ProfitResult{}, domain.ErrPermissionDenied
	}

	var res ProfitResult
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		now := s.now()
		card, err := inventory.Get(ctx, tx, cardID)
		if err != nil {
			return err
		}
		network, category, err := catalog.LoadCategory(ctx, tx, card.NetworkID, card.CategoryID)
		if err != nil {
			return err
		}
		// Payee comes from the network as read by this transaction.
		owner, err := catalog.LoadOwner(ctx, tx, network)
		if err != nil {
			return err
		}
		if ownerID != "" && ownerID != owner.ID {
			return fmt.Errorf("customer %s does not own network %s: %w", ownerID, network.ID, domain.ErrPermissionDenied)
		}
		card, err = inventory.MarkTransferred(ctx, tx, cardID, now)
		if err != nil {
			return err
		}

		profit, commission := s.split(category.Price)
		op, err := ledger.Post(tx, &owner, ledger.Entry{
			Type:        domain.OpTopUpAdmin,
			Amount:      profit,
			Description: fmt.Sprintf("Profit for %s card sold on %s", category.Name, network.Name),
			Details: map[string]any{
				"cardNumber":       card.ID,
				"cardPrice":        category.Price,
				"cardCategoryName": category.Name,
				"commissionAmount": commission,
			},
		}, now)
		if err != nil {
			return err
		}
		if _, err := notification.Append(tx, owner.ID, domain.Notification{
			Type:   notification.KindProfitTransfer,
			Title:  "Profit received",
			Body:   fmt.Sprintf("%d credited for card %s (%s), commission %d.", profit, card.ID, category.Name, commission),
			Amount: &profit,
		}, now); err != nil {
			return err
		}
		res = ProfitResult{Profit: profit, Commission: commission, Card: card, Operation: op}
		return nil
	})
	return res, err
}

// split returns floor(price * (1 - commission)) and the remainder.
func (s *Service) split(price int64) (profit, commission int64) {
	share := decimal.NewFromInt(1).Sub(s.commission)
	profit = decimal.NewFromInt(price).Mul(share).Floor().IntPart()
	return profit, price - profit
}

// WithdrawalInput captures a cash-out request.
type WithdrawalInput struct {
	OwnerID          string
	Amount           int64
	Method           string
	RecipientName    string
	RecipientAccount string
}

// RecordWithdrawalRequest debits the amount immediately and records a
// pending withdraw operation awaiting admin resolution.
func (s *Service) RecordWithdrawalRequest(ctx context.Context, actor domain.Actor, input WithdrawalInput) (domain.Operation, error) {
	if !actor.CanActFor(input.OwnerID) {
		return domain.Operation{}, domain.ErrPermissionDenied
	}
	if input.Amount <= 0 {
		return domain.Operation{}, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(input.Method) == "" || strings.TrimSpace(input.RecipientAccount) == "" {
		return domain.Operation{}, fmt.Errorf("method and recipient account are required: %w", domain.ErrInvalidInput)
	}

	var op domain.Operation
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		now := s.now()
		owner, err := customer.Load(ctx, tx, input.OwnerID)
		if err != nil {
			return err
		}
		op, err = ledger.Post(tx, &owner, ledger.Entry{
			Type:        domain.OpWithdraw,
			Amount:      -input.Amount,
			Status:      domain.StatusPending,
			Description: fmt.Sprintf("Withdrawal via %s", input.Method),
			Details: map[string]any{
				"method":           input.Method,
				"recipientName":    input.RecipientName,
				"recipientAccount": input.RecipientAccount,
			},
		}, now)
		if err != nil {
			return err
		}
		amount := input.Amount
		_, err = notification.Append(tx, owner.ID, domain.Notification{
			Type:   notification.KindWithdrawRequest,
			Title:  "Withdrawal requested",
			Body:   fmt.Sprintf("Your withdrawal of %d via %s is pending (operation %s).", input.Amount, input.Method, op.OperationNumber),
			Amount: &amount,
		}, now)
		return err
	})
	s.observe(ctx, "withdraw_request", err, input.OwnerID, slog.Int64("amount", input.Amount))
	if err != nil {
		return domain.Operation{}, err
	}
	s.deliver(ctx, notification.Message{
		Kind:        notification.KindWithdrawRequest,
		Destination: input.OwnerID,
		Body:        fmt.Sprintf("withdrawal %s of %d pending", op.OperationNumber, input.Amount),
	})
	return op, nil
}

// TopUp credits a customer. Admin only.
func (s *Service) TopUp(ctx context.Context, actor domain.Actor, customerID string, amount int64, note string) (domain.Operation, error) {
	if !actor.IsAdmin() {
		return domain.Operation{}, domain.ErrPermissionDenied
	}
	if amount <= 0 {
		return domain.Operation{}, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}
	description := "Balance top-up"
	if note != "" {
		description = note
	}

	var op domain.Operation
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		now := s.now()
		c, err := customer.Load(ctx, tx, customerID)
		if err != nil {
			return err
		}
		op, err = ledger.Post(tx, &c, ledger.Entry{
			Type:        domain.OpTopUpAdmin,
			Amount:      amount,
			Description: description,
			Details:     map[string]any{"adminId": actor.CustomerID},
		}, now)
		if err != nil {
			return err
		}
		_, err = notification.Append(tx, c.ID, domain.Notification{
			Type:   notification.KindTopUp,
			Title:  "Balance topped up",
			Body:   fmt.Sprintf("%d was added to your balance.", amount),
			Amount: &amount,
		}, now)
		return err
	})
	s.observe(ctx, "topup", err, customerID, slog.Int64("amount", amount))
	if err != nil {
		return domain.Operation{}, err
	}
	s.deliver(ctx, notification.Message{Kind: notification.KindTopUp, Destination: customerID, Body: fmt.Sprintf("top-up of %d", amount)})
	return op, nil
}

// TransferResult holds both sides of a customer to customer transfer.
type TransferResult struct {
	Sent     domain.Operation `json:"sent"`
	Received domain.Operation `json:"received"`
}

// Transfer moves funds from a customer to the holder of toAccountNumber.
func (s *Service) Transfer(ctx context.Context, actor domain.Actor, fromID, toAccountNumber string, amount int64, note string) (TransferResult, error) {
	if !actor.CanActFor(fromID) {
		return TransferResult{}, domain.ErrPermissionDenied
	}
	if amount <= 0 {
		return TransferResult{}, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}
	recipient, err := s.customers.FindByAccountNumber(ctx, toAccountNumber)
	if err != nil {
		return TransferResult{}, err
	}
	if recipient.ID == fromID {
		return TransferResult{}, fmt.Errorf("cannot transfer to own account: %w", domain.ErrInvalidInput)
	}

	var res TransferResult
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		now := s.now()
		sender, err := customer.Load(ctx, tx, fromID)
		if err != nil {
			return err
		}
		receiver, err := customer.Load(ctx, tx, recipient.ID)
		if err != nil {
			return err
		}
		sent, err := ledger.Post(tx, &sender, ledger.Entry{
			Type:        domain.OpTransferSent,
			Amount:      -amount,
			Description: fmt.Sprintf("Transfer to %s", receiver.AccountNumber),
			Details:     map[string]any{"toAccountNumber": receiver.AccountNumber, "toName": receiver.Name, "note": note},
		}, now)
		if err != nil {
			return err
		}
		received, err := ledger.Post(tx, &receiver, ledger.Entry{
			Type:        domain.OpTransferReceived,
			Amount:      amount,
			Description: fmt.Sprintf("Transfer from %s", sender.AccountNumber),
			Details:     map[string]any{"fromAccountNumber": sender.AccountNumber, "fromName": sender.Name, "note": note},
		}, now)
		if err != nil {
			return err
		}
		debit := amount
		if _, err := notification.Append(tx, sender.ID, domain.Notification{
			Type:   notification.KindTransferSent,
			Title:  "Transfer sent",
			Body:   fmt.Sprintf("You sent %d to %s.", amount, receiver.AccountNumber),
			Amount: &debit,
		}, now); err != nil {
			return err
		}
		credit := amount
		if _, err := notification.Append(tx, receiver.ID, domain.Notification{
			Type:   notification.KindTransferReceived,
			Title:  "Transfer received",
			Body:   fmt.Sprintf("You received %d from %s.", amount, sender.AccountNumber),
			Amount: &credit,
		}, now); err != nil {
			return err
		}
		res = TransferResult{Sent: sent, Received: received}
		return nil
	})
	s.observe(ctx, "transfer", err, fromID, slog.String("to_account", toAccountNumber), slog.Int64("amount", amount))
	if err != nil {
		return TransferResult{}, err
	}
	s.deliver(ctx, notification.Message{
		Kind:        notification.KindTransferReceived,
		Destination: recipient.ID,
		Body:        fmt.Sprintf("You received %d", amount),
	})
	return res, nil
}

// History lists a customer's operations, newest first.
func (s *Service) History(ctx context.Context, actor domain.Actor, customerID string) ([]domain.Operation, error) {
	if !actor.CanActFor(customerID) {
		return nil, domain.ErrPermissionDenied
	}
	return s.journal.History(ctx, customerID)
}

// Reconcile audits a customer's balance against the journal. Admin only.
func (s *Service) Reconcile(ctx context.Context, actor domain.Actor, customerID string) (ledger.Reconciliation, error) {
	if !actor.IsAdmin() {
		return ledger.Reconciliation{}, domain.ErrPermissionDenied
	}
	return s.journal.Reconcile(ctx, customerID)
}

func (s *Service) observe(ctx context.Context, op string, err error, customerID string, attrs ...slog.Attr) {
	s.metrics.Observe(op, err)
	if s.logger == nil {
		return
	}
	attrs = append(attrs, slog.String("op", op), slog.String("customer_id", customerID))
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
		s.logger.LogAttrs(ctx, slog.LevelWarn, "ledger operation rejected", attrs...)
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "ledger operation committed", attrs...)
}

func (s *Service) deliver(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil && s.logger != nil {
		s.logger.Warn("notification delivery failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}
