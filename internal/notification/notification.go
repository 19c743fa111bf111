// Package notification stores per-customer notifications and delivers
// post-commit messages to downstream channels.
package notification

import (
	"context"
	"log/slog"
)

// Notification kinds shared by stored records and delivered messages.
const (
	KindPurchase          = "purchase"
	KindProfitTransfer    = "profit_transfer"
	KindWithdrawRequest   = "withdraw_request"
	KindWithdrawCompleted = "withdraw_completed"
	KindWithdrawFailed    = "withdraw_failed"
	KindTopUp             = "topup"
	KindTransferSent      = "transfer_sent"
	KindTransferReceived  = "transfer_received"
)

// Message describes a notification payload for external delivery.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers messages to downstream systems. It is called only after
// the ledger transaction committed.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes messages to the logger instead of a real channel.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("body", message.Body),
	)
	return nil
}
