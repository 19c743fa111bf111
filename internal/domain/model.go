package domain

import "time"

// Customer is a wallet holder. Balance is only changed through ledger postings.
type Customer struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	PhoneNumber   string    `json:"phoneNumber"`
	Balance       int64     `json:"balance"`
	AccountType   Role      `json:"accountType"`
	AccountNumber string    `json:"accountNumber"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Category is a priced product tier embedded in a Network.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Validity string `json:"validity"`
	Capacity string `json:"capacity"`
}

// Network is a reseller owning categories and cards.
type Network struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Logo       string     `json:"logo,omitempty"`
	Address    string     `json:"address,omitempty"`
	OwnerPhone string     `json:"ownerPhone,omitempty"`
	Categories []Category `json:"categories"`
}

// Category returns the embedded category with the given id.
func (n Network) Category(id string) (Category, bool) {
	for _, c := range n.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// CardStatus is the lifecycle state of a card: available -> used -> transferred.
type CardStatus string

const (
	CardAvailable   CardStatus = "available"
	CardUsed        CardStatus = "used"
	CardTransferred CardStatus = "transferred"
)

// Card is a single sellable prepaid code keyed by its card number.
type Card struct {
	ID            string     `json:"id"`
	NetworkID     string     `json:"networkId"`
	CategoryID    string     `json:"categoryId"`
	Status        CardStatus `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UsedAt        *time.Time `json:"usedAt,omitempty"`
	UsedBy        string     `json:"usedBy,omitempty"`
	TransferredAt *time.Time `json:"transferredAt,omitempty"`
}

// Sold reports whether the card has left the available state.
func (c Card) Sold() bool {
	return c.Status == CardUsed || c.Status == CardTransferred
}

// OperationType classifies ledger entries.
type OperationType string

const (
	OpPurchase         OperationType = "purchase"
	OpTopUpAdmin       OperationType = "topup_admin"
	OpWithdraw         OperationType = "withdraw"
	OpTransferSent     OperationType = "transfer_sent"
	OpTransferReceived OperationType = "transfer_received"
)

// OperationStatus is the settlement state of an operation.
type OperationStatus string

const (
	StatusCompleted OperationStatus = "completed"
	StatusPending   OperationStatus = "pending"
	StatusFailed    OperationStatus = "failed"
)

// Operation is an append-only ledger entry in a customer's history.
type Operation struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customerId"`
	Type            OperationType   `json:"type"`
	Amount          int64           `json:"amount"`
	Date            time.Time       `json:"date"`
	Description     string          `json:"description"`
	Status          OperationStatus `json:"status"`
	OperationNumber string          `json:"operationNumber"`
	Details         map[string]any  `json:"details,omitempty"`
	BalanceAfter    *int64          `json:"balanceAfter,omitempty"`
}

// Notification is an informational record shown to a customer.
type Notification struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Amount *int64    `json:"amount,omitempty"`
	Date   time.Time `json:"date"`
	Read   bool      `json:"read"`
}
