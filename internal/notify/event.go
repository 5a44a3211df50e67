// Package notify delivers shop notifications outside of the order and ledger
// transactions. Callers hand over an Event and never wait for delivery.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"go-distributor-ledger/internal/money"

	"github.com/google/uuid"
)

type Kind string

const (
	OrderCreated    Kind = "order_created"
	OrderDelivered  Kind = "order_delivered"
	PaymentReceived Kind = "payment_received"
	ManualDebtAdded Kind = "manual_debt_added"
)

// Event is one notification about a shop. ChannelID is the shop's chat id and may be empty.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Kind          Kind      `json:"kind"`
	ShopID        uuid.UUID `json:"shop_id"`
	DistributorID uuid.UUID `json:"distributor_id"`
	ChannelID     string    `json:"channel_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	Payload       any       `json:"payload"`
}

// Notifier is what the order and ledger engines depend on.
type Notifier interface {
	Notify(e Event)
}

type Actor struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type ItemLine struct {
	ProductName string       `json:"product_name"`
	Quantity    int          `json:"quantity"`
	Price       money.Amount `json:"price"`
	Subtotal    money.Amount `json:"subtotal"`
}

// OrderPayload is used for both order_created and order_delivered.
type OrderPayload struct {
	OrderID   uuid.UUID    `json:"order_id"`
	ShopName  string       `json:"shop_name"`
	Actor     Actor        `json:"actor"`
	Items     []ItemLine   `json:"items"`
	Total     money.Amount `json:"total"`
	Paid      money.Amount `json:"paid"`
	Remaining money.Amount `json:"remaining"`
	ShopDebt  money.Amount `json:"shop_debt"`
	Status    string       `json:"status"`
}

type PaymentPayload struct {
	EntryID      uuid.UUID    `json:"entry_id"`
	ShopName     string       `json:"shop_name"`
	Actor        Actor        `json:"actor"`
	Amount       money.Amount `json:"amount"`
	Method       string       `json:"method"`
	PreviousDebt money.Amount `json:"previous_debt"`
	NewDebt      money.Amount `json:"new_debt"`
	Notes        string       `json:"notes,omitempty"`
}

type ManualDebtPayload struct {
	EntryID      uuid.UUID    `json:"entry_id"`
	ShopName     string       `json:"shop_name"`
	Actor        Actor        `json:"actor"`
	Added        money.Amount `json:"added"`
	PreviousDebt money.Amount `json:"previous_debt"`
	NewDebt      money.Amount `json:"new_debt"`
	Notes        string       `json:"notes,omitempty"`
}

// decodePayload turns a stored payload back into its typed form.
func decodePayload(kind Kind, raw []byte) (any, error) {
	var target any
	switch kind {
	case OrderCreated, OrderDelivered:
		target = &OrderPayload{}
	case PaymentReceived:
		target = &PaymentPayload{}
	case ManualDebtAdded:
		target = &ManualDebtPayload{}
	default:
		return nil, fmt.Errorf("notify: unknown event kind %q", kind)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, err
	}
	return target, nil
}

// Envelope is the JSON body published to queues and websocket clients.
func Envelope(e Event) ([]byte, error) {
	return json.Marshal(e)
}
