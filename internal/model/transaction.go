package model

import (
	"go-distributor-ledger/internal/money"

	"github.com/google/uuid"
)

type PaymentType string

const (
	PaymentCash PaymentType = "cash"
	PaymentCard PaymentType = "card"
)

// OrderTransaction is a payment taken directly against one order. It reduces the
// order's RemainingAmount and nothing else.
type OrderTransaction struct {
	AppendOnly
	OrderID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"order_id"`
	UserID      uuid.UUID    `gorm:"type:uuid;not null" json:"user_id"`
	Amount      money.Amount `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentType PaymentType  `gorm:"type:varchar(10);not null" json:"payment_type"`
	Comment     string       `gorm:"type:text" json:"comment,omitempty"`
}
