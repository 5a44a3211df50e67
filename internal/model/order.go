package model

import (
	"time"

	"go-distributor-ledger/internal/money"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderDelivered OrderStatus = "delivered"
)

// Order is an on-account sale. TotalPrice is fixed at creation; RemainingAmount only
// moves through direct order payments.
type Order struct {
	BaseModel
	ShopID          uuid.UUID    `gorm:"type:uuid;not null;index" json:"shop_id"`
	Shop            *Shop        `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
	DistributorID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"distributor_id"`
	UserID          uuid.UUID    `gorm:"type:uuid;not null" json:"user_id"`
	User            *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TotalPrice      money.Amount `gorm:"type:numeric(12,2);not null" json:"total_price"`
	RemainingAmount money.Amount `gorm:"type:numeric(12,2);not null" json:"remaining_amount"`
	Status          OrderStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	DeliveredAt     *time.Time   `json:"delivered_at,omitempty"`
	Items           []OrderItem  `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (o *Order) PaidAmount() money.Amount {
	return o.TotalPrice.Sub(o.RemainingAmount)
}

// OrderItem snapshots the unit price at the moment the order was placed.
type OrderItem struct {
	AppendOnly
	OrderID     uuid.UUID    `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product     `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity    int          `gorm:"not null" json:"quantity"`
	PriceAtTime money.Amount `gorm:"type:numeric(12,2);not null" json:"price_at_time"`
	Subtotal    money.Amount `gorm:"type:numeric(12,2);not null" json:"subtotal"`
}
