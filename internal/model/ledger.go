package model

import (
	"go-distributor-ledger/internal/money"

	"github.com/google/uuid"
)

// LedgerKind tags how a ledger entry moved the shop's debt.
type LedgerKind string

const (
	KindCash           LedgerKind = "cash"
	KindCard           LedgerKind = "card"
	KindTransfer       LedgerKind = "transfer"
	KindOrder          LedgerKind = "order"
	KindManualDebt     LedgerKind = "manual_debt"
	KindDebtAdjustment LedgerKind = "debt_adjustment"
)

// IsPaymentMethod reports whether k may be used for a received payment.
func (k LedgerKind) IsPaymentMethod() bool {
	switch k {
	case KindCash, KindCard, KindTransfer:
		return true
	}
	return false
}

// LedgerEntry is one immutable change to a shop's debt. Positive amounts reduce
// debt (payments), negative amounts increase it (orders, manual debt, upward adjustments).
type LedgerEntry struct {
	AppendOnly
	ShopID        uuid.UUID    `gorm:"type:uuid;not null;index" json:"shop_id"`
	DistributorID uuid.UUID    `gorm:"type:uuid;not null;index" json:"distributor_id"`
	Amount        money.Amount `gorm:"type:numeric(14,2);not null" json:"amount"`
	Kind          LedgerKind   `gorm:"type:varchar(20);not null;default:'cash'" json:"kind"`
	OrderID       *uuid.UUID   `gorm:"type:uuid;index" json:"order_id,omitempty"`
	ReceivedBy    *uuid.UUID   `gorm:"type:uuid" json:"received_by,omitempty"`
	Notes         string       `gorm:"type:text" json:"notes,omitempty"`
	PreviousDebt  money.Amount `gorm:"type:numeric(14,2);not null" json:"previous_debt"`
	NewDebt       money.Amount `gorm:"type:numeric(14,2);not null" json:"new_debt"`
}

// DebtEffect is the signed change this entry applied to the shop's debt.
func (e *LedgerEntry) DebtEffect() money.Amount {
	return e.Amount.Neg()
}

// EntryType is the label shown in debt history.
func (e *LedgerEntry) EntryType() string {
	if e.Amount.IsNegative() {
		return "debt_added"
	}
	return "payment_received"
}
