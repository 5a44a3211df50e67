package model

import (
	"go-distributor-ledger/internal/money"

	"github.com/google/uuid"
)

// Shop is a distributor's customer account. TotalDebt is the running balance and
// only the order and ledger engines write it.
type Shop struct {
	BaseModel
	DistributorID uuid.UUID    `gorm:"type:uuid;not null;index" json:"distributor_id"`
	Name          string       `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	OwnerName     string       `gorm:"type:varchar(255)" json:"owner_name"`
	Phone         string       `gorm:"type:varchar(20)" json:"phone"`
	Address       string       `gorm:"type:text" json:"address"`
	Latitude      *float64     `json:"latitude,omitempty"`
	Longitude     *float64     `json:"longitude,omitempty"`
	TotalDebt     money.Amount `gorm:"type:numeric(14,2);not null;default:0" json:"total_debt"`
	ChatID        *string      `gorm:"type:varchar(64);index" json:"chat_id,omitempty"`
	TelegramLink  string       `gorm:"type:varchar(255)" json:"telegram_link,omitempty"`
}

// NotificationChannel is the chat id, or "" when the shop has not linked a chat.
func (s *Shop) NotificationChannel() string {
	if s.ChatID == nil {
		return ""
	}
	return *s.ChatID
}
