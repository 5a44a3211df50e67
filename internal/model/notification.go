package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
	OutboxDead    = "dead"
)

// NotificationOutbox holds one delivery of one event to one sender, so a retry never
// repeats a delivery another sender already accepted.
type NotificationOutbox struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;" json:"id"`
	EventID       uuid.UUID      `gorm:"type:uuid;index" json:"event_id"`
	Sender        string         `gorm:"type:varchar(32);not null" json:"sender"`
	Kind          string         `gorm:"type:varchar(40);not null" json:"kind"`
	ShopID        uuid.UUID      `gorm:"type:uuid;index" json:"shop_id"`
	DistributorID uuid.UUID      `gorm:"type:uuid;index" json:"distributor_id"`
	ChannelID     string         `gorm:"type:varchar(64)" json:"channel_id"`
	Payload       datatypes.JSON `json:"payload"`
	Status        string         `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	LastError     *string        `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt *time.Time     `gorm:"index" json:"next_attempt_at,omitempty"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (NotificationOutbox) TableName() string {
	return "notification_outbox"
}
