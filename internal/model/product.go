package model

import (
	"go-distributor-ledger/internal/money"

	"github.com/google/uuid"
)

type Product struct {
	BaseModel
	DistributorID uuid.UUID    `gorm:"type:uuid;not null;index" json:"distributor_id"`
	Name          string       `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Description   string       `gorm:"type:text" json:"description"`
	Unit          string       `gorm:"type:varchar(20)" json:"unit"`
	Price         money.Amount `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Stock         int          `gorm:"not null;default:0;check:stock >= 0" json:"stock" validate:"gte=0"`
}
