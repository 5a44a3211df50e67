package repository

import (
	"context"

	"go-distributor-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderTransactionRepository stores payments taken directly against an order.
type OrderTransactionRepository interface {
	Create(tx *gorm.DB, t *model.OrderTransaction) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]model.OrderTransaction, error)
}

type transactionRepo struct {
	db *gorm.DB
}

func NewOrderTransactionRepo(db *gorm.DB) OrderTransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) Create(tx *gorm.DB, t *model.OrderTransaction) error {
	return tx.Create(t).Error
}

func (r *transactionRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]model.OrderTransaction, error) {
	var txs []model.OrderTransaction
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&txs).Error
	return txs, err
}
