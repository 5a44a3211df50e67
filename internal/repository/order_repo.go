package repository

import (
	"context"
	"time"

	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/money"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderFilter struct {
	ShopID *uuid.UUID
	Status model.OrderStatus
	From   *time.Time
	To     *time.Time
	Limit  int
}

// UnpaidOrder is the projection used to age shop debt.
type UnpaidOrder struct {
	ShopID    uuid.UUID
	CreatedAt time.Time
}

type OrderRepository interface {
	Create(tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, tx *gorm.DB, distributorID, id uuid.UUID) (*model.Order, error)
	LockByID(tx *gorm.DB, distributorID, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, distributorID uuid.UUID, f OrderFilter) ([]model.Order, error)
	MarkDelivered(tx *gorm.DB, id uuid.UUID, at time.Time, updatedBy string) error
	SetRemaining(tx *gorm.DB, id uuid.UUID, remaining money.Amount) error
	UnpaidOrders(ctx context.Context, shopIDs []uuid.UUID) ([]UnpaidOrder, error)
	TotalSales(ctx context.Context, distributorID uuid.UUID) (money.Amount, error)
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

// Create inserts the order and its items in the caller's transaction.
func (r *orderRepo) Create(tx *gorm.DB, order *model.Order) error {
	return tx.Create(order).Error
}

func (r *orderRepo) FindByID(ctx context.Context, tx *gorm.DB, distributorID, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := conn(ctx, r.db, tx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Shop").
		Preload("User").
		First(&order, "id = ? AND distributor_id = ?", id, distributorID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) LockByID(tx *gorm.DB, distributorID, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := tx.Clauses(forUpdate).First(&order, "id = ? AND distributor_id = ?", id, distributorID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) List(ctx context.Context, distributorID uuid.UUID, f OrderFilter) ([]model.Order, error) {
	q := r.db.WithContext(ctx).Preload("Shop").Where("distributor_id = ?", distributorID)
	if f.ShopID != nil {
		q = q.Where("shop_id = ?", *f.ShopID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var orders []model.Order
	err := q.Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepo) MarkDelivered(tx *gorm.DB, id uuid.UUID, at time.Time, updatedBy string) error {
	return tx.Model(&model.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       model.OrderDelivered,
		"delivered_at": at,
		"updated_by":   updatedBy,
	}).Error
}

func (r *orderRepo) SetRemaining(tx *gorm.DB, id uuid.UUID, remaining money.Amount) error {
	return tx.Model(&model.Order{}).Where("id = ?", id).Update("remaining_amount", remaining).Error
}

// UnpaidOrders returns the creation time of every order with money still outstanding
// against it, for the given shops.
func (r *orderRepo) UnpaidOrders(ctx context.Context, shopIDs []uuid.UUID) ([]UnpaidOrder, error) {
	if len(shopIDs) == 0 {
		return nil, nil
	}
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Select("shop_id", "created_at").
		Where("shop_id IN ? AND remaining_amount > 0", shopIDs).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	out := make([]UnpaidOrder, len(orders))
	for i, o := range orders {
		out[i] = UnpaidOrder{ShopID: o.ShopID, CreatedAt: o.CreatedAt}
	}
	return out, nil
}

func (r *orderRepo) TotalSales(ctx context.Context, distributorID uuid.UUID) (money.Amount, error) {
	var total money.Amount
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("COALESCE(SUM(total_price), 0)").
		Where("distributor_id = ?", distributorID).
		Row().Scan(&total)
	return total, err
}
