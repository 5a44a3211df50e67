package repository

import (
	"context"

	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/money"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LedgerFilter struct {
	ShopID        *uuid.UUID
	DistributorID *uuid.UUID
	PaymentsOnly  bool
	Limit         int
}

// PaymentStats summarises payments received from one shop.
type PaymentStats struct {
	PaymentsCount int64        `json:"payments_count"`
	TotalPaid     money.Amount `json:"total_paid"`
	TotalAdded    money.Amount `json:"total_debt_added"`
	LastPaymentAt *string      `json:"last_payment_at,omitempty"`
}

type LedgerRepository interface {
	Append(tx *gorm.DB, entry *model.LedgerEntry) error
	List(ctx context.Context, f LedgerFilter) ([]model.LedgerEntry, error)
	SumForShop(ctx context.Context, tx *gorm.DB, shopID uuid.UUID) (money.Amount, error)
	Stats(ctx context.Context, shopID uuid.UUID) (*PaymentStats, error)
	TotalPaymentsReceived(ctx context.Context, distributorID uuid.UUID) (money.Amount, error)
}

type ledgerRepo struct {
	db *gorm.DB
}

func NewLedgerRepo(db *gorm.DB) LedgerRepository {
	return &ledgerRepo{db}
}

// Append is the only write path for ledger entries.
func (r *ledgerRepo) Append(tx *gorm.DB, entry *model.LedgerEntry) error {
	return tx.Create(entry).Error
}

func (r *ledgerRepo) List(ctx context.Context, f LedgerFilter) ([]model.LedgerEntry, error) {
	q := r.db.WithContext(ctx)
	if f.ShopID != nil {
		q = q.Where("shop_id = ?", *f.ShopID)
	}
	if f.DistributorID != nil {
		q = q.Where("distributor_id = ?", *f.DistributorID)
	}
	if f.PaymentsOnly {
		q = q.Where("amount > 0")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var entries []model.LedgerEntry
	err := q.Order("created_at DESC").Find(&entries).Error
	return entries, err
}

// SumForShop is the raw signed sum of the shop's entries.
func (r *ledgerRepo) SumForShop(ctx context.Context, tx *gorm.DB, shopID uuid.UUID) (money.Amount, error) {
	var sum money.Amount
	err := conn(ctx, r.db, tx).Model(&model.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("shop_id = ?", shopID).
		Row().Scan(&sum)
	return sum, err
}

func (r *ledgerRepo) Stats(ctx context.Context, shopID uuid.UUID) (*PaymentStats, error) {
	db := r.db.WithContext(ctx)
	stats := &PaymentStats{}

	if err := db.Model(&model.LedgerEntry{}).
		Where("shop_id = ? AND amount > 0", shopID).
		Count(&stats.PaymentsCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("shop_id = ? AND amount > 0", shopID).
		Row().Scan(&stats.TotalPaid); err != nil {
		return nil, err
	}
	var added money.Amount
	if err := db.Model(&model.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("shop_id = ? AND amount < 0", shopID).
		Row().Scan(&added); err != nil {
		return nil, err
	}
	stats.TotalAdded = added.Neg()

	var last model.LedgerEntry
	err := db.Where("shop_id = ? AND amount > 0", shopID).Order("created_at DESC").Limit(1).Find(&last).Error
	if err != nil {
		return nil, err
	}
	if last.ID != uuid.Nil {
		ts := last.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		stats.LastPaymentAt = &ts
	}
	return stats, nil
}

func (r *ledgerRepo) TotalPaymentsReceived(ctx context.Context, distributorID uuid.UUID) (money.Amount, error) {
	var total money.Amount
	err := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("distributor_id = ? AND amount > 0", distributorID).
		Row().Scan(&total)
	return total, err
}
