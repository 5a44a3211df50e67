package repository

import (
	"context"

	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/money"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShopRepository interface {
	Create(ctx context.Context, shop *model.Shop) error
	UpdateContact(ctx context.Context, shop *model.Shop) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Shop, error)
	FindForDistributor(ctx context.Context, distributorID, id uuid.UUID) (*model.Shop, error)
	FindAll(ctx context.Context, distributorID uuid.UUID) ([]model.Shop, error)
	FindEvery(ctx context.Context) ([]model.Shop, error)
	FindWithDebt(ctx context.Context, distributorID *uuid.UUID) ([]model.Shop, error)
	CountByDistributor(ctx context.Context, distributorID uuid.UUID) (total int64, withDebt int64, err error)
	LockForDistributor(tx *gorm.DB, distributorID, id uuid.UUID) (*model.Shop, error)
	SetTotalDebt(tx *gorm.DB, id uuid.UUID, debt money.Amount) error
	FindByChatID(ctx context.Context, chatID string) (*model.Shop, error)
	LinkChat(ctx context.Context, id uuid.UUID, chatID string) error
}

type shopRepo struct {
	db *gorm.DB
}

func NewShopRepo(db *gorm.DB) ShopRepository {
	return &shopRepo{db}
}

func (r *shopRepo) Create(ctx context.Context, shop *model.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

// UpdateContact writes the descriptive columns only. total_debt and chat_id are never
// touched from here.
func (r *shopRepo) UpdateContact(ctx context.Context, shop *model.Shop) error {
	return r.db.WithContext(ctx).Model(shop).
		Select("name", "owner_name", "phone", "address", "latitude", "longitude", "updated_by").
		Updates(shop).Error
}

func (r *shopRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Shop, error) {
	var shop model.Shop
	if err := conn(ctx, r.db, tx).First(&shop, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) FindForDistributor(ctx context.Context, distributorID, id uuid.UUID) (*model.Shop, error) {
	var shop model.Shop
	if err := r.db.WithContext(ctx).First(&shop, "id = ? AND distributor_id = ?", id, distributorID).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) FindAll(ctx context.Context, distributorID uuid.UUID) ([]model.Shop, error) {
	var shops []model.Shop
	err := r.db.WithContext(ctx).Where("distributor_id = ?", distributorID).Order("name ASC").Find(&shops).Error
	return shops, err
}

// FindEvery lists all shops on the platform, for reconciliation.
func (r *shopRepo) FindEvery(ctx context.Context) ([]model.Shop, error) {
	var shops []model.Shop
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&shops).Error
	return shops, err
}

// FindWithDebt lists shops owing money, largest debt first. A nil distributor means platform-wide.
func (r *shopRepo) FindWithDebt(ctx context.Context, distributorID *uuid.UUID) ([]model.Shop, error) {
	q := r.db.WithContext(ctx).Where("total_debt > 0")
	if distributorID != nil {
		q = q.Where("distributor_id = ?", *distributorID)
	}
	var shops []model.Shop
	err := q.Order("total_debt DESC").Order("name ASC").Find(&shops).Error
	return shops, err
}

func (r *shopRepo) CountByDistributor(ctx context.Context, distributorID uuid.UUID) (int64, int64, error) {
	var total, withDebt int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Shop{}).Where("distributor_id = ?", distributorID).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := db.Model(&model.Shop{}).Where("distributor_id = ? AND total_debt > 0", distributorID).Count(&withDebt).Error; err != nil {
		return 0, 0, err
	}
	return total, withDebt, nil
}

// LockForDistributor re-reads the shop under a row lock. A shop owned by another
// distributor is reported as not found.
func (r *shopRepo) LockForDistributor(tx *gorm.DB, distributorID, id uuid.UUID) (*model.Shop, error) {
	var shop model.Shop
	if err := tx.Clauses(forUpdate).First(&shop, "id = ? AND distributor_id = ?", id, distributorID).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) SetTotalDebt(tx *gorm.DB, id uuid.UUID, debt money.Amount) error {
	return tx.Model(&model.Shop{}).Where("id = ?", id).Update("total_debt", debt).Error
}

func (r *shopRepo) FindByChatID(ctx context.Context, chatID string) (*model.Shop, error) {
	var shop model.Shop
	if err := r.db.WithContext(ctx).First(&shop, "chat_id = ?", chatID).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) LinkChat(ctx context.Context, id uuid.UUID, chatID string) error {
	return r.db.WithContext(ctx).Model(&model.Shop{}).Where("id = ?", id).Update("chat_id", chatID).Error
}
