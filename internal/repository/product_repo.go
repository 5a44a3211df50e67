package repository

import (
	"context"
	"sort"

	"go-distributor-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context, distributorID uuid.UUID) ([]model.Product, error)
	FindByID(ctx context.Context, distributorID, id uuid.UUID) (*model.Product, error)
	LockByIDs(tx *gorm.DB, distributorID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error)
	LockByID(tx *gorm.DB, distributorID, id uuid.UUID) (*model.Product, error)
	Save(tx *gorm.DB, product *model.Product) error
	UpdateStock(tx *gorm.DB, id uuid.UUID, newStock int, updatedBy string) error
	Delete(tx *gorm.DB, id uuid.UUID, deletedBy string) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) FindAll(ctx context.Context, distributorID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Where("distributor_id = ?", distributorID).Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, distributorID, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ? AND distributor_id = ?", id, distributorID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LockByIDs loads the distributor's products with row locks taken in ascending id
// order, so two orders over the same products cannot deadlock each other.
// Unknown or foreign ids are simply absent from the result.
func (r *productRepo) LockByIDs(tx *gorm.DB, distributorID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	var products []model.Product
	err := tx.Clauses(forUpdate).
		Where("id IN ? AND distributor_id = ?", sorted, distributorID).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]*model.Product, len(products))
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (r *productRepo) LockByID(tx *gorm.DB, distributorID, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := tx.Clauses(forUpdate).First(&product, "id = ? AND distributor_id = ?", id, distributorID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Save(tx *gorm.DB, product *model.Product) error {
	return tx.Save(product).Error
}

// UpdateStock must run inside the transaction that locked the row.
func (r *productRepo) UpdateStock(tx *gorm.DB, id uuid.UUID, newStock int, updatedBy string) error {
	return tx.Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":      newStock,
			"updated_by": updatedBy,
		}).Error
}

// Delete is a soft delete. Order items keep pointing at the row.
func (r *productRepo) Delete(tx *gorm.DB, id uuid.UUID, deletedBy string) error {
	if err := tx.Model(&model.Product{}).Where("id = ?", id).Update("updated_by", deletedBy).Error; err != nil {
		return err
	}
	return tx.Delete(&model.Product{}, "id = ?", id).Error
}
