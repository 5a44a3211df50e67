package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go-distributor-ledger/internal/apperr"
	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/money"
	"go-distributor-ledger/internal/notify"
	"go-distributor-ledger/internal/repository"
	"go-distributor-ledger/internal/ws"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrNegativePrice = errors.New("price cannot be negative")

type ProductRequest struct {
	Name        string       `json:"name" validate:"required,max=255"`
	Description string       `json:"description"`
	Unit        string       `json:"unit" validate:"max=20"`
	Price       money.Amount `json:"price"`
	Stock       int          `json:"stock" validate:"gte=0"`
}

type ShopRequest struct {
	Name      string   `json:"name" validate:"required,max=255"`
	OwnerName string   `json:"owner_name" validate:"max=255"`
	Phone     string   `json:"phone" validate:"max=20"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// CatalogService manages products and shops. It never writes Shop.TotalDebt.
type CatalogService interface {
	CreateProduct(ctx context.Context, actor Actor, req ProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, actor Actor, id uuid.UUID, req ProductRequest) (*model.Product, error)
	ListProducts(ctx context.Context, actor Actor) ([]model.Product, error)
	DeleteProduct(ctx context.Context, actor Actor, id uuid.UUID) error

	CreateShop(ctx context.Context, actor Actor, req ShopRequest) (*model.Shop, error)
	UpdateShop(ctx context.Context, actor Actor, id uuid.UUID, req ShopRequest) (*model.Shop, error)
	GetShop(ctx context.Context, actor Actor, id uuid.UUID) (*model.Shop, error)
	ListShops(ctx context.Context, actor Actor) ([]model.Shop, error)
}

type catalogService struct {
	db          *gorm.DB
	repos       *repository.Repositories
	hub         *ws.Hub
	botUsername string
	log         *logrus.Logger
}

func NewCatalogService(db *gorm.DB, repos *repository.Repositories, hub *ws.Hub, botUsername string, log *logrus.Logger) CatalogService {
	return &catalogService{
		db:          db,
		repos:       repos,
		hub:         hub,
		botUsername: botUsername,
		log:         log,
	}
}

func (s *catalogService) CreateProduct(ctx context.Context, actor Actor, req ProductRequest) (*model.Product, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	if err := validate(&req); err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, apperr.Validation(ErrNegativePrice, "Price cannot be negative")
	}

	product := &model.Product{
		DistributorID: actor.DistributorID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Unit:          req.Unit,
		Price:         req.Price,
		Stock:         req.Stock,
	}
	product.CreatedBy = actor.audit()
	product.UpdatedBy = actor.audit()
	if err := s.repos.Products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.broadcastStock(actor.DistributorID, "product_created", product, product.Stock)
	return product, nil
}

// UpdateProduct locks the row so a concurrent order sees either the old or the new
// stock, never a mix. Price changes do not touch existing order items.
func (s *catalogService) UpdateProduct(ctx context.Context, actor Actor, id uuid.UUID, req ProductRequest) (*model.Product, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	if err := validate(&req); err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, apperr.Validation(ErrNegativePrice, "Price cannot be negative")
	}

	var updated *model.Product
	var oldStock int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repos.Products.LockByID(tx, actor.DistributorID, id)
		if err != nil {
			return notFound(err, ErrProductNotFound, "Product not found")
		}
		oldStock = existing.Stock

		existing.Name = strings.TrimSpace(req.Name)
		existing.Description = req.Description
		existing.Unit = req.Unit
		existing.Price = req.Price
		existing.Stock = req.Stock
		existing.UpdatedBy = actor.audit()
		if err := s.repos.Products.Save(tx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err)
	}

	s.broadcastStock(actor.DistributorID, "product_updated", updated, oldStock)
	return updated, nil
}

func (s *catalogService) ListProducts(ctx context.Context, actor Actor) ([]model.Product, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	return s.repos.Products.FindAll(ctx, actor.DistributorID)
}

// DeleteProduct hides the product from the catalog and from new orders. Past
// orders still show it with the price they were placed at.
func (s *catalogService) DeleteProduct(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireDistributor(actor); err != nil {
		return err
	}
	var deleted *model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repos.Products.LockByID(tx, actor.DistributorID, id)
		if err != nil {
			return notFound(err, ErrProductNotFound, "Product not found")
		}
		if err := s.repos.Products.Delete(tx, existing.ID, actor.audit()); err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return apperr.FromDB(err)
	}

	s.broadcastStock(actor.DistributorID, "product_deleted", deleted, deleted.Stock)
	return nil
}

// broadcastStock pushes a stock_update frame to the distributor's open dashboards.
func (s *catalogService) broadcastStock(distributorID uuid.UUID, action string, p *model.Product, oldStock int) {
	if s.hub == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{
		"type":   "stock_update",
		"action": action,
		"product": map[string]interface{}{
			"id":        p.ID,
			"name":      p.Name,
			"old_stock": oldStock,
			"new_stock": p.Stock,
			"price":     p.Price,
		},
	})
	if err != nil {
		s.log.WithError(err).Warn("stock_update encode failed")
		return
	}
	s.hub.SendToUsers([]string{distributorID.String()}, msg)
}

// CreateShop always starts the shop at zero debt. Existing balances are brought in
// with AddManualDebt so they show up in the ledger.
func (s *catalogService) CreateShop(ctx context.Context, actor Actor, req ShopRequest) (*model.Shop, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	if err := validate(&req); err != nil {
		return nil, err
	}

	shop := &model.Shop{
		DistributorID: actor.DistributorID,
		Name:          strings.TrimSpace(req.Name),
		OwnerName:     req.OwnerName,
		Phone:         req.Phone,
		Address:       req.Address,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
	}
	shop.ID = uuid.New()
	shop.CreatedBy = actor.audit()
	shop.UpdatedBy = actor.audit()
	shop.TelegramLink = notify.DeepLink(s.botUsername, shop.ID)

	if err := s.repos.Shops.Create(ctx, shop); err != nil {
		return nil, err
	}
	return shop, nil
}

func (s *catalogService) UpdateShop(ctx context.Context, actor Actor, id uuid.UUID, req ShopRequest) (*model.Shop, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	shop, err := s.GetShop(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	shop.Name = strings.TrimSpace(req.Name)
	shop.OwnerName = req.OwnerName
	shop.Phone = req.Phone
	shop.Address = req.Address
	shop.Latitude = req.Latitude
	shop.Longitude = req.Longitude
	shop.UpdatedBy = actor.audit()
	if err := s.repos.Shops.UpdateContact(ctx, shop); err != nil {
		return nil, err
	}
	return s.repos.Shops.FindByID(ctx, nil, shop.ID)
}

func (s *catalogService) GetShop(ctx context.Context, actor Actor, id uuid.UUID) (*model.Shop, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	shop, err := s.repos.Shops.FindForDistributor(ctx, actor.DistributorID, id)
	if err != nil {
		return nil, notFound(err, ErrShopNotFound, "Shop not found or does not belong to you")
	}
	return shop, nil
}

func (s *catalogService) ListShops(ctx context.Context, actor Actor) ([]model.Shop, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	return s.repos.Shops.FindAll(ctx, actor.DistributorID)
}
