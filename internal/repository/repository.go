package repository

import (
	"context"

	"go-distributor-ledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Shop{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderTransaction{},
		&model.LedgerEntry{},
		&model.NotificationOutbox{},
	)
}

// forUpdate is SELECT ... FOR UPDATE. Dialects without row locks drop the clause.
var forUpdate = clause.Locking{Strength: "UPDATE"}

// conn prefers the caller's transaction over the pooled handle.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}

// Repositories bundles every repository so services can be wired from one value.
type Repositories struct {
	Users        UserRepository
	Products     ProductRepository
	Shops        ShopRepository
	Orders       OrderRepository
	Ledger       LedgerRepository
	Transactions OrderTransactionRepository
	Outbox       OutboxRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:        NewUserRepo(db),
		Products:     NewProductRepo(db),
		Shops:        NewShopRepo(db),
		Orders:       NewOrderRepo(db),
		Ledger:       NewLedgerRepo(db),
		Transactions: NewOrderTransactionRepo(db),
		Outbox:       NewOutboxRepo(db),
	}
}
