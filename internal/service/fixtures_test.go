package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/money"
	"go-distributor-ledger/internal/notify"
	"go-distributor-ledger/internal/repository"
	"go-distributor-ledger/internal/testutil"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recorder) last() notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

// stepClock returns a clock that advances one second per call so ordering by
// created_at is deterministic.
func stepClock(start time.Time) Clock {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

var testStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	repos *repository.Repositories
	notes *recorder

	orders    *orderService
	ledger    *ledgerService
	dashboard *dashboardService
	catalog   *catalogService

	distributor *model.User
	actor       Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	repos := repository.NewRepositories(db)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	notes := &recorder{}
	clock := stepClock(testStart)

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		repos: repos,
		notes: notes,
	}
	f.orders = NewOrderService(db, repos, notes, log).(*orderService)
	f.orders.now = clock
	f.ledger = NewLedgerService(db, repos, notes, log).(*ledgerService)
	f.ledger.now = clock
	f.dashboard = NewDashboardService(repos, DistributorAgingScheme, PlatformAgingScheme).(*dashboardService)
	f.catalog = NewCatalogService(db, repos, nil, "ledger_bot", log).(*catalogService)

	f.distributor = f.user(model.RoleDistributor, nil)
	f.actor = Actor{UserID: f.distributor.ID, DistributorID: f.distributor.ID, Role: model.RoleDistributor}
	return f
}

func (f *fixture) user(role model.Role, distributorID *uuid.UUID) *model.User {
	f.t.Helper()
	u := &model.User{
		Name:          string(role) + " " + uuid.NewString()[:4],
		Phone:         "+99890" + uuid.NewString()[:7],
		Role:          role,
		DistributorID: distributorID,
		IsActive:      true,
	}
	require.NoError(f.t, u.SetPassword("secret123"))
	require.NoError(f.t, f.repos.Users.Create(f.ctx, u))
	return u
}

func (f *fixture) shop(distributorID uuid.UUID, name string) *model.Shop {
	f.t.Helper()
	chat := "4242"
	s := &model.Shop{DistributorID: distributorID, Name: name, ChatID: &chat}
	require.NoError(f.t, f.repos.Shops.Create(f.ctx, s))
	return s
}

func (f *fixture) product(name, price string, stock int) *model.Product {
	f.t.Helper()
	p := &model.Product{
		DistributorID: f.distributor.ID,
		Name:          name,
		Price:         money.MustParse(price),
		Stock:         stock,
	}
	require.NoError(f.t, f.repos.Products.Create(f.ctx, p))
	return p
}

func (f *fixture) debt(shopID uuid.UUID) money.Amount {
	f.t.Helper()
	s, err := f.repos.Shops.FindByID(f.ctx, nil, shopID)
	require.NoError(f.t, err)
	return s.TotalDebt
}

func (f *fixture) stock(productID uuid.UUID) int {
	f.t.Helper()
	p, err := f.repos.Products.FindByID(f.ctx, f.distributor.ID, productID)
	require.NoError(f.t, err)
	return p.Stock
}

// requireConsistent checks the running balance against a ledger replay.
func (f *fixture) requireConsistent(shopID uuid.UUID) {
	f.t.Helper()
	d, err := f.ledger.ReconcileShop(f.ctx, shopID)
	require.NoError(f.t, err)
	require.True(f.t, d.Consistent(), "balance %s, ledger %s", d.TotalDebt, d.LedgerDebt)
}

func amt(s string) money.Amount { return money.MustParse(s) }
