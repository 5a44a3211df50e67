package service

import (
	"context"

	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/money"
	"go-distributor-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DebtSummary struct {
	TotalDebt      money.Amount `json:"total_debt"`
	ShopsCount     int64        `json:"shops_count"`
	ShopsWithDebt  int64        `json:"shops_with_debt"`
	TotalSales     money.Amount `json:"total_sales"`
	TotalPayments  money.Amount `json:"total_payments"`
	CollectionRate float64      `json:"collection_rate"`
}

type DashboardService interface {
	GetDebtAging(ctx context.Context, actor Actor) (*DebtAging, error)
	GetPlatformDebtAging(ctx context.Context) (*DebtAging, error)
	GetDebtSummary(ctx context.Context, actor Actor) (*DebtSummary, error)
}

type dashboardService struct {
	repos   *repository.Repositories
	now     Clock
	schemes [2]BucketScheme
}

// NewDashboardService takes the distributor and platform bucket schemes in that order.
func NewDashboardService(repos *repository.Repositories, distributorScheme, platformScheme BucketScheme) DashboardService {
	return &dashboardService{
		repos:   repos,
		now:     SystemClock,
		schemes: [2]BucketScheme{distributorScheme, platformScheme},
	}
}

func (s *dashboardService) GetDebtAging(ctx context.Context, actor Actor) (*DebtAging, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	return s.aging(ctx, &actor.DistributorID, s.schemes[0])
}

func (s *dashboardService) GetPlatformDebtAging(ctx context.Context) (*DebtAging, error) {
	return s.aging(ctx, nil, s.schemes[1])
}

func (s *dashboardService) aging(ctx context.Context, distributorID *uuid.UUID, scheme BucketScheme) (*DebtAging, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.GetDebtAging")
	shops, err := s.repos.Shops.FindWithDebt(ctx, distributorID)
	if err != nil {
		return nil, finish(span, err)
	}
	unpaid, err := s.repos.Orders.UnpaidOrders(ctx, shopIDs(shops))
	if err != nil {
		return nil, finish(span, err)
	}
	span.End()
	return BuildAging(scheme, shops, unpaid, s.now()), nil
}

func (s *dashboardService) GetDebtSummary(ctx context.Context, actor Actor) (*DebtSummary, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "DashboardService.GetDebtSummary")

	shops, err := s.repos.Shops.FindWithDebt(ctx, &actor.DistributorID)
	if err != nil {
		return nil, finish(span, err)
	}
	total, withDebt, err := s.repos.Shops.CountByDistributor(ctx, actor.DistributorID)
	if err != nil {
		return nil, finish(span, err)
	}
	sales, err := s.repos.Orders.TotalSales(ctx, actor.DistributorID)
	if err != nil {
		return nil, finish(span, err)
	}
	paid, err := s.repos.Ledger.TotalPaymentsReceived(ctx, actor.DistributorID)
	if err != nil {
		return nil, finish(span, err)
	}
	span.End()

	debt := money.Amount(0)
	for _, sh := range shops {
		debt = debt.Add(sh.TotalDebt)
	}
	return &DebtSummary{
		TotalDebt:      debt,
		ShopsCount:     total,
		ShopsWithDebt:  withDebt,
		TotalSales:     sales,
		TotalPayments:  paid,
		CollectionRate: collectionRate(paid, sales),
	}, nil
}

// collectionRate is paid/sales as a percentage rounded to one decimal place.
func collectionRate(paid, sales money.Amount) float64 {
	if !sales.IsPositive() {
		return 0
	}
	rate, _ := paid.Decimal().Div(sales.Decimal()).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return rate
}

func shopIDs(shops []model.Shop) []uuid.UUID {
	ids := make([]uuid.UUID, len(shops))
	for i, sh := range shops {
		ids[i] = sh.ID
	}
	return ids
}
