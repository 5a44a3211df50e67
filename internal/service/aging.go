package service

import (
	"fmt"
	"time"

	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/money"
	"go-distributor-ledger/internal/repository"

	"github.com/google/uuid"
)

// BucketScheme splits debt age into [0,b1), [b1,b2), ..., [bn,∞) whole days.
type BucketScheme struct {
	Name       string
	Boundaries []int
}

var (
	DistributorAgingScheme = BucketScheme{Name: "distributor", Boundaries: []int{7, 30, 60}}
	PlatformAgingScheme    = BucketScheme{Name: "platform", Boundaries: []int{30, 60}}
)

type AgingShop struct {
	ShopID      uuid.UUID    `json:"shop_id"`
	ShopName    string       `json:"shop_name"`
	TotalDebt   money.Amount `json:"total_debt"`
	DaysOverdue int          `json:"days_overdue"`
	Since       time.Time    `json:"since"`
}

type AgingBucket struct {
	Label   string       `json:"label"`
	MinDays int          `json:"min_days"`
	MaxDays *int         `json:"max_days"`
	Count   int          `json:"count"`
	Total   money.Amount `json:"total"`
	Shops   []AgingShop  `json:"shops"`
}

type DebtAging struct {
	Scheme    string        `json:"scheme"`
	AsOf      time.Time     `json:"as_of"`
	Buckets   []AgingBucket `json:"buckets"`
	TotalDebt money.Amount  `json:"total_debt"`
}

func (s BucketScheme) buckets() []AgingBucket {
	out := make([]AgingBucket, 0, len(s.Boundaries)+1)
	lower := 0
	for _, b := range s.Boundaries {
		upper := b
		out = append(out, AgingBucket{Label: fmt.Sprintf("%d-%d", lower, upper), MinDays: lower, MaxDays: &upper, Shops: []AgingShop{}})
		lower = b
	}
	return append(out, AgingBucket{Label: fmt.Sprintf("%d+", lower), MinDays: lower, Shops: []AgingShop{}})
}

func (s BucketScheme) index(days int) int {
	for i, b := range s.Boundaries {
		if days < b {
			return i
		}
	}
	return len(s.Boundaries)
}

// BuildAging buckets every shop with positive debt by the age of its oldest unpaid
// order, or of the shop itself when no order is outstanding. It has no side effects
// and depends on now only through the argument.
func BuildAging(scheme BucketScheme, shops []model.Shop, unpaid []repository.UnpaidOrder, now time.Time) *DebtAging {
	oldest := make(map[uuid.UUID]time.Time, len(unpaid))
	for _, o := range unpaid {
		if t, ok := oldest[o.ShopID]; !ok || o.CreatedAt.Before(t) {
			oldest[o.ShopID] = o.CreatedAt
		}
	}

	res := &DebtAging{Scheme: scheme.Name, AsOf: now, Buckets: scheme.buckets()}
	for _, shop := range shops {
		if !shop.TotalDebt.IsPositive() {
			continue
		}
		since, ok := oldest[shop.ID]
		if !ok {
			since = shop.CreatedAt
		}
		days := ageInDays(since, now)
		b := &res.Buckets[scheme.index(days)]
		b.Count++
		b.Total = b.Total.Add(shop.TotalDebt)
		b.Shops = append(b.Shops, AgingShop{
			ShopID:      shop.ID,
			ShopName:    shop.Name,
			TotalDebt:   shop.TotalDebt,
			DaysOverdue: days,
			Since:       since,
		})
		res.TotalDebt = res.TotalDebt.Add(shop.TotalDebt)
	}
	return res
}

func ageInDays(since, now time.Time) int {
	if since.After(now) {
		return 0
	}
	return int(now.Sub(since) / (24 * time.Hour))
}
