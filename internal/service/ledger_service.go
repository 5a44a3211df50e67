package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-distributor-ledger/internal/apperr"
	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/money"
	"go-distributor-ledger/internal/notify"
	"go-distributor-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrPaymentExceedsDebt   = errors.New("payment exceeds total debt")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrReceiverNotAllowed   = errors.New("receiver must be the distributor or one of its employees")
	ErrNegativeDebt         = errors.New("debt amount cannot be negative")
)

type RecordPaymentRequest struct {
	ShopID     uuid.UUID        `json:"shop_id" validate:"uuid_required"`
	Amount     money.Amount     `json:"amount"`
	Method     model.LedgerKind `json:"payment_method"`
	ReceivedBy *uuid.UUID       `json:"received_by"`
	Notes      string           `json:"notes" validate:"max=1000"`
}

type DebtRequest struct {
	ShopID uuid.UUID    `json:"shop_id" validate:"uuid_required"`
	Amount money.Amount `json:"debt_amount"`
	Notes  string       `json:"notes" validate:"max=1000"`
}

// DebtChange is returned by every ledger mutation so clients can confirm without re-reading.
type DebtChange struct {
	Entry        *model.LedgerEntry  `json:"entry"`
	Shop         *model.Shop         `json:"shop"`
	User         *model.UserResponse `json:"user,omitempty"`
	PreviousDebt money.Amount        `json:"previous_debt"`
	NewDebt      money.Amount        `json:"new_debt"`
	Difference   money.Amount        `json:"difference"`
}

type DebtHistoryEntry struct {
	model.LedgerEntry
	Type          string       `json:"type"`
	DisplayAmount money.Amount `json:"display_amount"`
}

type ShopDebt struct {
	ShopID    uuid.UUID    `json:"shop_id"`
	ShopName  string       `json:"shop_name"`
	TotalDebt money.Amount `json:"total_debt"`
}

// Drift compares a shop's running balance with a replay of its ledger.
type Drift struct {
	ShopID     uuid.UUID    `json:"shop_id"`
	ShopName   string       `json:"shop_name"`
	TotalDebt  money.Amount `json:"total_debt"`
	LedgerDebt money.Amount `json:"ledger_debt"`
	Difference money.Amount `json:"difference"`
}

func (d Drift) Consistent() bool { return d.Difference.IsZero() }

type LedgerService interface {
	RecordPayment(ctx context.Context, actor Actor, req RecordPaymentRequest) (*DebtChange, error)
	AddManualDebt(ctx context.Context, actor Actor, req DebtRequest) (*DebtChange, error)
	SetExactDebt(ctx context.Context, actor Actor, req DebtRequest) (*DebtChange, error)

	GetShopDebt(ctx context.Context, actor Actor, shopID uuid.UUID) (*ShopDebt, error)
	GetDebtHistory(ctx context.Context, actor Actor, shopID uuid.UUID, limit int) ([]DebtHistoryEntry, error)
	GetPaymentHistory(ctx context.Context, actor Actor, shopID uuid.UUID, limit int) ([]model.LedgerEntry, error)
	GetPaymentStats(ctx context.Context, actor Actor, shopID uuid.UUID) (*repository.PaymentStats, error)
	ListPayments(ctx context.Context, actor Actor, limit int) ([]model.LedgerEntry, error)
	ListShopsWithDebt(ctx context.Context, actor Actor) ([]model.Shop, error)

	ReconcileShop(ctx context.Context, shopID uuid.UUID) (*Drift, error)
	ReconcileAll(ctx context.Context) ([]Drift, error)
}

type ledgerService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	notifier notify.Notifier
	log      *logrus.Logger
	now      Clock
}

func NewLedgerService(db *gorm.DB, repos *repository.Repositories, notifier notify.Notifier, log *logrus.Logger) LedgerService {
	return &ledgerService{
		db:       db,
		repos:    repos,
		notifier: notifier,
		log:      log,
		now:      SystemClock,
	}
}

// mutate locks the shop, builds the entry from the locked balance and appends it.
// build may reject the change by returning an error; nothing is written in that case.
func (s *ledgerService) mutate(ctx context.Context, actor Actor, shopID uuid.UUID,
	build func(tx *gorm.DB, distributor *model.User, shop *model.Shop) (*model.LedgerEntry, error),
) (*DebtChange, error) {
	var change DebtChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		distributor, acting, err := resolveActing(ctx, tx, s.repos, actor)
		if err != nil {
			return err
		}
		shop, err := s.repos.Shops.LockForDistributor(tx, distributor.ID, shopID)
		if err != nil {
			return notFound(err, ErrShopNotFound, "Shop not found or does not belong to you")
		}

		entry, err := build(tx, distributor, shop)
		if err != nil {
			return err
		}
		entry.DistributorID = distributor.ID
		entry.CreatedAt = s.now()
		entry.CreatedBy = actor.audit()
		if _, err := appendLedger(tx, s.repos, shop, entry); err != nil {
			return err
		}

		resp := acting.ToResponse()
		change = DebtChange{
			Entry:        entry,
			Shop:         shop,
			User:         &resp,
			PreviousDebt: entry.PreviousDebt,
			NewDebt:      entry.NewDebt,
			Difference:   entry.DebtEffect(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// RecordPayment books money received from a shop. Overpaying is rejected.
func (s *ledgerService) RecordPayment(ctx context.Context, actor Actor, req RecordPaymentRequest) (*DebtChange, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.RecordPayment")
	if err := requireDistributor(actor); err != nil {
		return nil, finish(span, err)
	}
	if err := validate(&req); err != nil {
		return nil, finish(span, err)
	}
	if !req.Amount.IsPositive() {
		return nil, finish(span, apperr.Validation(ErrInvalidAmount, "Payment amount must be greater than 0"))
	}
	if req.Method == "" {
		req.Method = model.KindCash
	}
	if !req.Method.IsPaymentMethod() {
		return nil, finish(span, apperr.Validation(ErrInvalidPaymentMethod, "payment_method must be one of cash, card, transfer"))
	}

	change, err := s.mutate(ctx, actor, req.ShopID, func(tx *gorm.DB, distributor *model.User, shop *model.Shop) (*model.LedgerEntry, error) {
		receiver, err := s.resolveReceiver(ctx, tx, actor, distributor, req.ReceivedBy)
		if err != nil {
			return nil, err
		}
		if req.Amount > shop.TotalDebt {
			return nil, apperr.Business(ErrPaymentExceedsDebt,
				"Payment amount (%s) exceeds total debt (%s)", req.Amount, shop.TotalDebt)
		}
		return &model.LedgerEntry{
			Amount:     req.Amount,
			Kind:       req.Method,
			ReceivedBy: &receiver,
			Notes:      strings.TrimSpace(req.Notes),
		}, nil
	})
	if err = finish(span, err); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"shop_id":  change.Shop.ID,
		"amount":   req.Amount.String(),
		"new_debt": change.NewDebt.String(),
	}).Info("payment recorded")

	s.notify(notify.PaymentReceived, change, &notify.PaymentPayload{
		EntryID:      change.Entry.ID,
		ShopName:     change.Shop.Name,
		Actor:        notify.Actor{Name: change.User.Name, Phone: change.User.Phone},
		Amount:       change.Entry.Amount,
		Method:       string(change.Entry.Kind),
		PreviousDebt: change.PreviousDebt,
		NewDebt:      change.NewDebt,
		Notes:        change.Entry.Notes,
	})
	return change, nil
}

// resolveReceiver defaults to the caller and only accepts the distributor or its employees.
func (s *ledgerService) resolveReceiver(ctx context.Context, tx *gorm.DB, actor Actor, distributor *model.User, requested *uuid.UUID) (uuid.UUID, error) {
	if requested == nil || *requested == uuid.Nil {
		return actor.UserID, nil
	}
	if *requested == distributor.ID {
		return distributor.ID, nil
	}
	u, err := s.repos.Users.FindByID(ctx, tx, *requested)
	if err != nil {
		return uuid.Nil, notFound(err, ErrReceiverNotAllowed, "Receiving user not found")
	}
	if u.Role != model.RoleEmployee || u.ActingDistributorID() != distributor.ID {
		return uuid.Nil, apperr.Validation(ErrReceiverNotAllowed, "received_by must be the distributor or one of its employees")
	}
	return u.ID, nil
}

// AddManualDebt backfills debt that predates the system. There is no upper bound.
func (s *ledgerService) AddManualDebt(ctx context.Context, actor Actor, req DebtRequest) (*DebtChange, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.AddManualDebt")
	if err := requireDistributor(actor); err != nil {
		return nil, finish(span, err)
	}
	if err := validate(&req); err != nil {
		return nil, finish(span, err)
	}
	if !req.Amount.IsPositive() {
		return nil, finish(span, apperr.Validation(ErrInvalidAmount, "Debt amount must be greater than 0"))
	}

	change, err := s.mutate(ctx, actor, req.ShopID, func(_ *gorm.DB, distributor *model.User, _ *model.Shop) (*model.LedgerEntry, error) {
		receiver := distributor.ID
		return &model.LedgerEntry{
			Amount:     req.Amount.Neg(),
			Kind:       model.KindManualDebt,
			ReceivedBy: &receiver,
			Notes:      strings.TrimSpace(req.Notes),
		}, nil
	})
	if err = finish(span, err); err != nil {
		return nil, err
	}

	s.notify(notify.ManualDebtAdded, change, &notify.ManualDebtPayload{
		EntryID:      change.Entry.ID,
		ShopName:     change.Shop.Name,
		Actor:        notify.Actor{Name: change.User.Name, Phone: change.User.Phone},
		Added:        req.Amount,
		PreviousDebt: change.PreviousDebt,
		NewDebt:      change.NewDebt,
		Notes:        change.Entry.Notes,
	})
	return change, nil
}

// SetExactDebt corrects the balance to a target and records the delta as an adjustment.
// An entry is written even when the balance already matches.
func (s *ledgerService) SetExactDebt(ctx context.Context, actor Actor, req DebtRequest) (*DebtChange, error) {
	ctx, span := tracer.Start(ctx, "LedgerService.SetExactDebt")
	if err := requireDistributor(actor); err != nil {
		return nil, finish(span, err)
	}
	if err := validate(&req); err != nil {
		return nil, finish(span, err)
	}
	if req.Amount.IsNegative() {
		return nil, finish(span, apperr.Validation(ErrNegativeDebt, "Debt amount cannot be negative"))
	}

	change, err := s.mutate(ctx, actor, req.ShopID, func(_ *gorm.DB, _ *model.User, shop *model.Shop) (*model.LedgerEntry, error) {
		difference := req.Amount.Sub(shop.TotalDebt)
		notes := fmt.Sprintf("Debt adjusted: %s -> %s", shop.TotalDebt, req.Amount)
		if n := strings.TrimSpace(req.Notes); n != "" {
			notes += ". " + n
		}
		return &model.LedgerEntry{
			Amount: difference.Neg(),
			Kind:   model.KindDebtAdjustment,
			Notes:  notes,
		}, nil
	})
	if err = finish(span, err); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"shop_id":       change.Shop.ID,
		"previous_debt": change.PreviousDebt.String(),
		"new_debt":      change.NewDebt.String(),
	}).Info("debt adjusted")
	return change, nil
}

func (s *ledgerService) notify(kind notify.Kind, change *DebtChange, payload any) {
	s.notifier.Notify(notify.Event{
		ID:            uuid.New(),
		Kind:          kind,
		ShopID:        change.Shop.ID,
		DistributorID: change.Shop.DistributorID,
		ChannelID:     change.Shop.NotificationChannel(),
		OccurredAt:    change.Entry.CreatedAt,
		Payload:       payload,
	})
}

func (s *ledgerService) ownedShop(ctx context.Context, actor Actor, shopID uuid.UUID) (*model.Shop, error) {
	if actor.Role == model.RoleAdmin {
		shop, err := s.repos.Shops.FindByID(ctx, nil, shopID)
		if err != nil {
			return nil, notFound(err, ErrShopNotFound, "Shop not found")
		}
		return shop, nil
	}
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	shop, err := s.repos.Shops.FindForDistributor(ctx, actor.DistributorID, shopID)
	if err != nil {
		return nil, notFound(err, ErrShopNotFound, "Shop not found or does not belong to you")
	}
	return shop, nil
}

func (s *ledgerService) GetShopDebt(ctx context.Context, actor Actor, shopID uuid.UUID) (*ShopDebt, error) {
	shop, err := s.ownedShop(ctx, actor, shopID)
	if err != nil {
		return nil, err
	}
	return &ShopDebt{ShopID: shop.ID, ShopName: shop.Name, TotalDebt: shop.TotalDebt}, nil
}

func (s *ledgerService) GetDebtHistory(ctx context.Context, actor Actor, shopID uuid.UUID, limit int) ([]DebtHistoryEntry, error) {
	shop, err := s.ownedShop(ctx, actor, shopID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repos.Ledger.List(ctx, repository.LedgerFilter{ShopID: &shop.ID, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]DebtHistoryEntry, len(entries))
	for i, e := range entries {
		display := e.Amount
		if display.IsNegative() {
			display = display.Neg()
		}
		out[i] = DebtHistoryEntry{LedgerEntry: e, Type: e.EntryType(), DisplayAmount: display}
	}
	return out, nil
}

func (s *ledgerService) GetPaymentHistory(ctx context.Context, actor Actor, shopID uuid.UUID, limit int) ([]model.LedgerEntry, error) {
	shop, err := s.ownedShop(ctx, actor, shopID)
	if err != nil {
		return nil, err
	}
	return s.repos.Ledger.List(ctx, repository.LedgerFilter{ShopID: &shop.ID, PaymentsOnly: true, Limit: limit})
}

func (s *ledgerService) GetPaymentStats(ctx context.Context, actor Actor, shopID uuid.UUID) (*repository.PaymentStats, error) {
	shop, err := s.ownedShop(ctx, actor, shopID)
	if err != nil {
		return nil, err
	}
	return s.repos.Ledger.Stats(ctx, shop.ID)
}

// ListPayments returns the caller's ledger, or every distributor's for the platform admin.
func (s *ledgerService) ListPayments(ctx context.Context, actor Actor, limit int) ([]model.LedgerEntry, error) {
	f := repository.LedgerFilter{Limit: limit}
	if actor.Role != model.RoleAdmin {
		if err := requireDistributor(actor); err != nil {
			return nil, err
		}
		f.DistributorID = &actor.DistributorID
	}
	return s.repos.Ledger.List(ctx, f)
}

func (s *ledgerService) ListShopsWithDebt(ctx context.Context, actor Actor) ([]model.Shop, error) {
	if actor.Role == model.RoleAdmin {
		return s.repos.Shops.FindWithDebt(ctx, nil)
	}
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	return s.repos.Shops.FindWithDebt(ctx, &actor.DistributorID)
}

// ReconcileShop replays the shop's ledger and compares it to the running balance.
// It only reads.
func (s *ledgerService) ReconcileShop(ctx context.Context, shopID uuid.UUID) (*Drift, error) {
	shop, err := s.repos.Shops.FindByID(ctx, nil, shopID)
	if err != nil {
		return nil, notFound(err, ErrShopNotFound, "Shop not found")
	}
	return s.reconcile(ctx, shop)
}

func (s *ledgerService) ReconcileAll(ctx context.Context) ([]Drift, error) {
	shops, err := s.repos.Shops.FindEvery(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Drift, 0, len(shops))
	for i := range shops {
		d, err := s.reconcile(ctx, &shops[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func (s *ledgerService) reconcile(ctx context.Context, shop *model.Shop) (*Drift, error) {
	sum, err := s.repos.Ledger.SumForShop(ctx, nil, shop.ID)
	if err != nil {
		return nil, err
	}
	ledgerDebt := sum.Neg()
	return &Drift{
		ShopID:     shop.ID,
		ShopName:   shop.Name,
		TotalDebt:  shop.TotalDebt,
		LedgerDebt: ledgerDebt,
		Difference: shop.TotalDebt.Sub(ledgerDebt),
	}, nil
}
