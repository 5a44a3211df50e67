package service

import (
	"context"
	"errors"
	"sort"

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
	ErrEmptyOrder              = errors.New("order must contain at least one item")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidAmount           = errors.New("amount must be greater than 0")
	ErrPaymentExceedsRemaining = errors.New("payment cannot exceed remaining amount")
	ErrInvalidPaymentType      = errors.New("invalid payment type")
	ErrAmountOutOfRange        = errors.New("amount out of range")
)

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity"`
}

type PlaceOrderRequest struct {
	ShopID uuid.UUID          `json:"shop_id" validate:"uuid_required"`
	Items  []OrderItemRequest `json:"items"`
}

type DirectPaymentRequest struct {
	Amount      money.Amount      `json:"amount"`
	PaymentType model.PaymentType `json:"payment_type"`
	Comment     string            `json:"comment"`
}

type DirectPaymentResult struct {
	Order       *model.Order            `json:"order"`
	Transaction *model.OrderTransaction `json:"transaction"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, actor Actor, req PlaceOrderRequest) (*model.Order, error)
	MarkDelivered(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error)
	DirectOrderPayment(ctx context.Context, actor Actor, orderID uuid.UUID, req DirectPaymentRequest) (*DirectPaymentResult, error)
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, actor Actor, f repository.OrderFilter) ([]model.Order, error)
	ListOrderPayments(ctx context.Context, actor Actor, orderID uuid.UUID) ([]model.OrderTransaction, error)
}

type orderService struct {
	db       *gorm.DB
	repos    *repository.Repositories
	notifier notify.Notifier
	log      *logrus.Logger
	now      Clock
}

func NewOrderService(db *gorm.DB, repos *repository.Repositories, notifier notify.Notifier, log *logrus.Logger) OrderService {
	return &orderService{
		db:       db,
		repos:    repos,
		notifier: notifier,
		log:      log,
		now:      SystemClock,
	}
}

// PlaceOrder creates the order, decrements stock and books the order total onto the
// shop's debt in one transaction. The notification goes out after commit.
func (s *orderService) PlaceOrder(ctx context.Context, actor Actor, req PlaceOrderRequest) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder")
	order, err := s.placeOrder(ctx, actor, req)
	if err = finish(span, err); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"shop_id":  order.ShopID,
		"total":    order.TotalPrice.String(),
	}).Info("order placed")
	s.notifyOrder(notify.OrderCreated, order)
	return order, nil
}

func (s *orderService) placeOrder(ctx context.Context, actor Actor, req PlaceOrderRequest) (*model.Order, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, apperr.Validation(ErrEmptyOrder, "Order must contain at least one item")
	}
	if req.ShopID == uuid.Nil {
		return nil, apperr.Validation(ErrShopNotFound, "shop_id is required")
	}
	ids := make([]uuid.UUID, 0, len(req.Items))
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity < 1 {
			return nil, apperr.Validation(ErrInvalidQuantity, "Quantity must be at least 1")
		}
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}

	now := s.now()
	var order *model.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		distributor, acting, err := resolveActing(ctx, tx, s.repos, actor)
		if err != nil {
			return err
		}

		products, err := s.repos.Products.LockByIDs(tx, distributor.ID, ids)
		if err != nil {
			return err
		}

		// stock tracks what is left per product as line items consume it, so the
		// same product listed twice is checked against the combined quantity.
		stock := make(map[uuid.UUID]int, len(products))
		items := make([]model.OrderItem, 0, len(req.Items))
		var total money.Amount
		for _, it := range req.Items {
			p, ok := products[it.ProductID]
			if !ok {
				return apperr.Validation(ErrProductNotFound, "Product not found: %s", it.ProductID)
			}
			available, counted := stock[p.ID]
			if !counted {
				available = p.Stock
			}
			if it.Quantity > available {
				return apperr.Business(ErrInsufficientStock,
					"Not enough stock for product %s (%s). Available: %d, requested: %d", p.Name, p.ID, available, it.Quantity)
			}
			stock[p.ID] = available - it.Quantity

			subtotal, ok := p.Price.MulIntWithin(it.Quantity)
			if !ok {
				return apperr.Validation(ErrAmountOutOfRange, "Line total for product %s is too large", p.ID)
			}
			total = total.Add(subtotal)
			if !total.InRange() {
				return apperr.Validation(ErrAmountOutOfRange, "Order total is too large")
			}
			items = append(items, model.OrderItem{
				AppendOnly:  model.AppendOnly{CreatedAt: now, CreatedBy: actor.audit()},
				ProductID:   p.ID,
				Quantity:    it.Quantity,
				PriceAtTime: p.Price,
				Subtotal:    subtotal,
			})
		}

		for _, id := range sortedIDs(stock) {
			if err := s.repos.Products.UpdateStock(tx, id, stock[id], actor.audit()); err != nil {
				return err
			}
			products[id].Stock = stock[id]
		}

		shop, err := s.repos.Shops.LockForDistributor(tx, distributor.ID, req.ShopID)
		if err != nil {
			return notFound(err, ErrShopNotFound, "Shop not found or does not belong to you")
		}

		order = &model.Order{
			ShopID:          shop.ID,
			DistributorID:   distributor.ID,
			UserID:          acting.ID,
			TotalPrice:      total,
			RemainingAmount: total,
			Status:          model.OrderPending,
			Items:           items,
		}
		order.CreatedAt, order.UpdatedAt = now, now
		order.CreatedBy, order.UpdatedBy = actor.audit(), actor.audit()
		if err := s.repos.Orders.Create(tx, order); err != nil {
			return err
		}

		orderID := order.ID
		if _, err := appendLedger(tx, s.repos, shop, &model.LedgerEntry{
			AppendOnly:    model.AppendOnly{CreatedAt: now, CreatedBy: actor.audit()},
			DistributorID: distributor.ID,
			Amount:        total.Neg(),
			Kind:          model.KindOrder,
			OrderID:       &orderID,
			Notes:         "order " + orderID.String(),
		}); err != nil {
			return err
		}

		for i := range order.Items {
			order.Items[i].Product = products[order.Items[i].ProductID]
		}
		order.Shop = shop
		order.User = acting
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// appendLedger is the single place shop debt moves: it snapshots the balance on the
// entry, appends the entry and writes the new balance. shop must be locked by tx.
func appendLedger(tx *gorm.DB, repos *repository.Repositories, shop *model.Shop, entry *model.LedgerEntry) (*model.LedgerEntry, error) {
	entry.ShopID = shop.ID
	entry.PreviousDebt = shop.TotalDebt
	entry.NewDebt = shop.TotalDebt.Add(entry.DebtEffect())
	if !entry.NewDebt.InRange() {
		return nil, apperr.Business(ErrAmountOutOfRange,
			"Resulting debt for shop %s would exceed %s", shop.ID, money.Max)
	}
	if err := repos.Ledger.Append(tx, entry); err != nil {
		return nil, err
	}
	if err := repos.Shops.SetTotalDebt(tx, shop.ID, entry.NewDebt); err != nil {
		return nil, err
	}
	shop.TotalDebt = entry.NewDebt
	return entry, nil
}

func sortedIDs(m map[uuid.UUID]int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// MarkDelivered moves a pending order to delivered. Delivering an already delivered
// order returns it unchanged and sends nothing.
func (s *orderService) MarkDelivered(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.MarkDelivered")
	if err := requireDistributor(actor); err != nil {
		return nil, finish(span, err)
	}

	transitioned := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repos.Orders.LockByID(tx, actor.DistributorID, orderID)
		if err != nil {
			return notFound(err, ErrOrderNotFound, "Order not found")
		}
		if order.Status == model.OrderDelivered {
			return nil
		}
		transitioned = true
		return s.repos.Orders.MarkDelivered(tx, order.ID, s.now(), actor.audit())
	})
	if err = finish(span, err); err != nil {
		return nil, err
	}

	order, err := s.repos.Orders.FindByID(ctx, nil, actor.DistributorID, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound, "Order not found")
	}
	if transitioned {
		s.notifyOrder(notify.OrderDelivered, order)
	}
	return order, nil
}

// DirectOrderPayment pays down one order's remaining amount. It does not touch the
// shop's running debt.
func (s *orderService) DirectOrderPayment(ctx context.Context, actor Actor, orderID uuid.UUID, req DirectPaymentRequest) (*DirectPaymentResult, error) {
	ctx, span := tracer.Start(ctx, "OrderService.DirectOrderPayment")
	if err := requireDistributor(actor); err != nil {
		return nil, finish(span, err)
	}
	if !req.Amount.IsPositive() {
		return nil, finish(span, apperr.Validation(ErrInvalidAmount, "Amount must be greater than 0"))
	}
	if req.PaymentType == "" {
		req.PaymentType = model.PaymentCash
	}
	if req.PaymentType != model.PaymentCash && req.PaymentType != model.PaymentCard {
		return nil, finish(span, apperr.Validation(ErrInvalidPaymentType, "payment_type must be cash or card"))
	}

	var result DirectPaymentResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repos.Orders.LockByID(tx, actor.DistributorID, orderID)
		if err != nil {
			return notFound(err, ErrOrderNotFound, "Order not found")
		}
		if req.Amount > order.RemainingAmount {
			return apperr.Business(ErrPaymentExceedsRemaining,
				"Payment cannot exceed remaining amount (%s)", order.RemainingAmount)
		}
		remaining := order.RemainingAmount.Sub(req.Amount)
		if err := s.repos.Orders.SetRemaining(tx, order.ID, remaining); err != nil {
			return err
		}
		t := &model.OrderTransaction{
			AppendOnly:  model.AppendOnly{CreatedAt: s.now(), CreatedBy: actor.audit()},
			OrderID:     order.ID,
			UserID:      actor.UserID,
			Amount:      req.Amount,
			PaymentType: req.PaymentType,
			Comment:     req.Comment,
		}
		if err := s.repos.Transactions.Create(tx, t); err != nil {
			return err
		}
		order.RemainingAmount = remaining
		result = DirectPaymentResult{Order: order, Transaction: t}
		return nil
	})
	if err = finish(span, err); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*model.Order, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	order, err := s.repos.Orders.FindByID(ctx, nil, actor.DistributorID, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound, "Order not found")
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor Actor, f repository.OrderFilter) ([]model.Order, error) {
	if err := requireDistributor(actor); err != nil {
		return nil, err
	}
	return s.repos.Orders.List(ctx, actor.DistributorID, f)
}

func (s *orderService) ListOrderPayments(ctx context.Context, actor Actor, orderID uuid.UUID) ([]model.OrderTransaction, error) {
	if _, err := s.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return s.repos.Transactions.FindByOrder(ctx, orderID)
}

func (s *orderService) notifyOrder(kind notify.Kind, order *model.Order) {
	p := &notify.OrderPayload{
		OrderID:   order.ID,
		Total:     order.TotalPrice,
		Paid:      order.PaidAmount(),
		Remaining: order.RemainingAmount,
		Status:    string(order.Status),
	}
	channel := ""
	if order.Shop != nil {
		p.ShopName = order.Shop.Name
		p.ShopDebt = order.Shop.TotalDebt
		channel = order.Shop.NotificationChannel()
	}
	if order.User != nil {
		p.Actor = notify.Actor{Name: order.User.Name, Phone: order.User.Phone}
	}
	for _, it := range order.Items {
		line := notify.ItemLine{Quantity: it.Quantity, Price: it.PriceAtTime, Subtotal: it.Subtotal}
		if it.Product != nil {
			line.ProductName = it.Product.Name
		}
		p.Items = append(p.Items, line)
	}

	s.notifier.Notify(notify.Event{
		ID:            uuid.New(),
		Kind:          kind,
		ShopID:        order.ShopID,
		DistributorID: order.DistributorID,
		ChannelID:     channel,
		OccurredAt:    s.now(),
		Payload:       p,
	})
}
