package service

import (
	"errors"
	"sync"
	"testing"

	"go-distributor-ledger/internal/apperr"
	"go-distributor-ledger/internal/model"
	"go-distributor-ledger/internal/notify"
	"go-distributor-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrderDecrementsStockAndAddsDebt(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	a := f.product("Flour 50kg", "8000", 10)
	b := f.product("Sugar 25kg", "5000", 5)

	order, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items: []OrderItemRequest{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, amt("21000"), order.TotalPrice)
	assert.Equal(t, amt("21000"), order.RemainingAmount)
	assert.Equal(t, model.OrderPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, amt("16000"), order.Items[0].Subtotal)
	assert.Equal(t, amt("8000"), order.Items[0].PriceAtTime)

	assert.Equal(t, amt("21000"), f.debt(shop.ID))
	assert.Equal(t, 8, f.stock(a.ID))
	assert.Equal(t, 4, f.stock(b.ID))
	f.requireConsistent(shop.ID)

	entries, err := f.repos.Ledger.List(f.ctx, repository.LedgerFilter{ShopID: &shop.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.KindOrder, entries[0].Kind)
	assert.Equal(t, amt("-21000"), entries[0].Amount)
	assert.Equal(t, amt("0"), entries[0].PreviousDebt)
	assert.Equal(t, amt("21000"), entries[0].NewDebt)

	require.Equal(t, []notify.Kind{notify.OrderCreated}, f.notes.kinds())
	ev := f.notes.last()
	assert.Equal(t, "4242", ev.ChannelID)
	payload := ev.Payload.(*notify.OrderPayload)
	assert.Equal(t, "Corner Store", payload.ShopName)
	assert.Equal(t, amt("21000"), payload.Total)
	require.Len(t, payload.Items, 2)
	assert.Equal(t, "Flour 50kg", payload.Items[0].ProductName)
}

func TestPlaceOrderInsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	p := f.product("Flour", "8000", 10)

	_, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 11}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Available: 10")

	assert.Equal(t, 10, f.stock(p.ID))
	assert.True(t, f.debt(shop.ID).IsZero())
	orders, err := f.orders.ListOrders(f.ctx, f.actor, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.notes.kinds())
}

func TestPlaceOrderUnknownProductRollsBackEarlierLines(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	p := f.product("Flour", "8000", 10)
	missing := uuid.New()

	_, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items: []OrderItemRequest{
			{ProductID: p.ID, Quantity: 3},
			{ProductID: missing, Quantity: 1},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductNotFound))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), missing.String())

	assert.Equal(t, 10, f.stock(p.ID))
	assert.True(t, f.debt(shop.ID).IsZero())
	f.requireConsistent(shop.ID)
}

func TestPlaceOrderRejectsTotalBeyondColumnRange(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	p := f.product("Gold bar", "999999999999.99", 10)

	_, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 2}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAmountOutOfRange))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.Equal(t, 10, f.stock(p.ID))
	assert.True(t, f.debt(shop.ID).IsZero())
	f.requireConsistent(shop.ID)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	p := f.product("Flour", "8000", 10)

	_, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{ShopID: shop.ID})
	assert.True(t, errors.Is(err, ErrEmptyOrder))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 0}},
	})
	assert.True(t, errors.Is(err, ErrInvalidQuantity))

	_, err = f.orders.PlaceOrder(f.ctx, Actor{UserID: uuid.New(), DistributorID: uuid.New(), Role: model.RoleDistributor}, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, ErrDistributorNotFound))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPlaceOrderForeignShopIsNotFound(t *testing.T) {
	f := newFixture(t)
	other := f.user(model.RoleDistributor, nil)
	foreign := f.shop(other.ID, "Not Mine")
	p := f.product("Flour", "8000", 10)

	_, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: foreign.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, ErrShopNotFound))
	assert.Equal(t, 10, f.stock(p.ID))
	assert.True(t, f.debt(foreign.ID).IsZero())
}

func TestPlaceOrderDuplicateLinesShareStock(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	p := f.product("Flour", "100", 10)

	_, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 6}, {ProductID: p.ID, Quantity: 5}},
	})
	require.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Equal(t, 10, f.stock(p.ID))

	order, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 5}, {ProductID: p.ID, Quantity: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, amt("1000"), order.TotalPrice)
	assert.Equal(t, 0, f.stock(p.ID))
}

func TestPlaceOrderByEmployee(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	p := f.product("Flour", "100", 10)
	emp := f.user(model.RoleEmployee, &f.distributor.ID)

	order, err := f.orders.PlaceOrder(f.ctx, Actor{UserID: emp.ID, DistributorID: f.distributor.ID, Role: model.RoleEmployee}, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, emp.ID, order.UserID)
	assert.Equal(t, f.distributor.ID, order.DistributorID)

	stranger := f.user(model.RoleEmployee, nil)
	_, err = f.orders.PlaceOrder(f.ctx, Actor{UserID: stranger.ID, DistributorID: f.distributor.ID, Role: model.RoleEmployee}, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	p := f.product("Flour", "100", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, short := 0, 0
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
				ShopID: shop.ID,
				Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrInsufficientStock) {
				short++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 5, short)
	assert.Equal(t, 0, f.stock(p.ID))
	assert.Equal(t, amt("1000"), f.debt(shop.ID))
	f.requireConsistent(shop.ID)
}

func TestOrderItemPriceIsSnapshot(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	p := f.product("Flour", "8000", 10)

	order, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.catalog.UpdateProduct(f.ctx, f.actor, p.ID, ProductRequest{Name: "Flour", Price: amt("9500"), Stock: 9})
	require.NoError(t, err)

	reloaded, err := f.orders.GetOrder(f.ctx, f.actor, order.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, amt("8000"), reloaded.Items[0].PriceAtTime)
	assert.Equal(t, amt("8000"), reloaded.TotalPrice)
	assert.Equal(t, amt("9500"), reloaded.Items[0].Product.Price)
}

func TestMarkDeliveredIsIdempotent(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	p := f.product("Flour", "100", 10)
	order, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	first, err := f.orders.MarkDelivered(f.ctx, f.actor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderDelivered, first.Status)
	require.NotNil(t, first.DeliveredAt)

	second, err := f.orders.MarkDelivered(f.ctx, f.actor, order.ID)
	require.NoError(t, err)
	assert.True(t, first.DeliveredAt.Equal(*second.DeliveredAt))

	assert.Equal(t, []notify.Kind{notify.OrderCreated, notify.OrderDelivered}, f.notes.kinds())
	assert.Equal(t, amt("100"), f.debt(shop.ID))

	_, err = f.orders.MarkDelivered(f.ctx, f.actor, uuid.New())
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}

func TestDirectOrderPaymentLeavesShopDebtAlone(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	p := f.product("Flour", "8000", 10)
	order, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	res, err := f.orders.DirectOrderPayment(f.ctx, f.actor, order.ID, DirectPaymentRequest{Amount: amt("6000"), Comment: "cash on delivery"})
	require.NoError(t, err)
	assert.Equal(t, amt("10000"), res.Order.RemainingAmount)
	assert.Equal(t, model.PaymentCash, res.Transaction.PaymentType)
	assert.Equal(t, amt("16000"), f.debt(shop.ID))
	f.requireConsistent(shop.ID)

	_, err = f.orders.DirectOrderPayment(f.ctx, f.actor, order.ID, DirectPaymentRequest{Amount: amt("10000.01")})
	assert.True(t, errors.Is(err, ErrPaymentExceedsRemaining))

	_, err = f.orders.DirectOrderPayment(f.ctx, f.actor, order.ID, DirectPaymentRequest{Amount: amt("1"), PaymentType: "cheque"})
	assert.True(t, errors.Is(err, ErrInvalidPaymentType))

	_, err = f.orders.DirectOrderPayment(f.ctx, f.actor, order.ID, DirectPaymentRequest{Amount: amt("0")})
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	txs, err := f.orders.ListOrderPayments(f.ctx, f.actor, order.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, amt("6000"), txs[0].Amount)

	reloaded, err := f.orders.GetOrder(f.ctx, f.actor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, amt("6000"), reloaded.PaidAmount())
}
