package service

import (
	"errors"
	"testing"

	"go-distributor-ledger/internal/apperr"
	"go-distributor-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateShopStartsWithoutDebt(t *testing.T) {
	f := newFixture(t)

	shop, err := f.catalog.CreateShop(f.ctx, f.actor, ShopRequest{Name: "  Corner Store ", OwnerName: "Aziz"})
	require.NoError(t, err)
	assert.Equal(t, "Corner Store", shop.Name)
	assert.True(t, shop.TotalDebt.IsZero())
	assert.Equal(t, "https://t.me/ledger_bot?start=shop_"+shop.ID.String(), shop.TelegramLink)

	got, err := f.catalog.GetShop(f.ctx, f.actor, shop.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalDebt.IsZero())
	f.requireConsistent(shop.ID)

	_, err = f.catalog.CreateShop(f.ctx, f.actor, ShopRequest{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateShopLeavesDebtAlone(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	_, err := f.ledger.AddManualDebt(f.ctx, f.actor, DebtRequest{ShopID: shop.ID, Amount: amt("900")})
	require.NoError(t, err)

	updated, err := f.catalog.UpdateShop(f.ctx, f.actor, shop.ID, ShopRequest{Name: "Corner Store 2", Phone: "+998900000000"})
	require.NoError(t, err)
	assert.Equal(t, "Corner Store 2", updated.Name)
	assert.Equal(t, amt("900"), updated.TotalDebt)
	f.requireConsistent(shop.ID)

	other := f.user(model.RoleDistributor, nil)
	_, err = f.catalog.UpdateShop(f.ctx, Actor{UserID: other.ID, DistributorID: other.ID, Role: model.RoleDistributor}, shop.ID, ShopRequest{Name: "Mine now"})
	assert.True(t, errors.Is(err, ErrShopNotFound))
}

func TestProductCatalog(t *testing.T) {
	f := newFixture(t)

	p, err := f.catalog.CreateProduct(f.ctx, f.actor, ProductRequest{Name: "Flour", Unit: "kg", Price: amt("8000"), Stock: 40})
	require.NoError(t, err)
	assert.Equal(t, f.distributor.ID, p.DistributorID)

	_, err = f.catalog.CreateProduct(f.ctx, f.actor, ProductRequest{Name: "Bad", Price: amt("-1")})
	assert.True(t, errors.Is(err, ErrNegativePrice))
	_, err = f.catalog.CreateProduct(f.ctx, f.actor, ProductRequest{Name: "Bad", Stock: -1})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	updated, err := f.catalog.UpdateProduct(f.ctx, f.actor, p.ID, ProductRequest{Name: "Flour", Unit: "kg", Price: amt("8500"), Stock: 35})
	require.NoError(t, err)
	assert.Equal(t, amt("8500"), updated.Price)
	assert.Equal(t, 35, f.stock(p.ID))

	_, err = f.catalog.UpdateProduct(f.ctx, f.actor, uuid.New(), ProductRequest{Name: "Ghost"})
	assert.True(t, errors.Is(err, ErrProductNotFound))

	list, err := f.catalog.ListProducts(f.ctx, f.actor)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteProductKeepsOrderHistory(t *testing.T) {
	f := newFixture(t)
	shop := f.shop(f.distributor.ID, "Corner Store")
	p := f.product("Flour", "8000", 10)

	order, err := f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, f.catalog.DeleteProduct(f.ctx, f.actor, p.ID))

	list, err := f.catalog.ListProducts(f.ctx, f.actor)
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := f.orders.GetOrder(f.ctx, f.actor, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.NotNil(t, got.Items[0].Product)
	assert.Equal(t, "Flour", got.Items[0].Product.Name)
	assert.Equal(t, amt("16000"), got.Items[0].Subtotal)

	_, err = f.orders.PlaceOrder(f.ctx, f.actor, PlaceOrderRequest{
		ShopID: shop.ID,
		Items:  []OrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, ErrProductNotFound))
	assert.Equal(t, amt("16000"), f.debt(shop.ID))
	f.requireConsistent(shop.ID)

	err = f.catalog.DeleteProduct(f.ctx, f.actor, p.ID)
	assert.True(t, errors.Is(err, ErrProductNotFound))

	outsider := Actor{UserID: uuid.New(), DistributorID: uuid.New(), Role: model.RoleDistributor}
	other := f.product("Sugar", "100", 1)
	err = f.catalog.DeleteProduct(f.ctx, outsider, other.ID)
	assert.True(t, errors.Is(err, ErrProductNotFound))
}
