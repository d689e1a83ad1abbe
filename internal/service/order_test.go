package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/transport"
)

func TestCreateOrderDecrementsAtCreation(t *testing.T) {
	r := newTestRepo(t)
	svc := &OrderService{Repo: r}
	ctx := context.Background()

	prod := seedProduct(t, r, models.Product{Name: "bronze gourd", Price: 2000, Discount: 25, Currency: "cny", Stock: 10, IsActive: true})
	reading := seedProduct(t, r, models.Product{Name: "annual reading", Price: 8800, Stock: 0, IsDigital: true, IsActive: true})
	require.NoError(t, r.DB.Create(&models.CartItem{UserID: 4, ProductID: prod.ID, Quantity: 2}).Error)

	order, err := svc.CreateOrder(ctx, 4, "buyer@example.com", transport.CreateOrderRequest{
		Items: []transport.CheckoutItem{
			{ProductID: prod.ID, Quantity: 2},
			{ProductID: reading.ID, Quantity: 1},
		},
		ShippingInfo: testShipping,
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.True(t, order.StockAdjusted)
	require.Equal(t, int64(2*1500+8800), order.Total)

	require.Equal(t, uint(8), productStock(t, r, prod.ID))
	require.Zero(t, cartCount(t, r, 4))

	var digital models.Product
	require.NoError(t, r.DB.First(&digital, reading.ID).Error)
	require.Equal(t, uint(0), digital.Stock)
	require.Equal(t, uint(1), digital.SoldCount)
}

func TestCreateOrderRollsBackOnShortStock(t *testing.T) {
	r := newTestRepo(t)
	svc := &OrderService{Repo: r}
	ctx := context.Background()

	first := seedProduct(t, r, models.Product{Name: "first", Price: 100, Stock: 5, IsActive: true})
	scarce := seedProduct(t, r, models.Product{Name: "scarce", Price: 100, Stock: 1, IsActive: true})

	_, err := svc.CreateOrder(ctx, 1, "a@b.cn", transport.CreateOrderRequest{
		Items: []transport.CheckoutItem{
			{ProductID: first.ID, Quantity: 2},
			{ProductID: scarce.ID, Quantity: 3},
		},
		ShippingInfo: testShipping,
	})
	require.ErrorIs(t, err, ErrValidation)

	// The transaction left nothing behind.
	require.Equal(t, uint(5), productStock(t, r, first.ID))
	require.Equal(t, uint(1), productStock(t, r, scarce.ID))
	var n int64
	require.NoError(t, r.DB.Model(&models.Order{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestGetOrderForUserOwnership(t *testing.T) {
	r := newTestRepo(t)
	svc := &OrderService{Repo: r}
	ctx := context.Background()

	prod := seedProduct(t, r, models.Product{Name: "coin sword", Price: 100, Stock: 5, IsActive: true})
	order, err := svc.CreateOrder(ctx, 7, "owner@example.com", transport.CreateOrderRequest{
		Items:        []transport.CheckoutItem{{ProductID: prod.ID, Quantity: 1}},
		ShippingInfo: testShipping,
	})
	require.NoError(t, err)

	got, err := svc.GetOrderForUser(ctx, 7, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)
	require.Len(t, got.Items, 1)

	_, err = svc.GetOrderForUser(ctx, 8, order.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetOrderForUser(ctx, 7, 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPatchOrderLifecycle(t *testing.T) {
	r := newTestRepo(t)
	svc := &OrderService{Repo: r}
	ctx := context.Background()

	prod := seedProduct(t, r, models.Product{Name: "lantern", Price: 100, Stock: 5, IsActive: true})
	order, err := svc.CreateOrder(ctx, 1, "a@b.cn", transport.CreateOrderRequest{
		Items:        []transport.CheckoutItem{{ProductID: prod.ID, Quantity: 1}},
		ShippingInfo: testShipping,
	})
	require.NoError(t, err)

	step := func(to string) *models.Order {
		got, err := svc.PatchOrder(ctx, order.ID, transport.PatchOrderRequest{Status: &to})
		require.NoError(t, err)
		return got
	}

	got := step(models.OrderStatusPaid)
	require.NotNil(t, got.PaidAt)
	require.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)

	step(models.OrderStatusProcessing)
	got = step(models.OrderStatusShipped)
	require.NotNil(t, got.ShippedAt)
	got = step(models.OrderStatusDelivered)
	require.NotNil(t, got.DeliveredAt)
	got = step(models.OrderStatusCompleted)
	require.Equal(t, models.OrderStatusCompleted, got.Status)

	// No transition leaves a completed order.
	cancel := models.OrderStatusCancelled
	_, err = svc.PatchOrder(ctx, order.ID, transport.PatchOrderRequest{Status: &cancel})
	require.ErrorIs(t, err, ErrConflict)
}

func TestPatchOrderRejectsSkipsAndBadPaymentStatus(t *testing.T) {
	r := newTestRepo(t)
	svc := &OrderService{Repo: r}
	ctx := context.Background()

	prod := seedProduct(t, r, models.Product{Name: "door guardian", Price: 100, Stock: 5, IsActive: true})
	order, err := svc.CreateOrder(ctx, 1, "a@b.cn", transport.CreateOrderRequest{
		Items:        []transport.CheckoutItem{{ProductID: prod.ID, Quantity: 1}},
		ShippingInfo: testShipping,
	})
	require.NoError(t, err)

	shipped := models.OrderStatusShipped
	_, err = svc.PatchOrder(ctx, order.ID, transport.PatchOrderRequest{Status: &shipped})
	require.ErrorIs(t, err, ErrConflict)

	bogus := "misplaced"
	_, err = svc.PatchOrder(ctx, order.ID, transport.PatchOrderRequest{PaymentStatus: &bogus})
	require.ErrorIs(t, err, ErrValidation)

	paid := models.OrderStatusPaid
	_, err = svc.PatchOrder(ctx, 9999, transport.PatchOrderRequest{Status: &paid})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPatchOrderRefund(t *testing.T) {
	r := newTestRepo(t)
	svc := &OrderService{Repo: r}
	ctx := context.Background()

	prod := seedProduct(t, r, models.Product{Name: "mirror", Price: 100, Stock: 5, IsActive: true})
	order, err := svc.CreateOrder(ctx, 1, "a@b.cn", transport.CreateOrderRequest{
		Items:        []transport.CheckoutItem{{ProductID: prod.ID, Quantity: 1}},
		ShippingInfo: testShipping,
	})
	require.NoError(t, err)

	paid := models.OrderStatusPaid
	_, err = svc.PatchOrder(ctx, order.ID, transport.PatchOrderRequest{Status: &paid})
	require.NoError(t, err)

	refunded := models.OrderStatusRefunded
	got, err := svc.PatchOrder(ctx, order.ID, transport.PatchOrderRequest{Status: &refunded})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusRefunded, got.Status)
	require.Equal(t, models.PaymentStatusRefunded, got.PaymentStatus)
}

// Refunded is reachable from pending too, e.g. payment settled out of band
// and reversed before the order ever advanced.
func TestPatchOrderRefundFromPending(t *testing.T) {
	r := newTestRepo(t)
	svc := &OrderService{Repo: r}
	ctx := context.Background()

	prod := seedProduct(t, r, models.Product{Name: "tea set", Price: 100, Stock: 5, IsActive: true})
	order, err := svc.CreateOrder(ctx, 1, "a@b.cn", transport.CreateOrderRequest{
		Items:        []transport.CheckoutItem{{ProductID: prod.ID, Quantity: 1}},
		ShippingInfo: testShipping,
	})
	require.NoError(t, err)

	refunded := models.OrderStatusRefunded
	got, err := svc.PatchOrder(ctx, order.ID, transport.PatchOrderRequest{Status: &refunded})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusRefunded, got.Status)
	require.Equal(t, models.PaymentStatusRefunded, got.PaymentStatus)
}

func TestListOrdersScoping(t *testing.T) {
	r := newTestRepo(t)
	svc := &OrderService{Repo: r}
	ctx := context.Background()

	prod := seedProduct(t, r, models.Product{Name: "bell", Price: 100, Stock: 20, IsActive: true})
	for _, uid := range []uint{1, 1, 2} {
		_, err := svc.CreateOrder(ctx, uid, "a@b.cn", transport.CreateOrderRequest{
			Items:        []transport.CheckoutItem{{ProductID: prod.ID, Quantity: 1}},
			ShippingInfo: testShipping,
		})
		require.NoError(t, err)
	}

	total, orders, err := svc.ListOrdersForUser(ctx, 1, 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	for _, o := range orders {
		require.Equal(t, uint(1), o.UserID)
	}

	total, _, err = svc.ListOrders(ctx, "", 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	total, _, err = svc.ListOrders(ctx, models.OrderStatusPending, 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	total, _, err = svc.ListOrders(ctx, models.OrderStatusPaid, 0, 10)
	require.NoError(t, err)
	require.Zero(t, total)
}
