package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/shop-engine/internal/model"
)

func TestCreateOrderFromCartSnapshots(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "keyboard", 50, 10)
	owner := model.GuestOwner("guest-1")
	addToCart(t, db, owner, p, 2)

	// 加购后涨价，订单金额仍按快照价
	require.NoError(t, db.Model(p).Update("price", 80).Error)

	order, err := orders.CreateOrder(ctx, owner, CheckoutInput{ShippingFee: 5, Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
	assert.InDelta(t, 100.0, order.Subtotal, 1e-9)
	assert.InDelta(t, 105.0, order.Total, 1e-9)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "keyboard", order.Items[0].ProductName)
	assert.InDelta(t, 50.0, order.Items[0].UnitPrice, 1e-9)

	// 库存扣减 + 流水 + 购物车清空
	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 8, got.StockQuantity)
	assert.Equal(t, 2, got.SoldCount)
	var ledger int64
	require.NoError(t, db.Model(&model.StockTransaction{}).
		Where("reference_type = ? AND reference_id = ?", model.StockRefOrder, order.OrderNo).
		Count(&ledger).Error)
	assert.EqualValues(t, 1, ledger)
	var items int64
	require.NoError(t, db.Model(&model.CartItem{}).Count(&items).Error)
	assert.Zero(t, items, "cart items deleted the instant the order exists")
}

func TestCreateOrderEmptyCart(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()

	_, err := orders.CreateOrder(ctx, model.GuestOwner("nobody"), CheckoutInput{})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrderRequiresSingleOwner(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()

	_, err := orders.CreateOrder(ctx, model.OwnerRef{}, CheckoutInput{})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, CodeValidation, e.Code)
}

func TestCreateOrderWithCoupon(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "mouse", 40, 10)
	c := seedCoupon(t, db, &model.Coupon{Code: "SAVE10", DiscountType: model.DiscountTypePercentage, DiscountValue: 10})
	owner := model.UserOwner(7)
	addToCart(t, db, owner, p, 3) // 小计 120

	order, err := orders.CreateOrder(ctx, owner, CheckoutInput{
		CouponCode: "save10", ShippingFee: 10, Email: "a@x.com",
	})
	require.NoError(t, err)
	assert.InDelta(t, 12.0, order.DiscountAmount, 1e-9)
	assert.InDelta(t, 118.0, order.Total, 1e-9)
	require.NotNil(t, order.CouponID)
	assert.Equal(t, c.ID, *order.CouponID)

	var got model.Coupon
	require.NoError(t, db.First(&got, c.ID).Error)
	assert.Equal(t, 1, got.UsageCount)
	var usage model.CouponUsage
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&usage).Error)
	assert.InDelta(t, 12.0, usage.DiscountAmount, 1e-9)
}

func TestCreateOrderTotalNeverNegative(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "sticker", 3, 10)
	seedCoupon(t, db, &model.Coupon{Code: "HUGE", DiscountValue: 100})
	owner := model.GuestOwner("guest-2")
	addToCart(t, db, owner, p, 1)

	order, err := orders.CreateOrder(ctx, owner, CheckoutInput{CouponCode: "HUGE", Email: "a@x.com"})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, order.DiscountAmount, 1e-9, "discount clamped to subtotal")
	assert.GreaterOrEqual(t, order.Total, 0.0)
}

func TestCreateOrderRollsBackOnInsufficientStock(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()
	a := seedProduct(t, db, "plenty", 10, 100)
	b := seedProduct(t, db, "scarce", 10, 1)
	c := seedCoupon(t, db, &model.Coupon{Code: "RB", DiscountValue: 5})
	owner := model.GuestOwner("guest-3")
	addToCart(t, db, owner, a, 2)
	addToCart(t, db, owner, b, 5)

	_, err := orders.CreateOrder(ctx, owner, CheckoutInput{CouponCode: "RB", Email: "a@x.com"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// 步骤 2–6 全部回滚：无订单、无预留、无核销、购物车原样
	var orderCnt, itemCnt, usageCnt, cartCnt, ledgerCnt int64
	require.NoError(t, db.Model(&model.Order{}).Count(&orderCnt).Error)
	require.NoError(t, db.Model(&model.OrderItem{}).Count(&itemCnt).Error)
	require.NoError(t, db.Model(&model.CouponUsage{}).Count(&usageCnt).Error)
	require.NoError(t, db.Model(&model.CartItem{}).Count(&cartCnt).Error)
	require.NoError(t, db.Model(&model.StockTransaction{}).Count(&ledgerCnt).Error)
	assert.Zero(t, orderCnt)
	assert.Zero(t, itemCnt)
	assert.Zero(t, usageCnt)
	assert.EqualValues(t, 2, cartCnt)
	assert.Zero(t, ledgerCnt)

	var gotA, gotB model.Product
	require.NoError(t, db.First(&gotA, a.ID).Error)
	require.NoError(t, db.First(&gotB, b.ID).Error)
	assert.Equal(t, 100, gotA.StockQuantity)
	assert.Equal(t, 0, gotA.SoldCount)
	assert.Equal(t, 1, gotB.StockQuantity)
	var gotC model.Coupon
	require.NoError(t, db.First(&gotC, c.ID).Error)
	assert.Equal(t, 0, gotC.UsageCount)
}

func TestCreateOrderRejectsExhaustedCoupon(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "widget", 10, 100)
	limit := 1
	seedCoupon(t, db, &model.Coupon{Code: "ONE", DiscountValue: 5, UsageLimit: &limit})

	first := model.GuestOwner("g1")
	addToCart(t, db, first, p, 1)
	_, err := orders.CreateOrder(ctx, first, CheckoutInput{CouponCode: "ONE", Email: "a@x.com"})
	require.NoError(t, err)

	second := model.GuestOwner("g2")
	addToCart(t, db, second, p, 1)
	_, err = orders.CreateOrder(ctx, second, CheckoutInput{CouponCode: "ONE", Email: "b@x.com"})
	require.ErrorIs(t, err, ErrCouponExhausted)

	// 失败的下单不留任何痕迹，库存只被成功单扣过一次
	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 99, got.StockQuantity)
}

func TestCancelOrderIsTrueInverse(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "camera", 200, 5)
	c := seedCoupon(t, db, &model.Coupon{Code: "INV", DiscountValue: 20})
	owner := model.UserOwner(3)
	addToCart(t, db, owner, p, 2)

	order, err := orders.CreateOrder(ctx, owner, CheckoutInput{CouponCode: "INV", Email: "a@x.com"})
	require.NoError(t, err)

	cancelled, err := orders.CancelOrder(ctx, order.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)

	var gotP model.Product
	require.NoError(t, db.First(&gotP, p.ID).Error)
	assert.Equal(t, 5, gotP.StockQuantity, "stock back to pre-order value")
	assert.Equal(t, 0, gotP.SoldCount)
	var gotC model.Coupon
	require.NoError(t, db.First(&gotC, c.ID).Error)
	assert.Equal(t, 0, gotC.UsageCount)
	var usageCnt int64
	require.NoError(t, db.Model(&model.CouponUsage{}).Count(&usageCnt).Error)
	assert.Zero(t, usageCnt, "usage row deleted")

	// 账本两个方向各留一条流水
	var ledger []model.StockTransaction
	require.NoError(t, db.Where("reference_id = ?", order.OrderNo).Find(&ledger).Error)
	assert.Len(t, ledger, 2)
}

func TestCancelOrderTwiceFails(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "widget", 10, 5)
	owner := model.GuestOwner("g1")
	addToCart(t, db, owner, p, 1)
	order, err := orders.CreateOrder(ctx, owner, CheckoutInput{})
	require.NoError(t, err)

	_, err = orders.CancelOrder(ctx, order.ID, owner)
	require.NoError(t, err)
	_, err = orders.CancelOrder(ctx, order.ID, owner)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// 双重取消不会二次回补
	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 5, got.StockQuantity)
}

func TestCancelOrderScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "widget", 10, 5)
	owner := model.GuestOwner("g1")
	addToCart(t, db, owner, p, 1)
	order, err := orders.CreateOrder(ctx, owner, CheckoutInput{})
	require.NoError(t, err)

	_, err = orders.CancelOrder(ctx, order.ID, model.GuestOwner("someone-else"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "widget", 10, 5)
	owner := model.GuestOwner("g1")
	addToCart(t, db, owner, p, 1)
	order, err := orders.CreateOrder(ctx, owner, CheckoutInput{})
	require.NoError(t, err)

	// COMPLETED 不能从 PENDING 直达
	_, err = orders.UpdateStatus(ctx, order.ID, model.OrderStatusCompleted)
	require.ErrorIs(t, err, ErrInvalidTransition)

	got, err := orders.UpdateStatus(ctx, order.ID, model.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, got.Status)

	got, err = orders.UpdateStatus(ctx, order.ID, model.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, got.Status)

	// 终态后不可再迁移，也不可取消
	_, err = orders.UpdateStatus(ctx, order.ID, model.OrderStatusProcessing)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = orders.CancelOrder(ctx, order.ID, owner)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// 取消必须走补偿路径
	_, err = orders.UpdateStatus(ctx, order.ID, model.OrderStatusCancelled)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, CodeValidation, e.Code)
}

func TestUpdatePaymentStatus(t *testing.T) {
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "widget", 10, 5)
	owner := model.GuestOwner("g1")
	addToCart(t, db, owner, p, 1)
	order, err := orders.CreateOrder(ctx, owner, CheckoutInput{})
	require.NoError(t, err)

	got, err := orders.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, model.OrderStatusPending, got.Status, "payment flip does not move order status")

	_, err = orders.UpdatePaymentStatus(ctx, 99999, model.PaymentStatusPaid)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = orders.UpdatePaymentStatus(ctx, order.ID, "bogus")
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, CodeValidation, e.Code)
}

func TestConcurrentCheckoutScenario(t *testing.T) {
	// 库存 3，两个并发买 2：恰好一成一败，期末库存 1
	db := setupTestDB(t)
	_, _, orders, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "hot", 10, 3)

	owners := []model.OwnerRef{model.GuestOwner("g1"), model.GuestOwner("g2")}
	for _, o := range owners {
		addToCart(t, db, o, p, 2)
	}

	results := make(chan error, 2)
	for _, o := range owners {
		go func(o model.OwnerRef) {
			_, err := orders.CreateOrder(ctx, o, CheckoutInput{})
			results <- err
		}(o)
	}
	var okCnt, failCnt int
	for i := 0; i < 2; i++ {
		if err := <-results; err == nil {
			okCnt++
		} else {
			require.ErrorIs(t, err, ErrInsufficientStock)
			failCnt++
		}
	}
	assert.Equal(t, 1, okCnt)
	assert.Equal(t, 1, failCnt)
	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 1, got.StockQuantity)
}
