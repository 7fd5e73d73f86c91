package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/shop-engine/internal/model"
	"github.com/d60-Lab/shop-engine/internal/repository"
	"github.com/d60-Lab/shop-engine/pkg/logger"
)

// CheckoutInput 下单入参
type CheckoutInput struct {
	CouponCode   string  `json:"coupon_code"`
	ShippingFee  float64 `json:"shipping_fee" binding:"gte=0"`
	ShippingAddr string  `json:"shipping_addr"`
	Email        string  `json:"email" binding:"omitempty,email"`
	Phone        string  `json:"phone"`
}

// OrderService 订单装配与补偿：购物车转订单、扣库存、核销券在同一事务内全有或全无
type OrderService struct {
	db      *gorm.DB
	stock   *StockService
	coupons *CouponService
	carts   repository.CartRepository
	orders  repository.OrderRepository
}

func NewOrderService(db *gorm.DB, stock *StockService, coupons *CouponService,
	carts repository.CartRepository, orders repository.OrderRepository) *OrderService {
	return &OrderService{db: db, stock: stock, coupons: coupons, carts: carts, orders: orders}
}

// CreateOrder 把归属者的购物车装配为订单
// 任何一步失败整个事务回滚：不存在部分预留、部分核销的中间态
func (s *OrderService) CreateOrder(ctx context.Context, owner model.OwnerRef, input CheckoutInput) (*model.Order, error) {
	if !owner.Valid() {
		return nil, validationError("owner must carry exactly one of user id or guest token")
	}
	if input.ShippingFee < 0 {
		return nil, validationError("shipping fee must not be negative")
	}

	var order *model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.carts.WithTx(tx).GetByOwner(ctx, owner)
		if err != nil {
			return err
		}
		if cart == nil || len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		// 金额以加入购物车时的快照价为准，不看商品现价
		var subtotal float64
		for _, it := range cart.Items {
			subtotal += it.PriceSnapshot * float64(it.Quantity)
		}

		var (
			check    *CouponCheck
			discount float64
		)
		if input.CouponCode != "" {
			check, err = s.coupons.ValidateInTx(ctx, tx, input.CouponCode, subtotal, input.Email, input.Phone)
			if err != nil {
				return err
			}
			if !check.Valid {
				return couponErrorFromReason(check.Reason)
			}
			discount = check.Discount
		}

		total := subtotal + input.ShippingFee - discount
		if total < 0 {
			total = 0
		}

		order = &model.Order{
			OrderNo:        uuid.New().String(),
			UserID:         owner.UserID,
			GuestToken:     owner.GuestToken,
			Status:         model.OrderStatusPending,
			PaymentStatus:  model.PaymentStatusPending,
			Subtotal:       subtotal,
			ShippingFee:    input.ShippingFee,
			DiscountAmount: discount,
			Total:          total,
			ShippingAddr:   input.ShippingAddr,
		}
		if check != nil {
			order.CouponID = &check.Coupon.ID
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		// 固定加锁顺序预留库存，任何一行不足则整单失败
		lines := make([]model.CartItem, len(cart.Items))
		copy(lines, cart.Items)
		sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
		for _, line := range lines {
			if err := s.stock.Reserve(ctx, tx, line.ProductID, line.Quantity, order.OrderNo); err != nil {
				return err
			}
		}

		names, err := productNames(ctx, tx, lines)
		if err != nil {
			return err
		}
		items := make([]model.OrderItem, 0, len(lines))
		for _, line := range lines {
			items = append(items, model.OrderItem{
				OrderID:     order.ID,
				ProductID:   line.ProductID,
				ProductName: names[line.ProductID],
				UnitPrice:   line.PriceSnapshot,
				Quantity:    line.Quantity,
				Subtotal:    line.PriceSnapshot * float64(line.Quantity),
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items

		if check != nil {
			identity := Identity{UserID: owner.UserID, GuestToken: owner.GuestToken,
				Email: input.Email, Phone: input.Phone}
			if _, err := s.coupons.Redeem(ctx, tx, check.Coupon.ID, order.ID, discount, identity); err != nil {
				return err
			}
		}

		// 购物车行保留，条目即刻清空
		return s.carts.WithTx(tx).ClearItems(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_no", order.OrderNo),
		zap.Float64("total", order.Total))
	return order, nil
}

// CancelOrder 订单装配的镜像补偿：回补库存、回退券用量、置为 CANCELLED，同一事务
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64, owner model.OwnerRef) (*model.Order, error) {
	if !owner.Valid() {
		return nil, validationError("owner must carry exactly one of user id or guest token")
	}
	var order model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁订单行，挡住并发的双重取消
		q := tx.Clauses(clause.Locking{Strength: "UPDATE"})
		if owner.UserID != nil {
			q = q.Where("user_id = ?", *owner.UserID)
		} else {
			q = q.Where("guest_token = ?", *owner.GuestToken)
		}
		if err := q.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !model.Cancellable(order.Status) {
			return ErrInvalidTransition
		}
		if err := tx.Where("order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
			return err
		}
		for _, it := range order.Items {
			if err := s.stock.Restore(ctx, tx, it.ProductID, it.Quantity, order.OrderNo); err != nil {
				return err
			}
		}
		if err := s.coupons.Release(ctx, tx, order.ID); err != nil {
			return err
		}
		order.Status = model.OrderStatusCancelled
		return tx.Model(&model.Order{}).Where("id = ?", order.ID).
			Update("status", model.OrderStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}
	logger.Info("order cancelled", zap.Int64("order_id", order.ID), zap.String("order_no", order.OrderNo))
	return &order, nil
}

// UpdateStatus 管理端状态迁移；不触达库存与券，取消必须走 CancelOrder 以保证补偿
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status string) (*model.Order, error) {
	if status == model.OrderStatusCancelled {
		return nil, validationError("cancellation must go through the cancel endpoint")
	}
	if status != model.OrderStatusProcessing && status != model.OrderStatusCompleted {
		return nil, validationError(fmt.Sprintf("unknown order status %q", status))
	}
	var order model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !model.CanTransition(order.Status, status) {
			return ErrInvalidTransition
		}
		order.Status = status
		return tx.Model(&model.Order{}).Where("id = ?", order.ID).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdatePaymentStatus 支付网关回调的唯一触点，只翻支付状态位
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID int64, status string) (*model.Order, error) {
	switch status {
	case model.PaymentStatusPending, model.PaymentStatusPaid, model.PaymentStatusFailed:
	default:
		return nil, validationError(fmt.Sprintf("unknown payment status %q", status))
	}
	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.orders.GetByID(ctx, orderID)
}

// GetOrder 按归属者取订单
func (s *OrderService) GetOrder(ctx context.Context, orderID int64, owner model.OwnerRef) (*model.Order, error) {
	order, err := s.orders.GetByOwner(ctx, orderID, owner)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return order, nil
}

// ListOrders 按归属者分页列订单
func (s *OrderService) ListOrders(ctx context.Context, owner model.OwnerRef, page, pageSize int) ([]*model.Order, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return s.orders.ListByOwner(ctx, owner, (page-1)*pageSize, pageSize)
}

// couponErrorFromReason 预览失败原因到引擎错误的映射
func couponErrorFromReason(reason string) error {
	switch reason {
	case ReasonExhausted:
		return ErrCouponExhausted
	case ReasonAlreadyUsed:
		return ErrCouponAlreadyUsed
	default:
		return ErrCouponInvalid
	}
}

func productNames(ctx context.Context, tx *gorm.DB, lines []model.CartItem) (map[int64]string, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	var products []model.Product
	if err := tx.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}
