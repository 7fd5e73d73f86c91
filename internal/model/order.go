package model

import (
	"time"
)

// 订单状态
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
)

// 支付状态
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// orderTransitions 显式状态迁移表，取代散落各处的状态判断
var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// CanTransition 判断订单状态能否从 from 迁移到 to
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable 判断该状态下订单能否取消（仅 PENDING/PROCESSING 可取消）
func Cancellable(status string) bool {
	return CanTransition(status, OrderStatusCancelled)
}

// Order 订单，连同 OrderItem 一次性原子创建；此后仅状态字段可变
type Order struct {
	ID             int64       `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderNo        string      `json:"order_no" gorm:"type:varchar(36);uniqueIndex;not null"`
	UserID         *int64      `json:"user_id" gorm:"index:idx_order_user"`
	GuestToken     *string     `json:"guest_token" gorm:"type:varchar(64);index:idx_order_guest"`
	Status         string      `json:"status" gorm:"type:varchar(16);index;not null;default:PENDING"`
	PaymentStatus  string      `json:"payment_status" gorm:"type:varchar(16);not null;default:pending"`
	Subtotal       float64     `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	ShippingFee    float64     `json:"shipping_fee" gorm:"type:decimal(12,2);not null;default:0"`
	DiscountAmount float64     `json:"discount_amount" gorm:"type:decimal(12,2);not null;default:0"`
	Total          float64     `json:"total" gorm:"type:decimal(12,2);not null"`
	CouponID       *int64      `json:"coupon_id" gorm:"index"`
	ShippingAddr   string      `json:"shipping_addr" gorm:"type:text"`
	Items          []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// OrderItem 下单瞬间的商品快照，与 Product 行解耦，改价改名不影响历史订单
type OrderItem struct {
	ID          int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID     int64   `json:"order_id" gorm:"index:idx_order_item_order;not null"`
	ProductID   int64   `json:"product_id" gorm:"not null"`
	ProductName string  `json:"product_name" gorm:"type:varchar(255);not null"`
	UnitPrice   float64 `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Quantity    int     `json:"quantity" gorm:"not null"`
	Subtotal    float64 `json:"subtotal" gorm:"type:decimal(12,2);not null"`
}

func (OrderItem) TableName() string { return "order_items" }
