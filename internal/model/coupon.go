package model

import (
	"time"
)

// 折扣类型
const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED"
)

// 使用类型
const (
	UsageTypeSingle  = "SINGLE_USE"
	UsageTypeLimited = "LIMITED_USE"
)

// Coupon 优惠券，code 全大写唯一
// LIMITED_USE 的不变量：每次成功提交后 usage_count <= usage_limit
type Coupon struct {
	ID            int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Code          string     `json:"code" gorm:"type:varchar(32);uniqueIndex;not null"`
	DiscountType  string     `json:"discount_type" gorm:"type:varchar(16);not null"`
	DiscountValue float64    `json:"discount_value" gorm:"type:decimal(12,2);not null"`
	MaxDiscount   float64    `json:"max_discount" gorm:"type:decimal(12,2);not null;default:0"` // 仅百分比类型生效，0 表示不封顶
	MinOrderValue float64    `json:"min_order_value" gorm:"type:decimal(12,2);not null;default:0"`
	UsageType     string     `json:"usage_type" gorm:"type:varchar(16);not null"`
	UsageLimit    *int       `json:"usage_limit"`
	UsageCount    int        `json:"usage_count" gorm:"not null;default:0"` // 单调递增，退券时回退
	ValidFrom     *time.Time `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until"`
	Active        bool       `json:"active" gorm:"not null;default:true"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Coupon) TableName() string { return "coupons" }

// EffectiveLimit 返回生效的使用上限；单次券恒为 1，无上限返回 0
func (c *Coupon) EffectiveLimit() int {
	if c.UsageType == UsageTypeSingle {
		return 1
	}
	if c.UsageLimit != nil {
		return *c.UsageLimit
	}
	return 0
}

// WithinWindow 判断 now 是否落在有效期内（两端皆可缺省）
func (c *Coupon) WithinWindow(now time.Time) bool {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}

// CouponUsage 每次成功核销一行
// (coupon_id, email) 与 (coupon_id, phone) 各自唯一，堵住存在性检查的并发窗口
type CouponUsage struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CouponID       int64     `json:"coupon_id" gorm:"index;index:idx_coupon_usage_email,unique;index:idx_coupon_usage_phone,unique;not null"`
	OrderID        int64     `json:"order_id" gorm:"uniqueIndex;not null"`
	UserID         *int64    `json:"user_id"`
	GuestToken     *string   `json:"guest_token" gorm:"type:varchar(64)"`
	Email          *string   `json:"email" gorm:"type:varchar(255);index:idx_coupon_usage_email,unique"`
	Phone          *string   `json:"phone" gorm:"type:varchar(32);index:idx_coupon_usage_phone,unique"`
	DiscountAmount float64   `json:"discount_amount" gorm:"type:decimal(12,2);not null"`
	CreatedAt      time.Time `json:"created_at"`
}

func (CouponUsage) TableName() string { return "coupon_usages" }
