package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/shop-engine/internal/alert"
	"github.com/d60-Lab/shop-engine/internal/model"
	"github.com/d60-Lab/shop-engine/internal/repository"
)

// 校验失败原因，按规则顺序返回第一条命中的
const (
	ReasonNotFound      = "NOT_FOUND"
	ReasonInactive      = "INACTIVE"
	ReasonOutOfWindow   = "OUT_OF_WINDOW"
	ReasonExhausted     = "EXHAUSTED"
	ReasonMinOrderValue = "MIN_ORDER_NOT_MET"
	ReasonAlreadyUsed   = "ALREADY_USED"
)

// CouponCheck 券校验结果（只读预览，不保证核销时仍然成立）
type CouponCheck struct {
	Valid    bool          `json:"valid"`
	Discount float64       `json:"discount"`
	Reason   string        `json:"reason,omitempty"`
	Coupon   *model.Coupon `json:"-"`
}

// Identity 核销主体：同一 email 或同一 phone 对同一张券至多核销一次
type Identity struct {
	UserID     *int64
	GuestToken *string
	Email      string
	Phone      string
}

// CouponService 券核销闸门：独占锁下维护 usage_count 不越界
type CouponService struct {
	db      *gorm.DB
	coupons repository.CouponRepository
	alerts  alert.Sink
}

func NewCouponService(db *gorm.DB, coupons repository.CouponRepository, alerts alert.Sink) *CouponService {
	return &CouponService{db: db, coupons: coupons, alerts: alerts}
}

// Discount 计算折扣额：百分比取 min(subtotal*value/100, max_discount)，
// 固定额取 min(value, subtotal)；结果恒不超过小计，杜绝负总额
func Discount(c *model.Coupon, subtotal float64) float64 {
	var d float64
	switch c.DiscountType {
	case model.DiscountTypePercentage:
		d = subtotal * c.DiscountValue / 100
		if c.MaxDiscount > 0 && d > c.MaxDiscount {
			d = c.MaxDiscount
		}
	case model.DiscountTypeFixed:
		d = c.DiscountValue
	}
	if d > subtotal {
		d = subtotal
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Validate 只读校验，供下单前预览；规则顺序固定：
// 存在 → 启用 → 有效期 → 用量上限 → 最低消费 → 身份未用过
func (s *CouponService) Validate(ctx context.Context, code string, subtotal float64, email, phone string) (*CouponCheck, error) {
	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return &CouponCheck{Reason: ReasonNotFound}, nil
	}
	if !coupon.Active {
		return &CouponCheck{Reason: ReasonInactive}, nil
	}
	if !coupon.WithinWindow(time.Now()) {
		return &CouponCheck{Reason: ReasonOutOfWindow}, nil
	}
	if limit := coupon.EffectiveLimit(); limit > 0 && coupon.UsageCount >= limit {
		return &CouponCheck{Reason: ReasonExhausted}, nil
	}
	if subtotal < coupon.MinOrderValue {
		return &CouponCheck{Reason: ReasonMinOrderValue}, nil
	}
	used, err := s.coupons.HasIdentityUsed(ctx, coupon.ID, email, phone)
	if err != nil {
		return nil, err
	}
	if used {
		return &CouponCheck{Reason: ReasonAlreadyUsed}, nil
	}
	return &CouponCheck{Valid: true, Discount: Discount(coupon, subtotal), Coupon: coupon}, nil
}

// ValidateInTx 同 Validate，但读取作用在调用方事务内，供下单路径使用
func (s *CouponService) ValidateInTx(ctx context.Context, tx *gorm.DB, code string, subtotal float64, email, phone string) (*CouponCheck, error) {
	scoped := &CouponService{db: tx, coupons: repository.NewCouponRepository(tx), alerts: s.alerts}
	return scoped.Validate(ctx, code, subtotal, email, phone)
}

// Redeem 核销一次用量，必须运行在调用方事务内
// 先 SELECT ... FOR UPDATE 锁住券行，再在锁内复核上限：
// Validate 与 Redeem 之间不原子，不复核就会被并发下单打穿上限
func (s *CouponService) Redeem(ctx context.Context, tx *gorm.DB, couponID, orderID int64, discount float64, identity Identity) (*model.CouponUsage, error) {
	var coupon model.Coupon
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&coupon, couponID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponInvalid
		}
		return nil, err
	}
	if !coupon.Active || !coupon.WithinWindow(time.Now()) {
		return nil, ErrCouponInvalid
	}
	limit := coupon.EffectiveLimit()
	if limit > 0 && coupon.UsageCount >= limit {
		return nil, ErrCouponExhausted
	}

	if err := tx.WithContext(ctx).Model(&coupon).
		Update("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
		return nil, err
	}

	// 兜底自检：锁内复核后仍越界说明加锁纪律被破坏，报给运维而非用户
	var after model.Coupon
	if err := tx.WithContext(ctx).Select("usage_count").First(&after, couponID).Error; err != nil {
		return nil, err
	}
	if limit > 0 && after.UsageCount > limit {
		s.alerts.Emit(alert.EventCouponOverLimit, map[string]interface{}{
			"coupon_id":   coupon.ID,
			"coupon_code": coupon.Code,
			"usage_count": after.UsageCount,
			"usage_limit": limit,
			"order_id":    orderID,
		})
	}

	usage := &model.CouponUsage{
		CouponID:       coupon.ID,
		OrderID:        orderID,
		UserID:         identity.UserID,
		GuestToken:     identity.GuestToken,
		Email:          nilIfEmpty(identity.Email),
		Phone:          nilIfEmpty(identity.Phone),
		DiscountAmount: discount,
		CreatedAt:      time.Now(),
	}
	if err := tx.WithContext(ctx).Create(usage).Error; err != nil {
		// (coupon_id, email) / (coupon_id, phone) 唯一索引兜住存在性检查的并发窗口
		if isUniqueViolation(err) {
			return nil, ErrCouponAlreadyUsed
		}
		return nil, err
	}

	s.alerts.Emit(alert.EventCouponApplied, map[string]interface{}{
		"coupon_id":   coupon.ID,
		"coupon_code": coupon.Code,
		"order_id":    orderID,
		"discount":    discount,
	})
	return usage, nil
}

// Release 回退订单占用的券用量，订单取消的补偿动作；无核销记录时幂等为 no-op
func (s *CouponService) Release(ctx context.Context, tx *gorm.DB, orderID int64) error {
	var usage model.CouponUsage
	err := tx.WithContext(ctx).Where("order_id = ?", orderID).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Model(&model.Coupon{}).
		Where("id = ? AND usage_count > 0", usage.CouponID).
		Update("usage_count", gorm.Expr("usage_count - 1")).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Delete(&usage).Error; err != nil {
		return err
	}
	s.alerts.Emit(alert.EventCouponRestored, map[string]interface{}{
		"coupon_id": usage.CouponID,
		"order_id":  orderID,
	})
	return nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isUniqueViolation 识别唯一键冲突（postgres 23505 / sqlite UNIQUE constraint）
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
