package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/shop-engine/internal/model"
)

// CouponRepository 优惠券仓储接口
type CouponRepository interface {
	Create(ctx context.Context, coupon *model.Coupon) error

	// GetByCode 按券码查询（大小写不敏感，统一转大写），不存在返回 (nil, nil)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)

	// HasIdentityUsed 判断 email 或 phone 是否已核销过该券
	HasIdentityUsed(ctx context.Context, couponID int64, email, phone string) (bool, error)

	// GetUsageByOrder 取订单对应的核销记录，不存在返回 (nil, nil)
	GetUsageByOrder(ctx context.Context, orderID int64) (*model.CouponUsage, error)
}

type couponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository { return &couponRepository{db: db} }

func (r *couponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	coupon.Code = strings.ToUpper(coupon.Code)
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) HasIdentityUsed(ctx context.Context, couponID int64, email, phone string) (bool, error) {
	if email == "" && phone == "" {
		return false, nil
	}
	q := r.db.WithContext(ctx).Model(&model.CouponUsage{}).Where("coupon_id = ?", couponID)
	switch {
	case email != "" && phone != "":
		q = q.Where("email = ? OR phone = ?", email, phone)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		q = q.Where("phone = ?", phone)
	}
	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *couponRepository) GetUsageByOrder(ctx context.Context, orderID int64) (*model.CouponUsage, error) {
	var usage model.CouponUsage
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &usage, nil
}
