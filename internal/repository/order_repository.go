package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/shop-engine/internal/model"
)

// OrderRepository 订单查询接口；订单的创建与状态迁移在订单服务事务内完成
type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Order, error)

	// GetByOwner 按归属者取订单，不属于该归属者视同不存在
	GetByOwner(ctx context.Context, id int64, owner model.OwnerRef) (*model.Order, error)

	ListByOwner(ctx context.Context, owner model.OwnerRef, offset, limit int) ([]*model.Order, error)
	Count(ctx context.Context, status string) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepository{db: db} }

func ownerScope(q *gorm.DB, owner model.OwnerRef) *gorm.DB {
	if owner.UserID != nil {
		return q.Where("user_id = ?", *owner.UserID)
	}
	return q.Where("guest_token = ?", *owner.GuestToken)
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByOwner(ctx context.Context, id int64, owner model.OwnerRef) (*model.Order, error) {
	var order model.Order
	err := ownerScope(r.db.WithContext(ctx), owner).Preload("Items").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByOwner(ctx context.Context, owner model.OwnerRef, offset, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := ownerScope(r.db.WithContext(ctx), owner).
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Count(ctx context.Context, status string) (int64, error) {
	var cnt int64
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&cnt).Error
	return cnt, err
}
