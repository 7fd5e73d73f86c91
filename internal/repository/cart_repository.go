package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/shop-engine/internal/model"
)

// CartRepository 购物车仓储接口
type CartRepository interface {
	// GetByOwner 取归属者的购物车（含条目），不存在返回 (nil, nil)
	GetByOwner(ctx context.Context, owner model.OwnerRef) (*model.Cart, error)

	// AddItem 添加条目；同一商品已存在则累加数量并刷新快照价
	AddItem(ctx context.Context, owner model.OwnerRef, productID int64, qty int, priceSnapshot float64) error

	// RemoveItem 移除条目
	RemoveItem(ctx context.Context, owner model.OwnerRef, productID int64) error

	// ClearItems 清空购物车条目（购物车行本身保留）
	ClearItems(ctx context.Context, cartID int64) error

	// WithTx 返回绑定到事务的仓储
	WithTx(tx *gorm.DB) CartRepository
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository { return &cartRepository{db: db} }

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository { return &cartRepository{db: tx} }

func (r *cartRepository) ownerScope(q *gorm.DB, owner model.OwnerRef) *gorm.DB {
	if owner.UserID != nil {
		return q.Where("user_id = ?", *owner.UserID)
	}
	return q.Where("guest_token = ?", *owner.GuestToken)
}

func (r *cartRepository) GetByOwner(ctx context.Context, owner model.OwnerRef) (*model.Cart, error) {
	var cart model.Cart
	err := r.ownerScope(r.db.WithContext(ctx), owner).Preload("Items").First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) AddItem(ctx context.Context, owner model.OwnerRef, productID int64, qty int, priceSnapshot float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart model.Cart
		err := r.ownerScope(tx, owner).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cart = model.Cart{UserID: owner.UserID, GuestToken: owner.GuestToken}
			if err := tx.Create(&cart).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		item := model.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty, PriceSnapshot: priceSnapshot}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":       gorm.Expr("quantity + ?", qty),
				"price_snapshot": priceSnapshot,
			}),
		}).Create(&item).Error
	})
}

func (r *cartRepository) RemoveItem(ctx context.Context, owner model.OwnerRef, productID int64) error {
	cart, err := r.GetByOwner(ctx, owner)
	if err != nil || cart == nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cart.ID, productID).
		Delete(&model.CartItem{}).Error
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error
}
