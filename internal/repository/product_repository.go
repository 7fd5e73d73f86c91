package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/shop-engine/internal/model"
)

// ProductRepository 商品仓储接口（只读查询；库存字段的写入走库存账本）
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	List(ctx context.Context, offset, limit int) ([]*model.Product, error)

	// ListLowStock 列出库存不高于告警水位的商品
	ListLowStock(ctx context.Context) ([]*model.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepository{db: db} }

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context, offset, limit int) ([]*model.Product, error) {
	var res []*model.Product
	err := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (r *productRepository) ListLowStock(ctx context.Context) ([]*model.Product, error) {
	var res []*model.Product
	err := r.db.WithContext(ctx).
		Where("stock_quantity <= min_stock_level").
		Order("stock_quantity").
		Find(&res).Error
	return res, err
}
