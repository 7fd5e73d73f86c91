package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/shop-engine/internal/model"
)

// StockTransactionRepository 库存流水查询接口；写入只发生在库存账本事务内
type StockTransactionRepository interface {
	ListByProduct(ctx context.Context, productID int64, offset, limit int) ([]*model.StockTransaction, error)
	ListByReference(ctx context.Context, refType, refID string) ([]*model.StockTransaction, error)
	Count(ctx context.Context, txType string) (int64, error)
}

type stockTransactionRepository struct {
	db *gorm.DB
}

func NewStockTransactionRepository(db *gorm.DB) StockTransactionRepository {
	return &stockTransactionRepository{db: db}
}

func (r *stockTransactionRepository) ListByProduct(ctx context.Context, productID int64, offset, limit int) ([]*model.StockTransaction, error) {
	var res []*model.StockTransaction
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *stockTransactionRepository) ListByReference(ctx context.Context, refType, refID string) ([]*model.StockTransaction, error) {
	var res []*model.StockTransaction
	err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at").
		Find(&res).Error
	return res, err
}

func (r *stockTransactionRepository) Count(ctx context.Context, txType string) (int64, error) {
	var cnt int64
	q := r.db.WithContext(ctx).Model(&model.StockTransaction{})
	if txType != "" {
		q = q.Where("type = ?", txType)
	}
	err := q.Count(&cnt).Error
	return cnt, err
}
