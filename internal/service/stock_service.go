package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/shop-engine/internal/alert"
	"github.com/d60-Lab/shop-engine/internal/model"
	"github.com/d60-Lab/shop-engine/pkg/logger"
)

// StockItem 入库/出库批次中的一行
type StockItem struct {
	ProductID int64   `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" binding:"gte=0"` // 仅入库使用
}

// StockService 库存账本：商品库存计数的唯一写入口，每次变动留一条只追加流水
type StockService struct {
	db     *gorm.DB
	alerts alert.Sink
}

func NewStockService(db *gorm.DB, alerts alert.Sink) *StockService {
	return &StockService{db: db, alerts: alerts}
}

// WeightedAverageCost 入库时的加权平均成本重算
func WeightedAverageCost(oldQty int, oldCost float64, qty int, unitPrice float64) float64 {
	total := oldQty + qty
	if total <= 0 {
		return oldCost
	}
	return (oldCost*float64(oldQty) + unitPrice*float64(qty)) / float64(total)
}

// Reserve 扣减库存为订单行背书，必须运行在调用方事务内，不独立提交
// 条件原子更新（WHERE stock_quantity >= qty）保证并发下不超卖
func (s *StockService) Reserve(ctx context.Context, tx *gorm.DB, productID int64, qty int, orderNo string) error {
	if qty <= 0 {
		return validationError("reserve quantity must be positive")
	}
	res := tx.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, qty).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity - ?", qty),
			"sold_count":     gorm.Expr("sold_count + ?", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var cnt int64
		if err := tx.WithContext(ctx).Model(&model.Product{}).Where("id = ?", productID).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt == 0 {
			return ErrNotFound
		}
		return ErrInsufficientStock
	}
	if err := s.append(ctx, tx, model.StockTxTypeExport, productID, qty, 0,
		model.StockRefOrder, orderNo, "system", "order reservation"); err != nil {
		return err
	}
	s.checkLowStock(ctx, tx, productID)
	return nil
}

// Restore 回补库存，订单取消的补偿动作；同样运行在调用方事务内
func (s *StockService) Restore(ctx context.Context, tx *gorm.DB, productID int64, qty int, orderNo string) error {
	if qty <= 0 {
		return validationError("restore quantity must be positive")
	}
	res := tx.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity + ?", qty),
			"sold_count":     gorm.Expr("sold_count - ?", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.append(ctx, tx, model.StockTxTypeImport, productID, qty, 0,
		model.StockRefOrder, orderNo, "system", "order cancellation restock")
}

// Import 批量入库：逐行追加流水、加库存并重算加权平均成本，整批原子
func (s *StockService) Import(ctx context.Context, items []StockItem, actor, notes string) ([]*model.StockTransaction, error) {
	if len(items) == 0 {
		return nil, validationError("import requires at least one item")
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, validationError(fmt.Sprintf("import quantity must be positive (product %d)", it.ProductID))
		}
		if it.UnitPrice < 0 {
			return nil, validationError(fmt.Sprintf("import unit price must not be negative (product %d)", it.ProductID))
		}
	}

	var created []*model.StockTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			var p model.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, it.ProductID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return ErrNotFound
				}
				return err
			}
			newCost := WeightedAverageCost(p.StockQuantity, p.CostPrice, it.Quantity, it.UnitPrice)
			if err := tx.Model(&p).Updates(map[string]interface{}{
				"stock_quantity": gorm.Expr("stock_quantity + ?", it.Quantity),
				"cost_price":     newCost,
			}).Error; err != nil {
				return err
			}
			row, err := s.appendRow(ctx, tx, model.StockTxTypeImport, it.ProductID, it.Quantity,
				it.UnitPrice, model.StockRefManual, "", actor, notes)
			if err != nil {
				return err
			}
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Export 批量出库：先整批校验库存充足再逐行扣减，杜绝部分出库
func (s *StockService) Export(ctx context.Context, items []StockItem, actor, refType, refID, notes string) ([]*model.StockTransaction, error) {
	if len(items) == 0 {
		return nil, validationError("export requires at least one item")
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, validationError(fmt.Sprintf("export quantity must be positive (product %d)", it.ProductID))
		}
	}
	if refType == "" {
		refType = model.StockRefManual
	}

	// 固定加锁顺序，避免并发批次互相死锁
	sorted := make([]StockItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	var created []*model.StockTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range sorted {
			var p model.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, it.ProductID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return ErrNotFound
				}
				return err
			}
			if p.StockQuantity < it.Quantity {
				return ErrInsufficientStock
			}
		}
		for _, it := range sorted {
			if err := tx.Model(&model.Product{}).Where("id = ?", it.ProductID).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", it.Quantity)).Error; err != nil {
				return err
			}
			row, err := s.appendRow(ctx, tx, model.StockTxTypeExport, it.ProductID, it.Quantity,
				0, refType, refID, actor, notes)
			if err != nil {
				return err
			}
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *StockService) append(ctx context.Context, tx *gorm.DB, txType string, productID int64, qty int, unitPrice float64, refType, refID, actor, notes string) error {
	_, err := s.appendRow(ctx, tx, txType, productID, qty, unitPrice, refType, refID, actor, notes)
	return err
}

func (s *StockService) appendRow(ctx context.Context, tx *gorm.DB, txType string, productID int64, qty int, unitPrice float64, refType, refID, actor, notes string) (*model.StockTransaction, error) {
	row := &model.StockTransaction{
		ID:            uuid.New().String(),
		Type:          txType,
		ProductID:     productID,
		Quantity:      qty,
		UnitPrice:     unitPrice,
		ReferenceType: refType,
		ReferenceID:   refID,
		Actor:         actor,
		Notes:         notes,
		CreatedAt:     time.Now(),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// checkLowStock 扣减后顺带检查告警水位；告警失败不影响业务
func (s *StockService) checkLowStock(ctx context.Context, tx *gorm.DB, productID int64) {
	var p model.Product
	if err := tx.WithContext(ctx).Select("id", "name", "stock_quantity", "min_stock_level").
		First(&p, productID).Error; err != nil {
		logger.Warn("low stock check failed", zap.Int64("product_id", productID), zap.Error(err))
		return
	}
	if p.StockQuantity <= p.MinStockLevel {
		s.alerts.Emit(alert.EventStockBelowThreshold, map[string]interface{}{
			"product_id":      p.ID,
			"product_name":    p.Name,
			"stock_quantity":  p.StockQuantity,
			"min_stock_level": p.MinStockLevel,
		})
	}
}
