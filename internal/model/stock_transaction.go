package model

import (
	"time"
)

// 库存流水类型
const (
	StockTxTypeImport = "IMPORT"
	StockTxTypeExport = "EXPORT"
)

// 库存流水来源
const (
	StockRefManual = "MANUAL"
	StockRefOrder  = "ORDER"
)

// StockTransaction 库存流水（只追加，不更新不删除）
type StockTransaction struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Type          string    `json:"type" gorm:"type:varchar(16);index:idx_stock_tx_type;not null"`
	ProductID     int64     `json:"product_id" gorm:"index:idx_stock_tx_product;not null"`
	Quantity      int       `json:"quantity" gorm:"not null"` // 恒为正
	UnitPrice     float64   `json:"unit_price" gorm:"type:decimal(12,2);not null;default:0"` // 仅入库有意义
	ReferenceType string    `json:"reference_type" gorm:"type:varchar(16);not null"`
	ReferenceID   string    `json:"reference_id" gorm:"type:varchar(64);index:idx_stock_tx_ref"`
	Actor         string    `json:"actor" gorm:"type:varchar(64)"`
	Notes         string    `json:"notes" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
}

func (StockTransaction) TableName() string { return "stock_transactions" }
