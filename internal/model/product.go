package model

import (
	"time"
)

// Product 商品模型（库存计数归库存账本独占维护）
type Product struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	Price         float64   `json:"price" gorm:"type:decimal(12,2);not null"`
	StockQuantity int       `json:"stock_quantity" gorm:"not null;default:0"` // 永不为负
	MinStockLevel int       `json:"min_stock_level" gorm:"not null;default:0"`
	CostPrice     float64   `json:"cost_price" gorm:"type:decimal(12,2);not null;default:0"` // 加权平均成本
	SoldCount     int       `json:"sold_count" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Product) TableName() string { return "products" }
