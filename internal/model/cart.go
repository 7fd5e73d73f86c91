package model

import (
	"time"
)

// Cart 购物车（user_id 与 guest_token 二者有且仅有其一）
type Cart struct {
	ID         int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     *int64     `json:"user_id" gorm:"index:idx_cart_user"`
	GuestToken *string    `json:"guest_token" gorm:"type:varchar(64);index:idx_cart_guest"`
	Items      []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Cart) TableName() string { return "carts" }

// CartItem 购物车条目，同一购物车同一商品至多一行
// price_snapshot 为加入购物车时的快照价，下单金额以此为准
type CartItem struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CartID        int64     `json:"cart_id" gorm:"index:idx_cart_item_pair,unique;not null"`
	ProductID     int64     `json:"product_id" gorm:"index:idx_cart_item_pair,unique;not null"`
	Quantity      int       `json:"quantity" gorm:"not null"`
	PriceSnapshot float64   `json:"price_snapshot" gorm:"type:decimal(12,2);not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (CartItem) TableName() string { return "cart_items" }
