package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/shop-engine/internal/model"
)

// ProductSnapshot carries the display fields needed by catalog pages.
// Order totals never read from here: they use the cart's price snapshots.
type ProductSnapshot struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
}

// Service serves catalog reads through a cache-aside redis layer.
type Service struct {
	db    *gorm.DB
	cache *redis.Client
	ttl   time.Duration
}

func NewService(db *gorm.DB, cache *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{db: db, cache: cache, ttl: ttl}
}

func snapshotKey(id int64) string { return fmt.Sprintf("product:snapshot:%d", id) }

// GetProduct returns the display snapshot for one product, cache first.
func (s *Service) GetProduct(ctx context.Context, id int64) (*ProductSnapshot, error) {
	key := snapshotKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var snap ProductSnapshot
			if uErr := json.Unmarshal(data, &snap); uErr == nil {
				return &snap, nil
			}
		}
	}

	var p model.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	snap := &ProductSnapshot{ID: p.ID, Name: p.Name, Price: p.Price, StockQuantity: p.StockQuantity}
	if s.cache != nil {
		if payload, err := json.Marshal(snap); err == nil {
			_ = s.cache.Set(ctx, key, payload, s.ttl).Err()
		}
	}
	return snap, nil
}

// Invalidate drops the cached snapshot after a product write.
func (s *Service) Invalidate(ctx context.Context, id int64) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, snapshotKey(id)).Err()
	}
}
