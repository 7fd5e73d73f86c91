package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/shop-engine/internal/alert"
	"github.com/d60-Lab/shop-engine/internal/model"
	"github.com/d60-Lab/shop-engine/internal/repository"
)

var testDBSeq atomic.Int64

// setupTestDB 内存 sqlite，每个测试独立库名；单连接让并发事务串行化，测试结果可复现
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared&_busy_timeout=5000", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&model.User{}, &model.Product{}, &model.StockTransaction{},
		&model.Cart{}, &model.CartItem{},
		&model.Order{}, &model.OrderItem{},
		&model.Coupon{}, &model.CouponUsage{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// recordingSink 捕获告警事件供断言
type recordingSink struct {
	mu     sync.Mutex
	events []string
	fields []map[string]interface{}
}

func (s *recordingSink) Emit(event string, fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.fields = append(s.fields, fields)
}

func (s *recordingSink) has(event string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e == event {
			return true
		}
	}
	return false
}

var _ alert.Sink = (*recordingSink)(nil)

func newServices(t *testing.T, db *gorm.DB) (*StockService, *CouponService, *OrderService, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	stock := NewStockService(db, sink)
	coupons := NewCouponService(db, repository.NewCouponRepository(db), sink)
	orders := NewOrderService(db, stock, coupons, repository.NewCartRepository(db), repository.NewOrderRepository(db))
	return stock, coupons, orders, sink
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: price, StockQuantity: stock, CostPrice: 0}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func seedCoupon(t *testing.T, db *gorm.DB, c *model.Coupon) *model.Coupon {
	t.Helper()
	if c.DiscountType == "" {
		c.DiscountType = model.DiscountTypeFixed
	}
	if c.UsageType == "" {
		c.UsageType = model.UsageTypeLimited
	}
	c.Active = true
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return c
}

func addToCart(t *testing.T, db *gorm.DB, owner model.OwnerRef, p *model.Product, qty int) {
	t.Helper()
	if err := repository.NewCartRepository(db).AddItem(
		context.Background(), owner, p.ID, qty, p.Price); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
}
