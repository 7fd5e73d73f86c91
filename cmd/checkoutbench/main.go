package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/shop-engine/config"
	"github.com/d60-Lab/shop-engine/internal/alert"
	"github.com/d60-Lab/shop-engine/internal/model"
	"github.com/d60-Lab/shop-engine/internal/repository"
	"github.com/d60-Lab/shop-engine/internal/service"
	"github.com/d60-Lab/shop-engine/pkg/database"
	"github.com/d60-Lab/shop-engine/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// 并发下单压测：验证同一商品/同一优惠券在高并发下不超卖、不超核销
func main() {
	cfg := must(config.Load())
	_ = logger.Init(cfg.Server.Mode)
	db := must(database.InitDB(cfg))
	must(0, database.Migrate(db))

	N := envInt("N", 200)        // 并发下单请求数
	STOCK := envInt("STOCK", 50) // 商品初始库存
	LIMIT := envInt("LIMIT", 20) // 优惠券用量上限

	alerts := alert.LogSink{}
	carts := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	coupons := repository.NewCouponRepository(db)
	stockSvc := service.NewStockService(db, alerts)
	couponSvc := service.NewCouponService(db, coupons, alerts)
	orderSvc := service.NewOrderService(db, stockSvc, couponSvc, carts, orders)

	ctx := context.Background()

	product := &model.Product{Name: "bench-item", Price: 10, StockQuantity: STOCK}
	must(0, db.Create(product).Error)
	coupon := &model.Coupon{
		Code: "BENCH" + uuid.New().String()[:8], DiscountType: model.DiscountTypeFixed,
		DiscountValue: 2, UsageType: model.UsageTypeLimited, UsageLimit: &LIMIT, Active: true,
	}
	must(0, coupons.Create(ctx, coupon))

	// 每个请求一个独立访客购物车，买一件
	tokens := make([]string, N)
	for i := 0; i < N; i++ {
		tokens[i] = uuid.New().String()
		owner := model.GuestOwner(tokens[i])
		must(0, carts.AddItem(ctx, owner, product.ID, 1, product.Price))
	}

	var (
		ok, soldOut, exhausted, other atomic.Int64
		mu                            sync.Mutex
		lats                          []time.Duration
	)
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < N; i++ {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			t0 := time.Now()
			_, err := orderSvc.CreateOrder(ctx, model.GuestOwner(token), service.CheckoutInput{
				CouponCode: coupon.Code,
				Email:      token + "@bench.local",
			})
			d := time.Since(t0)
			mu.Lock()
			lats = append(lats, d)
			mu.Unlock()
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				soldOut.Add(1)
			case errors.Is(err, service.ErrCouponExhausted):
				exhausted.Add(1)
			default:
				other.Add(1)
			}
		}(tokens[i])
	}
	wg.Wait()
	elapsed := time.Since(start)

	var p model.Product
	must(0, db.First(&p, product.ID).Error)
	var c model.Coupon
	must(0, db.First(&c, coupon.ID).Error)

	sort.Slice(lats, func(i, j int) bool { return lats[i] < lats[j] })
	pct := func(q float64) time.Duration { return lats[int(float64(len(lats)-1)*q)] }

	fmt.Printf("requests=%d elapsed=%v qps=%.1f\n", N, elapsed, float64(N)/elapsed.Seconds())
	fmt.Printf("ok=%d sold_out=%d coupon_exhausted=%d other=%d\n",
		ok.Load(), soldOut.Load(), exhausted.Load(), other.Load())
	fmt.Printf("p50=%v p95=%v p99=%v\n", pct(0.50), pct(0.95), pct(0.99))
	fmt.Printf("final stock=%d (start %d, sold %d) coupon usage=%d (limit %d)\n",
		p.StockQuantity, STOCK, ok.Load(), c.UsageCount, LIMIT)

	if p.StockQuantity < 0 || p.StockQuantity != STOCK-int(ok.Load()) {
		fmt.Println("OVERSELL DETECTED")
	}
	if c.UsageCount > LIMIT {
		fmt.Println("COUPON OVER-REDEMPTION DETECTED")
	}
}
