package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/shop-engine/config"
	"github.com/d60-Lab/shop-engine/internal/alert"
	"github.com/d60-Lab/shop-engine/internal/api/handler"
	"github.com/d60-Lab/shop-engine/internal/api/router"
	"github.com/d60-Lab/shop-engine/internal/catalog"
	"github.com/d60-Lab/shop-engine/internal/repository"
	"github.com/d60-Lab/shop-engine/internal/service"
	"github.com/d60-Lab/shop-engine/pkg/database"
	"github.com/d60-Lab/shop-engine/pkg/logger"
	"github.com/d60-Lab/shop-engine/pkg/payment"
	"github.com/d60-Lab/shop-engine/pkg/tracing"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())
	if err := logger.Init(cfg.Server.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	shutdownTracing := must(tracing.Init(ctx, "shop-engine", cfg.Trace.Endpoint))
	defer func() { _ = shutdownTracing(ctx) }()

	db := must(database.InitDB(cfg))
	if err := database.Migrate(db); err != nil {
		logger.Error("migrate failed", zap.Error(err))
		panic(err)
	}

	alerts := must(alert.NewSentrySink(cfg.Sentry.DSN))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// repositories & services
	carts := repository.NewCartRepository(db)
	products := repository.NewProductRepository(db)
	orders := repository.NewOrderRepository(db)
	coupons := repository.NewCouponRepository(db)
	stockTxs := repository.NewStockTransactionRepository(db)

	stockSvc := service.NewStockService(db, alerts)
	couponSvc := service.NewCouponService(db, coupons, alerts)
	orderSvc := service.NewOrderService(db, stockSvc, couponSvc, carts, orders)
	catalogSvc := catalog.NewService(db, rdb, 30*time.Second)
	gateway := payment.NewGateway(cfg.Payment.HashSecret, cfg.Payment.ReturnURL)

	h := handler.New(cfg, db, orderSvc, couponSvc, stockSvc, catalogSvc,
		carts, products, stockTxs, gateway)
	r := router.Setup(cfg, h)

	logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
