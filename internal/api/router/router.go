package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/shop-engine/config"
	"github.com/d60-Lab/shop-engine/internal/api/handler"
	"github.com/d60-Lab/shop-engine/pkg/middleware"
)

// Setup 组装路由与中间件
func Setup(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware("shop-engine"))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	v1 := r.Group("/api/v1")
	v1.Use(middleware.OptionalJWT(cfg.JWT.Secret))
	{
		v1.POST("/auth/login", h.Login)

		v1.GET("/products", h.ListProducts)
		v1.GET("/products/:id", h.GetProduct)

		v1.GET("/cart", h.GetCart)
		v1.POST("/cart/items", h.AddCartItem)
		v1.DELETE("/cart/items/:product_id", h.RemoveCartItem)

		v1.POST("/coupons/validate", h.ValidateCoupon)

		// 下单/取消限流：瞬时锁竞争由客户端在此边界重试
		checkout := v1.Group("")
		checkout.Use(middleware.RateLimit(rate.Limit(10), 20))
		{
			checkout.POST("/orders", h.CreateOrder)
			checkout.POST("/orders/:id/cancel", h.CancelOrder)
		}
		v1.GET("/orders", h.ListOrders)
		v1.GET("/orders/:id", h.GetOrder)

		v1.GET("/payment/callback", h.PaymentCallback)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.JWTAuth(cfg.JWT.Secret), middleware.RequireAdmin())
	{
		admin.POST("/products", h.CreateProduct)
		admin.POST("/coupons", h.CreateCoupon)
		admin.PUT("/orders/:id/status", h.UpdateOrderStatus)
		admin.POST("/stock/import", h.ImportStock)
		admin.POST("/stock/export", h.ExportStock)
		admin.GET("/stock/transactions/:product_id", h.ListStockTransactions)
		admin.GET("/stock/orders/:order_no", h.OrderLedger)
		admin.GET("/stock/low", h.LowStock)
	}

	return r
}
