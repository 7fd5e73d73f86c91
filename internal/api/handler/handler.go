package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/d60-Lab/shop-engine/config"
	"github.com/d60-Lab/shop-engine/internal/catalog"
	"github.com/d60-Lab/shop-engine/internal/model"
	"github.com/d60-Lab/shop-engine/internal/repository"
	"github.com/d60-Lab/shop-engine/internal/service"
	"github.com/d60-Lab/shop-engine/pkg/payment"
)

// Handler HTTP 入口，薄封装：校验入参、解析归属、转发服务层
type Handler struct {
	cfg       *config.Config
	db        *gorm.DB
	orderSvc  *service.OrderService
	couponSvc *service.CouponService
	stockSvc  *service.StockService
	catalog   *catalog.Service
	carts     repository.CartRepository
	products  repository.ProductRepository
	stockTxs  repository.StockTransactionRepository
	gateway   *payment.Gateway
}

func New(cfg *config.Config, db *gorm.DB,
	orderSvc *service.OrderService, couponSvc *service.CouponService, stockSvc *service.StockService,
	catalogSvc *catalog.Service,
	carts repository.CartRepository, products repository.ProductRepository,
	stockTxs repository.StockTransactionRepository, gateway *payment.Gateway) *Handler {
	return &Handler{
		cfg: cfg, db: db,
		orderSvc: orderSvc, couponSvc: couponSvc, stockSvc: stockSvc,
		catalog: catalogSvc, carts: carts, products: products,
		stockTxs: stockTxs, gateway: gateway,
	}
}

// ownerFromRequest 解析归属引用：已登录取 user_id，否则取 X-Guest-Token 头
func ownerFromRequest(c *gin.Context) (model.OwnerRef, bool) {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(int64); ok {
			return model.UserOwner(id), true
		}
	}
	if token := c.GetHeader("X-Guest-Token"); token != "" {
		return model.GuestOwner(token), true
	}
	return model.OwnerRef{}, false
}
