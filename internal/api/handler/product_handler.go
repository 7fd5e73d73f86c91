package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/shop-engine/internal/model"
	"github.com/d60-Lab/shop-engine/internal/service"
	"github.com/d60-Lab/shop-engine/pkg/response"
)

// GetProduct 商品展示快照（经 redis 缓存；下单金额不从这里取价）
// @Summary 商品详情
// @Tags 商品
// @Param id path int true "商品ID"
// @Success 200 {object} response.Response{data=catalog.ProductSnapshot}
// @Router /api/v1/products/{id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid product id")
		return
	}
	snap, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if snap == nil {
		response.EngineError(c, service.ErrNotFound)
		return
	}
	response.Success(c, snap)
}

// ListProducts 商品分页列表
// @Summary 商品列表
// @Tags 商品
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response
// @Router /api/v1/products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	list, err := h.products.List(c.Request.Context(), (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

type createProductRequest struct {
	Name          string  `json:"name" binding:"required"`
	Price         float64 `json:"price" binding:"required,gt=0"`
	MinStockLevel int     `json:"min_stock_level" binding:"gte=0"`
}

// CreateProduct 管理端建品；初始库存走入库接口以留流水
// @Summary 创建商品
// @Tags 商品
// @Accept json
// @Produce json
// @Param request body createProductRequest true "商品信息"
// @Success 200 {object} response.Response{data=model.Product}
// @Router /api/v1/admin/products [post]
func (h *Handler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p := &model.Product{Name: req.Name, Price: req.Price, MinStockLevel: req.MinStockLevel}
	if err := h.products.Create(c.Request.Context(), p); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, p)
}
