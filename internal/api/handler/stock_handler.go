package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/shop-engine/internal/model"
	"github.com/d60-Lab/shop-engine/internal/service"
	"github.com/d60-Lab/shop-engine/pkg/response"
)

type importStockRequest struct {
	Items []service.StockItem `json:"items" binding:"required,min=1,dive"`
	Notes string              `json:"notes"`
}

// ImportStock 批量入库，重算加权平均成本
// @Summary 商品入库
// @Tags 库存
// @Accept json
// @Produce json
// @Param request body importStockRequest true "入库批次"
// @Success 200 {object} response.Response{data=[]model.StockTransaction}
// @Router /api/v1/admin/stock/import [post]
func (h *Handler) ImportStock(c *gin.Context) {
	var req importStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	rows, err := h.stockSvc.Import(c.Request.Context(), req.Items, actorFromContext(c), req.Notes)
	if err != nil {
		response.EngineError(c, err)
		return
	}
	response.Success(c, rows)
}

type exportStockRequest struct {
	Items   []service.StockItem `json:"items" binding:"required,min=1,dive"`
	RefType string              `json:"reference_type"`
	RefID   string              `json:"reference_id"`
	Notes   string              `json:"notes"`
}

// ExportStock 批量出库，先整批校验再扣减
// @Summary 商品出库
// @Tags 库存
// @Accept json
// @Produce json
// @Param request body exportStockRequest true "出库批次"
// @Success 200 {object} response.Response{data=[]model.StockTransaction}
// @Failure 409 {object} response.Response
// @Router /api/v1/admin/stock/export [post]
func (h *Handler) ExportStock(c *gin.Context) {
	var req exportStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	rows, err := h.stockSvc.Export(c.Request.Context(), req.Items, actorFromContext(c), req.RefType, req.RefID, req.Notes)
	if err != nil {
		response.EngineError(c, err)
		return
	}
	response.Success(c, rows)
}

// ListStockTransactions 商品维度的流水账
// @Summary 库存流水
// @Tags 库存
// @Param product_id path int true "商品ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response
// @Router /api/v1/admin/stock/transactions/{product_id} [get]
func (h *Handler) ListStockTransactions(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid product id")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	rows, err := h.stockTxs.ListByProduct(c.Request.Context(), productID, (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": rows})
}

// OrderLedger 某订单触发的全部库存流水（下单预留与取消回补）
// @Summary 订单库存流水
// @Tags 库存
// @Param order_no path string true "订单号"
// @Success 200 {object} response.Response{data=[]model.StockTransaction}
// @Router /api/v1/admin/stock/orders/{order_no} [get]
func (h *Handler) OrderLedger(c *gin.Context) {
	orderNo := c.Param("order_no")
	if orderNo == "" {
		response.BadRequest(c, "missing order no")
		return
	}
	rows, err := h.stockTxs.ListByReference(c.Request.Context(), model.StockRefOrder, orderNo)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, rows)
}

// LowStock 库存不高于告警水位的商品清单
// @Summary 低库存报表
// @Tags 库存
// @Success 200 {object} response.Response{data=[]model.Product}
// @Router /api/v1/admin/stock/low [get]
func (h *Handler) LowStock(c *gin.Context) {
	products, err := h.products.ListLowStock(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, products)
}

// actorFromContext 管理端操作人标识，未登录按 system 记账
func actorFromContext(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(int64); ok {
			return "admin:" + strconv.FormatInt(id, 10)
		}
	}
	return "system"
}
