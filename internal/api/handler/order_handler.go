package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/shop-engine/internal/model"
	"github.com/d60-Lab/shop-engine/internal/service"
	"github.com/d60-Lab/shop-engine/pkg/logger"
	"github.com/d60-Lab/shop-engine/pkg/response"
)

// CreateOrder 下单：购物车转订单
// @Summary 下单
// @Tags 订单
// @Accept json
// @Produce json
// @Param request body service.CheckoutInput true "下单信息"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/orders [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	owner, ok := ownerFromRequest(c)
	if !ok {
		response.BadRequest(c, "missing user identity or guest token")
		return
	}
	var input service.CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := h.orderSvc.CreateOrder(c.Request.Context(), owner, input)
	if err != nil {
		response.EngineError(c, err)
		return
	}
	response.Success(c, order)
}

// CancelOrder 取消订单：回补库存并回退券用量
// @Summary 取消订单
// @Tags 订单
// @Param id path int true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/orders/{id}/cancel [post]
func (h *Handler) CancelOrder(c *gin.Context) {
	owner, ok := ownerFromRequest(c)
	if !ok {
		response.BadRequest(c, "missing user identity or guest token")
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	order, err := h.orderSvc.CancelOrder(c.Request.Context(), id, owner)
	if err != nil {
		response.EngineError(c, err)
		return
	}
	response.Success(c, order)
}

// GetOrder 查询订单
// @Summary 查询订单
// @Tags 订单
// @Param id path int true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Router /api/v1/orders/{id} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	owner, ok := ownerFromRequest(c)
	if !ok {
		response.BadRequest(c, "missing user identity or guest token")
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	order, err := h.orderSvc.GetOrder(c.Request.Context(), id, owner)
	if err != nil {
		response.EngineError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 分页查询本人订单
// @Summary 订单列表
// @Tags 订单
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response
// @Router /api/v1/orders [get]
func (h *Handler) ListOrders(c *gin.Context) {
	owner, ok := ownerFromRequest(c)
	if !ok {
		response.BadRequest(c, "missing user identity or guest token")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	list, err := h.orderSvc.ListOrders(c.Request.Context(), owner, page, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus 管理端状态迁移（不触达库存与券）
// @Summary 更新订单状态
// @Tags 订单
// @Param id path int true "订单ID"
// @Param request body updateStatusRequest true "目标状态"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 409 {object} response.Response
// @Router /api/v1/admin/orders/{id}/status [put]
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := h.orderSvc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.EngineError(c, err)
		return
	}
	response.Success(c, order)
}

// PaymentCallback 支付网关回调：验签后翻支付状态位
// @Summary 支付回调
// @Tags 订单
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/payment/callback [get]
func (h *Handler) PaymentCallback(c *gin.Context) {
	params := c.Request.URL.Query()
	if !h.gateway.VerifyCallback(params) {
		logger.Warn("payment callback signature mismatch", zap.String("query", c.Request.URL.RawQuery))
		response.BadRequest(c, "invalid signature")
		return
	}
	orderID, err := strconv.ParseInt(params.Get("order_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid order id")
		return
	}
	status := model.PaymentStatusFailed
	if params.Get("result") == "success" {
		status = model.PaymentStatusPaid
	}
	order, err := h.orderSvc.UpdatePaymentStatus(c.Request.Context(), orderID, status)
	if err != nil {
		response.EngineError(c, err)
		return
	}
	response.Success(c, order)
}
