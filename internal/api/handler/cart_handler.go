package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/shop-engine/internal/service"
	"github.com/d60-Lab/shop-engine/pkg/response"
)

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// AddCartItem 加购：以当前目录价作为快照价
// @Summary 加入购物车
// @Tags 购物车
// @Accept json
// @Produce json
// @Param request body addCartItemRequest true "加购信息"
// @Success 200 {object} response.Response
// @Router /api/v1/cart/items [post]
func (h *Handler) AddCartItem(c *gin.Context) {
	owner, ok := ownerFromRequest(c)
	if !ok {
		response.BadRequest(c, "missing user identity or guest token")
		return
	}
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	snap, err := h.catalog.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if snap == nil {
		response.EngineError(c, service.ErrNotFound)
		return
	}
	if err := h.carts.AddItem(c.Request.Context(), owner, req.ProductID, req.Quantity, snap.Price); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// RemoveCartItem 移除购物车条目
// @Summary 移除购物车条目
// @Tags 购物车
// @Param product_id path int true "商品ID"
// @Success 200 {object} response.Response
// @Router /api/v1/cart/items/{product_id} [delete]
func (h *Handler) RemoveCartItem(c *gin.Context) {
	owner, ok := ownerFromRequest(c)
	if !ok {
		response.BadRequest(c, "missing user identity or guest token")
		return
	}
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid product id")
		return
	}
	if err := h.carts.RemoveItem(c.Request.Context(), owner, productID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetCart 查看购物车
// @Summary 查看购物车
// @Tags 购物车
// @Success 200 {object} response.Response{data=model.Cart}
// @Router /api/v1/cart [get]
func (h *Handler) GetCart(c *gin.Context) {
	owner, ok := ownerFromRequest(c)
	if !ok {
		response.BadRequest(c, "missing user identity or guest token")
		return
	}
	cart, err := h.carts.GetByOwner(c.Request.Context(), owner)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, cart)
}
