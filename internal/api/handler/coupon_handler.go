package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/shop-engine/internal/model"
	"github.com/d60-Lab/shop-engine/internal/repository"
	"github.com/d60-Lab/shop-engine/pkg/response"
)

type validateCouponRequest struct {
	Code     string  `json:"code" binding:"required"`
	Subtotal float64 `json:"subtotal" binding:"gte=0"`
	Email    string  `json:"email" binding:"omitempty,email"`
	Phone    string  `json:"phone"`
}

// ValidateCoupon 下单前的券预检（只读，不占用量）
// @Summary 校验优惠券
// @Tags 优惠券
// @Accept json
// @Produce json
// @Param request body validateCouponRequest true "校验信息"
// @Success 200 {object} response.Response{data=service.CouponCheck}
// @Router /api/v1/coupons/validate [post]
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req validateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	check, err := h.couponSvc.Validate(c.Request.Context(), req.Code, req.Subtotal, req.Email, req.Phone)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, check)
}

type createCouponRequest struct {
	Code          string     `json:"code" binding:"required"`
	DiscountType  string     `json:"discount_type" binding:"required,oneof=PERCENTAGE FIXED"`
	DiscountValue float64    `json:"discount_value" binding:"required,gt=0"`
	MaxDiscount   float64    `json:"max_discount" binding:"gte=0"`
	MinOrderValue float64    `json:"min_order_value" binding:"gte=0"`
	UsageType     string     `json:"usage_type" binding:"required,oneof=SINGLE_USE LIMITED_USE"`
	UsageLimit    *int       `json:"usage_limit"`
	ValidFrom     *time.Time `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until"`
}

// CreateCoupon 管理端创建优惠券
// @Summary 创建优惠券
// @Tags 优惠券
// @Accept json
// @Produce json
// @Param request body createCouponRequest true "券信息"
// @Success 200 {object} response.Response{data=model.Coupon}
// @Router /api/v1/admin/coupons [post]
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req createCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	coupon := &model.Coupon{
		Code:          req.Code,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MaxDiscount:   req.MaxDiscount,
		MinOrderValue: req.MinOrderValue,
		UsageType:     req.UsageType,
		UsageLimit:    req.UsageLimit,
		ValidFrom:     req.ValidFrom,
		ValidUntil:    req.ValidUntil,
		Active:        true,
	}
	if err := repository.NewCouponRepository(h.db).Create(c.Request.Context(), coupon); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, coupon)
}
