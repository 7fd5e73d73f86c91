package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/shop-engine/internal/service"
)

// Response 统一响应结构
type Response struct {
	Code    string      `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: "OK", Data: data})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: service.CodeValidation, Message: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{Code: "UNAUTHORIZED", Message: msg})
}

func InternalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, Response{Code: "INTERNAL", Message: err.Error()})
}

// httpStatus 引擎错误码到 HTTP 状态码的映射
var httpStatus = map[string]int{
	service.CodeValidation:        http.StatusBadRequest,
	service.CodeInsufficientStock: http.StatusConflict,
	service.CodeCouponInvalid:     http.StatusBadRequest,
	service.CodeCouponExhausted:   http.StatusConflict,
	service.CodeCouponAlreadyUsed: http.StatusConflict,
	service.CodeEmptyCart:         http.StatusBadRequest,
	service.CodeNotFound:          http.StatusNotFound,
	service.CodeInvalidTransition: http.StatusConflict,
}

// EngineError 将引擎错误按错误码落到对应 HTTP 状态；未知错误按 500 处理
func EngineError(c *gin.Context, err error) {
	var e *service.Error
	if errors.As(err, &e) {
		status, ok := httpStatus[e.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.JSON(status, Response{Code: e.Code, Message: e.Message})
		return
	}
	InternalError(c, err)
}
