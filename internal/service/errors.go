package service

// 引擎错误码，调用方按码分支而非匹配消息文本
const (
	CodeValidation        = "VALIDATION"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeCouponInvalid     = "COUPON_INVALID"
	CodeCouponExhausted   = "COUPON_EXHAUSTED"
	CodeCouponAlreadyUsed = "COUPON_ALREADY_USED"
	CodeEmptyCart         = "EMPTY_CART"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
)

// Error 引擎错误，带稳定错误码；任何引擎错误都会使所在事务整体回滚
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

var (
	ErrInsufficientStock = &Error{Code: CodeInsufficientStock, Message: "insufficient stock"}
	ErrCouponInvalid     = &Error{Code: CodeCouponInvalid, Message: "coupon invalid"}
	ErrCouponExhausted   = &Error{Code: CodeCouponExhausted, Message: "coupon usage limit reached"}
	ErrCouponAlreadyUsed = &Error{Code: CodeCouponAlreadyUsed, Message: "coupon already used by this identity"}
	ErrEmptyCart         = &Error{Code: CodeEmptyCart, Message: "cart is empty"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition, Message: "invalid status transition"}
)

// validationError 构造带原因的入参错误
func validationError(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}
