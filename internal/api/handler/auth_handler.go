package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/shop-engine/internal/model"
	"github.com/d60-Lab/shop-engine/pkg/middleware"
	"github.com/d60-Lab/shop-engine/pkg/response"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 管理端登录，签发 JWT
// @Summary 管理端登录
// @Tags 鉴权
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	var user model.User
	err := h.db.WithContext(c.Request.Context()).Where("username = ?", req.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.Unauthorized(c, "bad credentials")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		response.Unauthorized(c, "bad credentials")
		return
	}
	expire := time.Duration(h.cfg.JWT.ExpireHour) * time.Hour
	token, err := middleware.GenerateToken(h.cfg.JWT.Secret, user.ID, user.Role, expire)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "expires_in": int(expire.Seconds())})
}
