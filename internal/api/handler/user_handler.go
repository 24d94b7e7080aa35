package handler

import (
	"github.com/gin-gonic/gin"

	"shift-market/backend/internal/service"
	"shift-market/backend/pkg/response"
)

// UserHandler 成员模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// GetCurrentUser 当前账号信息及岗位权限
// GET /api/v1/users/me
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if service.KindOf(err) == service.KindNotFound {
			response.NotFound(c, 20001, "成员不存在")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, user)
}
