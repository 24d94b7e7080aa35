package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shift-market/backend/internal/dto"
	"shift-market/backend/internal/service"
	"shift-market/backend/pkg/response"
)

// MarketplaceHandler 班次市场 HTTP 处理器
type MarketplaceHandler struct {
	svc service.MarketplaceService
}

// NewMarketplaceHandler 创建 MarketplaceHandler
func NewMarketplaceHandler(svc service.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{svc: svc}
}

// CreateRequest 发起申请
// POST /api/v1/marketplace/requests
func (h *MarketplaceHandler) CreateRequest(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateShiftRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.svc.CreateRequest(c.Request.Context(), actor, &req)
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.Created(c, result)
}

// Claim 认领申请
// POST /api/v1/marketplace/requests/:id/claim
func (h *MarketplaceHandler) Claim(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.svc.Claim(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.OK(c, result)
}

// RespondToSwap 响应互换
// POST /api/v1/marketplace/requests/:id/respond
func (h *MarketplaceHandler) RespondToSwap(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.RespondSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.svc.RespondToSwap(c.Request.Context(), actor, c.Param("id"), *req.Accept)
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.OK(c, result)
}

// Resolve 审批申请
// POST /api/v1/marketplace/requests/:id/resolve
func (h *MarketplaceHandler) Resolve(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ResolveShiftRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.svc.Resolve(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 撤回申请
// POST /api/v1/marketplace/requests/:id/cancel
func (h *MarketplaceHandler) Cancel(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.OK(c, result)
}

// GetRequest 申请详情
// GET /api/v1/marketplace/requests/:id
func (h *MarketplaceHandler) GetRequest(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.svc.GetRequest(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListOpen 开放申请
// GET /api/v1/marketplace/open
func (h *MarketplaceHandler) ListOpen(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.MarketplaceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.svc.ListOpen(c.Request.Context(), actor, &req)
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListMine 我发起的申请
// GET /api/v1/marketplace/my
func (h *MarketplaceHandler) ListMine(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.MarketplaceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.svc.ListMine(c.Request.Context(), actor, &req)
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListIncoming 待我响应的互换
// GET /api/v1/marketplace/incoming
func (h *MarketplaceHandler) ListIncoming(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.svc.ListIncoming(c.Request.Context(), actor)
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.OK(c, list)
}

// ListPendingApprovals 待我审批的申请
// GET /api/v1/marketplace/approvals
func (h *MarketplaceHandler) ListPendingApprovals(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.svc.ListPendingApprovals(c.Request.Context(), actor)
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.OK(c, list)
}

// Dashboard 市场看板
// GET /api/v1/marketplace/dashboard
func (h *MarketplaceHandler) Dashboard(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.svc.Dashboard(c.Request.Context(), actor)
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.OK(c, result)
}

// ListSwappableShifts 可发起互换的班次
// GET /api/v1/marketplace/swappable-shifts
func (h *MarketplaceHandler) ListSwappableShifts(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.SwappableShiftsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.svc.ListSwappableShifts(c.Request.Context(), actor, &req)
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	response.OK(c, list)
}

// handleMarketplaceError 按错误类别映射 HTTP 状态码与业务码
func handleMarketplaceError(c *gin.Context, err error) {
	switch service.KindOf(err) {
	case service.KindNotFound:
		response.ErrorWithDetails(c, http.StatusNotFound, 14004, "资源不存在", err.Error())
	case service.KindInvalidState:
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, 14022, "当前状态不允许该操作", err.Error())
	case service.KindForbidden:
		response.ErrorWithDetails(c, http.StatusForbidden, 14003, "无权执行该操作", err.Error())
	case service.KindConflict:
		response.ErrorWithDetails(c, http.StatusConflict, 14009, "申请已被他人处理，请刷新后重试", err.Error())
	case service.KindAmbiguousActor:
		response.PreconditionRequired(c, 14028, "共享账号需先通过 PIN 确认操作成员")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/marketplace_handler.go
