package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"campus-sis/internal/dto"
	"campus-sis/internal/service"
	"campus-sis/pkg/response"
)

// AttendanceHandler 考勤对账模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// Reconciliation 已标记 / 未标记划分
// GET /api/v1/class-sessions/:id/reconciliation
func (h *AttendanceHandler) Reconciliation(c *gin.Context) {
	recon, err := h.attendanceSvc.Reconciliation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, recon)
}

// BulkCreate 快速补录
// POST /api/v1/class-sessions/:id/attendance/bulk
func (h *AttendanceHandler) BulkCreate(c *gin.Context) {
	var req dto.BulkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, recon, err := h.attendanceSvc.BulkCreate(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if recon != nil {
		response.OK(c, gin.H{"result": result, "reconciliation": recon})
		return
	}
	response.OK(c, gin.H{"result": result})
}

// BulkDelete 批量删除考勤
// DELETE /api/v1/class-sessions/:id/attendance
func (h *AttendanceHandler) BulkDelete(c *gin.Context) {
	var req dto.BulkDeleteAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.BulkDelete(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, result)
}

// ExportXLSX 场次考勤导出
// GET /api/v1/class-sessions/:id/attendance/export.xlsx
func (h *AttendanceHandler) ExportXLSX(c *gin.Context) {
	buf, filename, err := h.attendanceSvc.ExportXLSX(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *AttendanceHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassSessionNotFound):
		response.NotFound(c, 25001, "场次不存在")
	case errors.Is(err, service.ErrAttendanceNoEnrollments):
		response.BadRequest(c, 25002, "该开课下没有 active 选课")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
