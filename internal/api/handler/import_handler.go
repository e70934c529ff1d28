package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-sis/config"
	"campus-sis/internal/dto"
	"campus-sis/internal/service"
	"campus-sis/pkg/response"
)

// ImportHandler 批量导入模块 HTTP 处理器
type ImportHandler struct {
	importSvc service.ImportService
	maxSize   int64 // 上传文件大小上限（字节）
}

// NewImportHandler 创建 ImportHandler
func NewImportHandler(importSvc service.ImportService, cfg *config.ImportConfig) *ImportHandler {
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &ImportHandler{importSvc: importSvc, maxSize: maxSize}
}

// openUpload 提取 multipart 文件，带大小检查；失败时已写响应
func (h *ImportHandler) openUpload(c *gin.Context) (multipart.File, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "缺少上传文件")
		return nil, false
	}
	if fileHeader.Size > h.maxSize {
		response.BadRequest(c, 24001, "文件过大")
		return nil, false
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, 24002, "文件无法读取")
		return nil, false
	}
	return f, true
}

// ImportStudents 上传学生导入文件
// POST /api/v1/imports/students  (multipart: file, batch_id)
func (h *ImportHandler) ImportStudents(c *gin.Context) {
	var req dto.ImportStudentsRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	f, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer f.Close()

	session, err := h.importSvc.ImportStudents(c.Request.Context(), f, req.BatchID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, session)
}

// ImportAttendance 上传考勤导入文件
// POST /api/v1/imports/attendance  (multipart: file, class_session_id, course_offering_id)
func (h *ImportHandler) ImportAttendance(c *gin.Context) {
	var req dto.ImportAttendanceRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	f, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer f.Close()

	session, err := h.importSvc.ImportAttendance(c.Request.Context(), f, req.ClassSessionID, req.CourseOfferingID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, session)
}

// GetSession 导入会话状态
// GET /api/v1/imports/:id
func (h *ImportHandler) GetSession(c *gin.Context) {
	session, err := h.importSvc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, session)
}

// Submit 提交已校验批次
// POST /api/v1/imports/:id/submit
func (h *ImportHandler) Submit(c *gin.Context) {
	session, recon, err := h.importSvc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	if recon != nil {
		response.OK(c, gin.H{"session": session, "reconciliation": recon})
		return
	}
	response.OK(c, gin.H{"session": session})
}

// Reset 重置会话
// POST /api/v1/imports/:id/reset
func (h *ImportHandler) Reset(c *gin.Context) {
	if err := h.importSvc.Reset(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// FailedCSV 失败记录导出
// GET /api/v1/imports/:id/failed.csv
func (h *ImportHandler) FailedCSV(c *gin.Context) {
	data, filename, err := h.importSvc.FailedCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	writeCSV(c, data, filename)
}

// TemplateCSV 导入模板下载
// GET /api/v1/imports/templates/:kind  (kind ∈ {students.csv, attendance.csv})
func (h *ImportHandler) TemplateCSV(c *gin.Context) {
	kind := strings.TrimSuffix(c.Param("kind"), ".csv")
	data, filename, err := h.importSvc.TemplateCSV(kind)
	if err != nil {
		h.handleError(c, err)
		return
	}
	writeCSV(c, data, filename)
}

func writeCSV(c *gin.Context, data []byte, filename string) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *ImportHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 24003, "导入会话不存在或已过期")
	case errors.Is(err, service.ErrImportBatchNotFound):
		response.BadRequest(c, 24004, "批次不存在")
	case errors.Is(err, service.ErrClassSessionNotFound):
		response.BadRequest(c, 24005, "场次不存在")
	case errors.Is(err, service.ErrImportOfferingMismatch):
		response.BadRequest(c, 24006, "场次不属于指定开课")
	case errors.Is(err, service.ErrSubmitNotReady):
		response.Conflict(c, 24007, "当前状态不可提交")
	case errors.Is(err, service.ErrSubmitInFlight):
		response.Conflict(c, 24008, "提交正在进行中")
	case errors.Is(err, service.ErrImportLocked):
		response.Conflict(c, 24009, "同一目标的导入正在进行中")
	case errors.Is(err, service.ErrResetNotPermitted):
		response.Conflict(c, 24010, "当前状态不可重置")
	case errors.Is(err, service.ErrNoFailedRecords):
		response.NotFound(c, 24011, "该会话没有可导出的失败记录")
	case errors.Is(err, service.ErrUnknownTemplateKind):
		response.NotFound(c, 24012, "未知模板类型")
	default:
		response.InternalError(c)
	}
}
