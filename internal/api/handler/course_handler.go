package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-sis/internal/dto"
	"campus-sis/internal/service"
	"campus-sis/pkg/response"
)

// icsMaxFileSize ICS 上传大小上限
const icsMaxFileSize = 5 << 20

// CourseHandler 开课与场次模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// ListOfferings 开课列表
// GET /api/v1/course-offerings?batch_id=
func (h *CourseHandler) ListOfferings(c *gin.Context) {
	offerings, err := h.courseSvc.ListOfferings(c.Request.Context(), c.Query("batch_id"))
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, offerings)
}

// CreateOffering 创建开课（管理员）
// POST /api/v1/course-offerings
func (h *CourseHandler) CreateOffering(c *gin.Context) {
	var req dto.CreateCourseOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	offering, err := h.courseSvc.CreateOffering(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrOfferingBadBatch) {
			response.BadRequest(c, 23001, "批次不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.Created(c, offering)
}

// ListSessions 场次列表（考勤目标上下文选择）
// GET /api/v1/course-offerings/:id/sessions
func (h *CourseHandler) ListSessions(c *gin.Context) {
	sessions, err := h.courseSvc.ListSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrOfferingNotFound) {
			response.NotFound(c, 23002, "开课不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, sessions)
}

// CreateSession 创建场次（管理员）
// POST /api/v1/course-offerings/:id/sessions
func (h *CourseHandler) CreateSession(c *gin.Context) {
	var req dto.CreateClassSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	session, err := h.courseSvc.CreateSession(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOfferingNotFound):
			response.NotFound(c, 23002, "开课不存在")
		case errors.Is(err, service.ErrSessionBadTime):
			response.BadRequest(c, 23003, "场次时间格式不正确")
		default:
			response.InternalError(c)
		}
		return
	}
	response.Created(c, session)
}

// ImportSessionsICS 从 iCalendar 文件批量建档场次（管理员）
// POST /api/v1/course-offerings/:id/sessions/import-ics  (multipart: file)
func (h *CourseHandler) ImportSessionsICS(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "缺少上传文件")
		return
	}
	if fileHeader.Size > icsMaxFileSize {
		response.BadRequest(c, 23004, "文件过大")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, 23005, "文件无法读取")
		return
	}
	defer f.Close()

	result, err := h.courseSvc.ImportSessionsICS(c.Request.Context(), c.Param("id"), f)
	if err != nil {
		if errors.Is(err, service.ErrOfferingNotFound) {
			response.NotFound(c, 23002, "开课不存在")
			return
		}
		response.BadRequest(c, 23006, "ICS 解析失败")
		return
	}
	response.OK(c, result)
}
