package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-sis/internal/dto"
	"campus-sis/internal/service"
	"campus-sis/pkg/response"
)

// BatchHandler 批次模块 HTTP 处理器
type BatchHandler struct {
	batchSvc service.BatchService
}

// NewBatchHandler 创建 BatchHandler
func NewBatchHandler(batchSvc service.BatchService) *BatchHandler {
	return &BatchHandler{batchSvc: batchSvc}
}

// List 批次列表（导入目标上下文选择）
// GET /api/v1/batches
func (h *BatchHandler) List(c *gin.Context) {
	batches, err := h.batchSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, batches)
}

// Create 创建批次（管理员）
// POST /api/v1/batches
func (h *BatchHandler) Create(c *gin.Context) {
	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	batch, err := h.batchSvc.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrBatchNameExists) {
			response.Conflict(c, 21001, "批次名称已存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.Created(c, batch)
}
