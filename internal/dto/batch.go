package dto

// ── 批次模块 DTO ──

// CreateBatchRequest 创建批次请求
type CreateBatchRequest struct {
	Name       string `json:"name"        binding:"required,min=2,max=100"`
	IntakeYear int    `json:"intake_year" binding:"required,min=2000,max=2100"`
}

// BatchResponse 批次信息响应
type BatchResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IntakeYear int    `json:"intake_year"`
	CreatedAt  string `json:"created_at"`
}
