package dto

// ── 课程开设 / 场次模块 DTO ──

// CreateCourseOfferingRequest 创建开课请求
type CreateCourseOfferingRequest struct {
	Code    string `json:"code"     binding:"required,min=2,max=20"`
	Title   string `json:"title"    binding:"required,min=2,max=200"`
	BatchID string `json:"batch_id" binding:"required,uuid"`
}

// CourseOfferingResponse 开课信息响应
type CourseOfferingResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Title     string `json:"title"`
	BatchID   string `json:"batch_id"`
	BatchName string `json:"batch_name,omitempty"`
}

// CreateClassSessionRequest 创建场次请求
type CreateClassSessionRequest struct {
	SessionDate string `json:"session_date" binding:"required"` // "2026-03-02"
	StartTime   string `json:"start_time"   binding:"required"` // "09:00"
	EndTime     string `json:"end_time"     binding:"required"` // "11:00"
	Topic       string `json:"topic"        binding:"max=200"`
}

// ClassSessionResponse 场次信息响应
type ClassSessionResponse struct {
	ID               string `json:"id"`
	CourseOfferingID string `json:"course_offering_id"`
	SessionDate      string `json:"session_date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Topic            string `json:"topic"`
}

// ImportICSResponse ICS 导入结果响应
type ImportICSResponse struct {
	Created  int                    `json:"created"`
	Skipped  int                    `json:"skipped"` // 同日同时段已存在的场次
	Sessions []ClassSessionResponse `json:"sessions"`
}
