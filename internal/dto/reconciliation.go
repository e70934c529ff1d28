package dto

// ── 考勤对账模块 DTO ──

// ReconciliationEntry 对账视图中的一名学生
type ReconciliationEntry struct {
	StudentID  string `json:"student_id"`
	StudentNo  string `json:"student_no"`
	FullName   string `json:"full_name"`
	Status     string `json:"status,omitempty"`      // 已标记侧：present | absent | late
	RecordedAt string `json:"recorded_at,omitempty"` // 已标记侧：生效记录的时间
}

// ReconciliationResponse 某场次的已标记 / 未标记划分
type ReconciliationResponse struct {
	ClassSessionID string                `json:"class_session_id"`
	Marked         []ReconciliationEntry `json:"marked"`
	NotMarked      []ReconciliationEntry `json:"not_marked"`
}

// BulkAttendanceRequest 快速补录请求（未标记侧手工勾选后批量提交）
type BulkAttendanceRequest struct {
	Entries []BulkAttendanceEntry `json:"entries" binding:"required,min=1,dive"`
}

// BulkAttendanceEntry 单条补录
type BulkAttendanceEntry struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	Status    string `json:"status"     binding:"required,oneof=present absent late"`
}

// BulkDeleteAttendanceRequest 批量删除考勤请求
type BulkDeleteAttendanceRequest struct {
	StudentIDs []string `json:"student_ids" binding:"required,min=1,dive,uuid"`
}

// BulkDeleteResult 批量删除结果
type BulkDeleteResult struct {
	DeletedCount int      `json:"deleted_count"`
	FailedIDs    []string `json:"failed_ids,omitempty"`
}
