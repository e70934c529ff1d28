package dto

// ── 批量导入模块 DTO ──

const (
	// ErrorDisplayCap 会话响应中展示的错误条数上限（完整错误集在服务端保留）
	ErrorDisplayCap = 10
	// PreviewRowCap 会话响应中展示的预览行数上限
	PreviewRowCap = 5
)

// ImportStudentsRequest 学生导入表单字段（配合 multipart 文件）
type ImportStudentsRequest struct {
	BatchID string `form:"batch_id" binding:"required,uuid"`
}

// ImportAttendanceRequest 考勤导入表单字段（配合 multipart 文件）
type ImportAttendanceRequest struct {
	ClassSessionID   string `form:"class_session_id"   binding:"required,uuid"`
	CourseOfferingID string `form:"course_offering_id" binding:"required,uuid"`
}

// ImportSessionResponse 导入会话响应
//
// errors 最多 10 条、preview_rows 最多 5 行；截断只发生在这里，
// 服务端始终保有完整错误集（total_errors 为未截断的总数）。
type ImportSessionResponse struct {
	ID               string              `json:"id"`
	Kind             string              `json:"kind"`   // students | attendance
	Status           string              `json:"status"` // idle | processing | validated | invalid | submitting | completed
	RecordCount      int                 `json:"record_count"`
	Errors           []string            `json:"errors"`
	TotalErrors      int                 `json:"total_errors"`
	PreviewRows      []map[string]string `json:"preview_rows"`
	SubmissionResult *SubmissionResult   `json:"submission_result,omitempty"`
}

// SubmissionResult 批量提交结果
type SubmissionResult struct {
	SuccessCount  int            `json:"success_count"`
	FailedCount   int            `json:"failed_count"`
	FailedRecords []FailedRecord `json:"failed_records"`
	// Degraded 后端未返回逐条明细时整批按全成/全败记账，置 true 以免
	// 被当成真实的部分失败报告
	Degraded bool `json:"degraded"`
}

// FailedRecord 提交失败的单条记录
type FailedRecord struct {
	SourceRowNumber int    `json:"source_row_number"`
	Reference       string `json:"reference"` // 学号或学生 ID，便于操作员定位
	Reason          string `json:"reason"`
}
