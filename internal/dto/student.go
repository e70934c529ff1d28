package dto

// ── 学生模块 DTO ──

// CreateStudentRequest 创建学生请求
type CreateStudentRequest struct {
	StudentNo   string `json:"student_no"    binding:"required,min=2,max=50"`
	FullName    string `json:"full_name"     binding:"required,min=2,max=200"`
	Email       string `json:"email"         binding:"required,email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"` // "2002-05-14"
	Address     string `json:"address"`
	BatchID     string `json:"batch_id"      binding:"required,uuid"`
}

// UpdateStudentRequest 更新学生请求
type UpdateStudentRequest struct {
	FullName    *string `json:"full_name"     binding:"omitempty,min=2,max=200"`
	Email       *string `json:"email"         binding:"omitempty,email"`
	Phone       *string `json:"phone"`
	DateOfBirth *string `json:"date_of_birth"`
	Address     *string `json:"address"`
	BatchID     *string `json:"batch_id"      binding:"omitempty,uuid"`
}

// ListStudentsRequest 学生列表查询参数
type ListStudentsRequest struct {
	PaginationRequest
	BatchID string `form:"batch_id" binding:"omitempty,uuid"`
	Keyword string `form:"keyword"`
}

// StudentResponse 学生信息响应
type StudentResponse struct {
	ID          string `json:"id"`
	StudentNo   string `json:"student_no"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address"`
	BatchID     string `json:"batch_id"`
	BatchName   string `json:"batch_name,omitempty"`
	CreatedAt   string `json:"created_at"`
}
