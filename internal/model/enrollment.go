package model

// 选课状态
const (
	EnrollmentStatusActive  = "active"
	EnrollmentStatusDropped = "dropped"
)

// Enrollment 选课记录表 — 对应 enrollments
// 考勤对账以"该课程开设下的 active 选课"为全集
type Enrollment struct {
	EnrollmentID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	StudentID        string `gorm:"type:uuid;not null"                             json:"student_id"`
	CourseOfferingID string `gorm:"type:uuid;not null;index"                       json:"course_offering_id"`
	Status           string `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | dropped
	BaseModel

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }
