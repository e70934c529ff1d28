package model

import "time"

// 考勤状态
const (
	AttendanceStatusPresent = "present"
	AttendanceStatusAbsent  = "absent"
	AttendanceStatusLate    = "late"
)

// AttendanceRecord 考勤记录表 — 对应 attendance_records
//
// (student_id, class_session_id) 在数据库层故意不唯一：历史数据存在重复
// 记录，去重语义由对账逻辑按 recorded_at 最新者生效（见 reconciliation.go）。
type AttendanceRecord struct {
	AttendanceID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	StudentID      string    `gorm:"type:uuid;not null"                             json:"student_id"`
	ClassSessionID string    `gorm:"type:uuid;not null;index"                       json:"class_session_id"`
	Status         string    `gorm:"type:varchar(10);not null;default:'present'"    json:"status"` // present | absent | late
	RecordedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"recorded_at"`
	BaseModel

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }
