package model

// ClassSession 上课场次表 — 对应 class_sessions
type ClassSession struct {
	ClassSessionID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_session_id"`
	CourseOfferingID string `gorm:"type:uuid;not null;index"                       json:"course_offering_id"`
	SessionDate      string `gorm:"type:date;not null"                             json:"session_date"` // YYYY-MM-DD
	StartTime        string `gorm:"type:varchar(5);not null"                       json:"start_time"`   // HH:MM
	EndTime          string `gorm:"type:varchar(5);not null"                       json:"end_time"`     // HH:MM
	Topic            string `gorm:"type:varchar(200)"                              json:"topic"`
	BaseModel

	// 关联
	CourseOffering *CourseOffering `gorm:"foreignKey:CourseOfferingID;references:CourseOfferingID" json:"course_offering,omitempty"`
}

// TableName 指定表名
func (ClassSession) TableName() string { return "class_sessions" }
