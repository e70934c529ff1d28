package model

// CourseOffering 课程开设表 — 对应 course_offerings
// 一门课程在某个批次下的开设实例；考勤导入的目标上下文之一
type CourseOffering struct {
	CourseOfferingID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_offering_id"`
	Code             string `gorm:"type:varchar(20);not null"                      json:"code"`
	Title            string `gorm:"type:varchar(200);not null"                     json:"title"`
	BatchID          string `gorm:"type:uuid;not null;index"                       json:"batch_id"`
	BaseModel

	// 关联
	Batch *Batch `gorm:"foreignKey:BatchID;references:BatchID" json:"batch,omitempty"`
}

// TableName 指定表名
func (CourseOffering) TableName() string { return "course_offerings" }
