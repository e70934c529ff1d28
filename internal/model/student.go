package model

// Student 学生表 — 对应 students
type Student struct {
	StudentID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	StudentNo   string  `gorm:"type:varchar(20);not null;uniqueIndex"          json:"student_no"`
	FullName    string  `gorm:"type:varchar(150);not null"                     json:"full_name"`
	Email       string  `gorm:"type:varchar(255);not null"                     json:"email"`
	Phone       string  `gorm:"type:varchar(20)"                               json:"phone"`
	DateOfBirth string  `gorm:"type:date"                                      json:"date_of_birth"` // YYYY-MM-DD
	Address     string  `gorm:"type:varchar(255)"                              json:"address"`
	BatchID     string  `gorm:"type:uuid;not null;index"                       json:"batch_id"`
	SoftDeleteModel

	// 关联
	Batch *Batch `gorm:"foreignKey:BatchID;references:BatchID" json:"batch,omitempty"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }
