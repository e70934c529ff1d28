package model

// Batch 学生批次表 — 对应 batches
// 批次是学生导入的目标上下文：每次批量导入必须先选定批次
type Batch struct {
	BatchID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"batch_id"`
	Name       string `gorm:"type:varchar(100);not null;uniqueIndex"         json:"name"`
	IntakeYear int    `gorm:"not null"                                       json:"intake_year"`
	BaseModel
}

// TableName 指定表名
func (Batch) TableName() string { return "batches" }
