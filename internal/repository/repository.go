package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User           UserRepository
	Batch          BatchRepository
	Student        StudentRepository
	CourseOffering CourseOfferingRepository
	ClassSession   ClassSessionRepository
	Enrollment     EnrollmentRepository
	Attendance     AttendanceRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:             db,
		User:           NewUserRepo(db),
		Batch:          NewBatchRepo(db),
		Student:        NewStudentRepo(db),
		CourseOffering: NewCourseOfferingRepo(db),
		ClassSession:   NewClassSessionRepo(db),
		Enrollment:     NewEnrollmentRepo(db),
		Attendance:     NewAttendanceRepo(db),
	}
}

// BeginTx 开启事务，返回事务句柄。未绑定数据库（如测试中手工组装的
// Repository）时返回 (nil, nil)，调用方对 nil 事务跳过 Commit/Rollback
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到指定事务的 Repository 副本
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
