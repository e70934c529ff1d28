package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-sis/internal/model"
)

// EnrollmentRepository 选课数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	CreateBatch(ctx context.Context, enrollments []*model.Enrollment) error
	ListByOffering(ctx context.Context, offeringID string) ([]model.Enrollment, error)
	GetByStudentAndOffering(ctx context.Context, studentID, offeringID string) (*model.Enrollment, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) CreateBatch(ctx context.Context, enrollments []*model.Enrollment) error {
	if len(enrollments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(enrollments).Error
}

// ListByOffering 返回某开课下处于 active 状态的全部选课，预载学生信息
func (r *enrollmentRepo) ListByOffering(ctx context.Context, offeringID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("course_offering_id = ? AND status = ?", offeringID, model.EnrollmentStatusActive).
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) GetByStudentAndOffering(ctx context.Context, studentID, offeringID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_offering_id = ?", studentID, offeringID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}
