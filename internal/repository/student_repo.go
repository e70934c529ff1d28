package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-sis/internal/model"
)

// StudentRepository 学生数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	CreateBatch(ctx context.Context, students []*model.Student) error
	GetByID(ctx context.Context, id string) (*model.Student, error)
	GetByStudentNo(ctx context.Context, studentNo string) (*model.Student, error)
	ListStudentNos(ctx context.Context, studentNos []string) ([]string, error)
	ListByBatch(ctx context.Context, batchID string) ([]model.Student, error)
	List(ctx context.Context, batchID, keyword string, offset, limit int) ([]model.Student, int64, error)
	Update(ctx context.Context, student *model.Student) error
	Delete(ctx context.Context, id string) error
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) CreateBatch(ctx context.Context, students []*model.Student) error {
	if len(students) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(students).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Preload("Batch").
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByStudentNo(ctx context.Context, studentNo string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("student_no = ?", studentNo).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// ListStudentNos 返回给定学号中数据库已存在的那部分，用于导入去重
func (r *studentRepo) ListStudentNos(ctx context.Context, studentNos []string) ([]string, error) {
	if len(studentNos) == 0 {
		return nil, nil
	}
	var existing []string
	err := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("student_no IN ?", studentNos).
		Pluck("student_no", &existing).Error
	return existing, err
}

func (r *studentRepo) ListByBatch(ctx context.Context, batchID string) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("student_no").
		Find(&students).Error
	return students, err
}

func (r *studentRepo) List(ctx context.Context, batchID, keyword string, offset, limit int) ([]model.Student, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Student{})
	if batchID != "" {
		query = query.Where("batch_id = ?", batchID)
	}
	if keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("student_no ILIKE ? OR full_name ILIKE ? OR email ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var students []model.Student
	err := query.
		Order("student_no").
		Offset(offset).
		Limit(limit).
		Find(&students).Error
	return students, total, err
}

func (r *studentRepo) Update(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

func (r *studentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("student_id = ?", id).
		Delete(&model.Student{}).Error
}
