package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-sis/internal/model"
)

// CourseOfferingRepository 开课数据访问接口
type CourseOfferingRepository interface {
	Create(ctx context.Context, offering *model.CourseOffering) error
	GetByID(ctx context.Context, id string) (*model.CourseOffering, error)
	ListByBatch(ctx context.Context, batchID string) ([]model.CourseOffering, error)
	List(ctx context.Context) ([]model.CourseOffering, error)
}

type courseOfferingRepo struct {
	db *gorm.DB
}

// NewCourseOfferingRepo 创建 CourseOfferingRepository 实例
func NewCourseOfferingRepo(db *gorm.DB) CourseOfferingRepository {
	return &courseOfferingRepo{db: db}
}

func (r *courseOfferingRepo) Create(ctx context.Context, offering *model.CourseOffering) error {
	return r.db.WithContext(ctx).Create(offering).Error
}

func (r *courseOfferingRepo) GetByID(ctx context.Context, id string) (*model.CourseOffering, error) {
	var offering model.CourseOffering
	err := r.db.WithContext(ctx).
		Preload("Batch").
		Where("course_offering_id = ?", id).
		First(&offering).Error
	if err != nil {
		return nil, err
	}
	return &offering, nil
}

func (r *courseOfferingRepo) ListByBatch(ctx context.Context, batchID string) ([]model.CourseOffering, error) {
	var offerings []model.CourseOffering
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("code").
		Find(&offerings).Error
	return offerings, err
}

func (r *courseOfferingRepo) List(ctx context.Context) ([]model.CourseOffering, error) {
	var offerings []model.CourseOffering
	err := r.db.WithContext(ctx).
		Order("code").
		Find(&offerings).Error
	return offerings, err
}
