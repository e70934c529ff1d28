package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-sis/internal/model"
)

// ClassSessionRepository 课堂场次数据访问接口
type ClassSessionRepository interface {
	Create(ctx context.Context, session *model.ClassSession) error
	CreateBatch(ctx context.Context, sessions []*model.ClassSession) error
	GetByID(ctx context.Context, id string) (*model.ClassSession, error)
	ListByOffering(ctx context.Context, offeringID string) ([]model.ClassSession, error)
}

type classSessionRepo struct {
	db *gorm.DB
}

// NewClassSessionRepo 创建 ClassSessionRepository 实例
func NewClassSessionRepo(db *gorm.DB) ClassSessionRepository {
	return &classSessionRepo{db: db}
}

func (r *classSessionRepo) Create(ctx context.Context, session *model.ClassSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *classSessionRepo) CreateBatch(ctx context.Context, sessions []*model.ClassSession) error {
	if len(sessions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(sessions).Error
}

func (r *classSessionRepo) GetByID(ctx context.Context, id string) (*model.ClassSession, error) {
	var session model.ClassSession
	err := r.db.WithContext(ctx).
		Preload("CourseOffering").
		Where("class_session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *classSessionRepo) ListByOffering(ctx context.Context, offeringID string) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Where("course_offering_id = ?", offeringID).
		Order("session_date, start_time").
		Find(&sessions).Error
	return sessions, err
}
