package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-sis/internal/model"
)

// BatchRepository 批次数据访问接口
type BatchRepository interface {
	Create(ctx context.Context, batch *model.Batch) error
	GetByID(ctx context.Context, id string) (*model.Batch, error)
	GetByName(ctx context.Context, name string) (*model.Batch, error)
	List(ctx context.Context) ([]model.Batch, error)
	Delete(ctx context.Context, id string) error
}

type batchRepo struct {
	db *gorm.DB
}

// NewBatchRepo 创建 BatchRepository 实例
func NewBatchRepo(db *gorm.DB) BatchRepository {
	return &batchRepo{db: db}
}

func (r *batchRepo) Create(ctx context.Context, batch *model.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *batchRepo) GetByID(ctx context.Context, id string) (*model.Batch, error) {
	var batch model.Batch
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", id).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepo) GetByName(ctx context.Context, name string) (*model.Batch, error) {
	var batch model.Batch
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepo) List(ctx context.Context) ([]model.Batch, error) {
	var batches []model.Batch
	err := r.db.WithContext(ctx).
		Order("intake_year DESC, name").
		Find(&batches).Error
	return batches, err
}

func (r *batchRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("batch_id = ?", id).
		Delete(&model.Batch{}).Error
}
