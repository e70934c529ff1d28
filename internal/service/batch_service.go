package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-sis/internal/dto"
	"campus-sis/internal/model"
	"campus-sis/internal/repository"
)

var ErrBatchNameExists = errors.New("批次名称已存在")

// BatchService 批次业务接口
type BatchService interface {
	Create(ctx context.Context, req *dto.CreateBatchRequest) (*dto.BatchResponse, error)
	List(ctx context.Context) ([]dto.BatchResponse, error)
}

type batchService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewBatchService 创建 BatchService 实例
func NewBatchService(repo *repository.Repository, logger *zap.Logger) BatchService {
	return &batchService{repo: repo, logger: logger}
}

func (s *batchService) Create(ctx context.Context, req *dto.CreateBatchRequest) (*dto.BatchResponse, error) {
	if _, err := s.repo.Batch.GetByName(ctx, req.Name); err == nil {
		return nil, ErrBatchNameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	batch := &model.Batch{
		Name:       req.Name,
		IntakeYear: req.IntakeYear,
	}
	if err := s.repo.Batch.Create(ctx, batch); err != nil {
		s.logger.Error("创建批次失败", zap.Error(err))
		return nil, err
	}
	return toBatchResponse(batch), nil
}

func (s *batchService) List(ctx context.Context) ([]dto.BatchResponse, error) {
	batches, err := s.repo.Batch.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.BatchResponse, 0, len(batches))
	for i := range batches {
		out = append(out, *toBatchResponse(&batches[i]))
	}
	return out, nil
}

func toBatchResponse(b *model.Batch) *dto.BatchResponse {
	return &dto.BatchResponse{
		ID:         b.BatchID,
		Name:       b.Name,
		IntakeYear: b.IntakeYear,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}
