package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-sis/internal/dto"
	"campus-sis/internal/model"
	"campus-sis/internal/repository"
)

var (
	ErrOfferingNotFound = errors.New("开课不存在")
	ErrOfferingBadBatch = errors.New("批次不存在")
	ErrSessionBadTime   = errors.New("场次时间格式不正确")
)

// CourseService 开课与场次业务接口
type CourseService interface {
	CreateOffering(ctx context.Context, req *dto.CreateCourseOfferingRequest) (*dto.CourseOfferingResponse, error)
	ListOfferings(ctx context.Context, batchID string) ([]dto.CourseOfferingResponse, error)
	ListSessions(ctx context.Context, offeringID string) ([]dto.ClassSessionResponse, error)
	CreateSession(ctx context.Context, offeringID string, req *dto.CreateClassSessionRequest) (*dto.ClassSessionResponse, error)
	// ImportSessionsICS 从 iCalendar 内容批量建档场次；同日同开始时间
	// 已存在的场次跳过
	ImportSessionsICS(ctx context.Context, offeringID string, reader io.Reader) (*dto.ImportICSResponse, error)
}

type courseService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, logger: logger}
}

func (s *courseService) CreateOffering(ctx context.Context, req *dto.CreateCourseOfferingRequest) (*dto.CourseOfferingResponse, error) {
	if _, err := s.repo.Batch.GetByID(ctx, req.BatchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferingBadBatch
		}
		return nil, err
	}

	offering := &model.CourseOffering{
		Code:    req.Code,
		Title:   req.Title,
		BatchID: req.BatchID,
	}
	if err := s.repo.CourseOffering.Create(ctx, offering); err != nil {
		s.logger.Error("创建开课失败", zap.Error(err))
		return nil, err
	}
	return toOfferingResponse(offering), nil
}

func (s *courseService) ListOfferings(ctx context.Context, batchID string) ([]dto.CourseOfferingResponse, error) {
	var (
		offerings []model.CourseOffering
		err       error
	)
	if batchID != "" {
		offerings, err = s.repo.CourseOffering.ListByBatch(ctx, batchID)
	} else {
		offerings, err = s.repo.CourseOffering.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := make([]dto.CourseOfferingResponse, 0, len(offerings))
	for i := range offerings {
		out = append(out, *toOfferingResponse(&offerings[i]))
	}
	return out, nil
}

func (s *courseService) getOffering(ctx context.Context, id string) (*model.CourseOffering, error) {
	offering, err := s.repo.CourseOffering.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferingNotFound
		}
		return nil, err
	}
	return offering, nil
}

func (s *courseService) ListSessions(ctx context.Context, offeringID string) ([]dto.ClassSessionResponse, error) {
	if _, err := s.getOffering(ctx, offeringID); err != nil {
		return nil, err
	}
	sessions, err := s.repo.ClassSession.ListByOffering(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ClassSessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, *toSessionResponse(&sessions[i]))
	}
	return out, nil
}

func (s *courseService) CreateSession(ctx context.Context, offeringID string, req *dto.CreateClassSessionRequest) (*dto.ClassSessionResponse, error) {
	if _, err := s.getOffering(ctx, offeringID); err != nil {
		return nil, err
	}
	if !validSessionTimes(req.SessionDate, req.StartTime, req.EndTime) {
		return nil, ErrSessionBadTime
	}

	session := &model.ClassSession{
		CourseOfferingID: offeringID,
		SessionDate:      req.SessionDate,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Topic:            req.Topic,
	}
	if err := s.repo.ClassSession.Create(ctx, session); err != nil {
		s.logger.Error("创建场次失败", zap.Error(err))
		return nil, err
	}
	return toSessionResponse(session), nil
}

// ────────────────────── ImportSessionsICS ──────────────────────

func (s *courseService) ImportSessionsICS(ctx context.Context, offeringID string, reader io.Reader) (*dto.ImportICSResponse, error) {
	if _, err := s.getOffering(ctx, offeringID); err != nil {
		return nil, err
	}

	drafts, err := ParseSessionICS(reader)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ClassSession.ListByOffering(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	occupied := make(map[string]struct{}, len(existing))
	for _, cs := range existing {
		occupied[cs.SessionDate+" "+cs.StartTime] = struct{}{}
	}

	resp := &dto.ImportICSResponse{Sessions: []dto.ClassSessionResponse{}}
	var create []*model.ClassSession
	for _, d := range drafts {
		key := d.SessionDate + " " + d.StartTime
		if _, taken := occupied[key]; taken {
			resp.Skipped++
			continue
		}
		occupied[key] = struct{}{}
		create = append(create, &model.ClassSession{
			CourseOfferingID: offeringID,
			SessionDate:      d.SessionDate,
			StartTime:        d.StartTime,
			EndTime:          d.EndTime,
			Topic:            d.Topic,
		})
	}

	if len(create) > 0 {
		tx, err := s.repo.BeginTx(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.repo.WithTx(tx).ClassSession.CreateBatch(ctx, create); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("ICS 场次批量落库失败", zap.Error(err))
			return nil, err
		}
		if tx != nil {
			if err := tx.Commit().Error; err != nil {
				return nil, err
			}
		}
	}

	resp.Created = len(create)
	for _, cs := range create {
		resp.Sessions = append(resp.Sessions, *toSessionResponse(cs))
	}
	return resp, nil
}

// validSessionTimes 日期 YYYY-MM-DD、时间 HH:MM 且开始早于结束
func validSessionTimes(date, start, end string) bool {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return false
	}
	st, err := time.Parse("15:04", start)
	if err != nil {
		return false
	}
	en, err := time.Parse("15:04", end)
	if err != nil {
		return false
	}
	return st.Before(en)
}

func toOfferingResponse(o *model.CourseOffering) *dto.CourseOfferingResponse {
	resp := &dto.CourseOfferingResponse{
		ID:      o.CourseOfferingID,
		Code:    o.Code,
		Title:   o.Title,
		BatchID: o.BatchID,
	}
	if o.Batch != nil {
		resp.BatchName = o.Batch.Name
	}
	return resp
}

func toSessionResponse(cs *model.ClassSession) *dto.ClassSessionResponse {
	return &dto.ClassSessionResponse{
		ID:               cs.ClassSessionID,
		CourseOfferingID: cs.CourseOfferingID,
		SessionDate:      cs.SessionDate,
		StartTime:        cs.StartTime,
		EndTime:          cs.EndTime,
		Topic:            cs.Topic,
	}
}
