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

var (
	ErrStudentNotFound  = errors.New("学生不存在")
	ErrStudentNoExists  = errors.New("学号已存在")
	ErrStudentBadBatch  = errors.New("批次不存在")
	ErrStudentBadFormat = errors.New("字段格式不正确")
)

// StudentService 学生业务接口
//
// 单条创建 / 更新复用导入引擎的归一化规则（电话、邮箱、日期），
// 手工录入与批量导入落库的数据形态保持一致。
type StudentService interface {
	Create(ctx context.Context, req *dto.CreateStudentRequest) (*dto.StudentResponse, error)
	GetByID(ctx context.Context, id string) (*dto.StudentResponse, error)
	List(ctx context.Context, req *dto.ListStudentsRequest) ([]dto.StudentResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error)
	Delete(ctx context.Context, id string) error
}

type studentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, logger: logger}
}

func (s *studentService) Create(ctx context.Context, req *dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	if _, err := s.repo.Batch.GetByID(ctx, req.BatchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentBadBatch
		}
		return nil, err
	}

	if _, err := s.repo.Student.GetByStudentNo(ctx, req.StudentNo); err == nil {
		return nil, ErrStudentNoExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email, msg := coerceField(req.Email, KindEmail)
	if msg != "" {
		return nil, ErrStudentBadFormat
	}
	phone, msg := coerceField(req.Phone, KindPhone)
	if msg != "" {
		return nil, ErrStudentBadFormat
	}
	dob, msg := coerceField(req.DateOfBirth, KindDate)
	if msg != "" {
		return nil, ErrStudentBadFormat
	}

	student := &model.Student{
		StudentNo:   req.StudentNo,
		FullName:    req.FullName,
		Email:       email,
		Phone:       phone,
		DateOfBirth: dob,
		Address:     req.Address,
		BatchID:     req.BatchID,
	}
	if err := s.repo.Student.Create(ctx, student); err != nil {
		s.logger.Error("创建学生失败", zap.Error(err))
		return nil, err
	}
	return toStudentResponse(student), nil
}

func (s *studentService) GetByID(ctx context.Context, id string) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return toStudentResponse(student), nil
}

func (s *studentService) List(ctx context.Context, req *dto.ListStudentsRequest) ([]dto.StudentResponse, int64, error) {
	students, total, err := s.repo.Student.List(ctx, req.BatchID, req.Keyword, req.GetOffset(), req.GetPageSize())
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		out = append(out, *toStudentResponse(&students[i]))
	}
	return out, total, nil
}

func (s *studentService) Update(ctx context.Context, id string, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	if req.BatchID != nil {
		if _, err := s.repo.Batch.GetByID(ctx, *req.BatchID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrStudentBadBatch
			}
			return nil, err
		}
		student.BatchID = *req.BatchID
	}
	if req.FullName != nil {
		student.FullName = *req.FullName
	}
	if req.Email != nil {
		email, msg := coerceField(*req.Email, KindEmail)
		if msg != "" {
			return nil, ErrStudentBadFormat
		}
		student.Email = email
	}
	if req.Phone != nil {
		phone, msg := coerceField(*req.Phone, KindPhone)
		if msg != "" {
			return nil, ErrStudentBadFormat
		}
		student.Phone = phone
	}
	if req.DateOfBirth != nil {
		dob, msg := coerceField(*req.DateOfBirth, KindDate)
		if msg != "" {
			return nil, ErrStudentBadFormat
		}
		student.DateOfBirth = dob
	}
	if req.Address != nil {
		student.Address = *req.Address
	}

	if err := s.repo.Student.Update(ctx, student); err != nil {
		s.logger.Error("更新学生失败", zap.String("student", id), zap.Error(err))
		return nil, err
	}
	return toStudentResponse(student), nil
}

func (s *studentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Student.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	return s.repo.Student.Delete(ctx, id)
}

func toStudentResponse(st *model.Student) *dto.StudentResponse {
	resp := &dto.StudentResponse{
		ID:          st.StudentID,
		StudentNo:   st.StudentNo,
		FullName:    st.FullName,
		Email:       st.Email,
		Phone:       st.Phone,
		DateOfBirth: st.DateOfBirth,
		Address:     st.Address,
		BatchID:     st.BatchID,
		CreatedAt:   st.CreatedAt.Format(time.RFC3339),
	}
	if st.Batch != nil {
		resp.BatchName = st.Batch.Name
	}
	return resp
}
