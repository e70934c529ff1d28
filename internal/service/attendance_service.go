package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-sis/internal/dto"
	"campus-sis/internal/model"
	"campus-sis/internal/repository"
)

// ── 考勤模块业务错误 ──

var (
	ErrAttendanceNoEnrollments = errors.New("该开课下没有 active 选课")
	ErrExportGenerateFail      = errors.New("生成 Excel 文件失败")
)

// AttendanceService 考勤对账与补录业务接口
//
// 对账视图（已标记 / 未标记）永远按需重算；任何写操作之后调用方
// 重新拉取视图，本地快照过了下一次刷新即不可信。
type AttendanceService interface {
	// Reconciliation 某场次的已标记 / 未标记划分
	Reconciliation(ctx context.Context, classSessionID string) (*dto.ReconciliationResponse, error)
	// BulkCreate 快速补录：未标记侧勾选后的批量提交，逐条结果回填
	BulkCreate(ctx context.Context, classSessionID string, req *dto.BulkAttendanceRequest) (*dto.SubmissionResult, *dto.ReconciliationResponse, error)
	// BulkDelete 批量删除指定学生在该场次的全部考勤记录
	BulkDelete(ctx context.Context, classSessionID string, req *dto.BulkDeleteAttendanceRequest) (*dto.BulkDeleteResult, error)
	// ExportXLSX 场次考勤导出为 Excel
	ExportXLSX(ctx context.Context, classSessionID string) (*bytes.Buffer, string, error)
}

type attendanceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, logger: logger}
}

// getClassSession 取场次，统一 NotFound 语义
func (s *attendanceService) getClassSession(ctx context.Context, id string) (*model.ClassSession, error) {
	cs, err := s.repo.ClassSession.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassSessionNotFound
		}
		return nil, err
	}
	return cs, nil
}

// ────────────────────── Reconciliation ──────────────────────

func (s *attendanceService) Reconciliation(ctx context.Context, classSessionID string) (*dto.ReconciliationResponse, error) {
	cs, err := s.getClassSession(ctx, classSessionID)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Enrollment.ListByOffering(ctx, cs.CourseOfferingID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.Attendance.ListBySession(ctx, classSessionID)
	if err != nil {
		return nil, err
	}

	set := BuildReconciliation(enrollments, records)
	return buildReconciliationResponse(classSessionID, set), nil
}

// ────────────────────── BulkCreate ──────────────────────

// BulkCreate 的逐条结果总数恒等于请求条数；无 active 选课或重复勾选
// 的条目单独失败，不影响其余条目
func (s *attendanceService) BulkCreate(ctx context.Context, classSessionID string, req *dto.BulkAttendanceRequest) (*dto.SubmissionResult, *dto.ReconciliationResponse, error) {
	cs, err := s.getClassSession(ctx, classSessionID)
	if err != nil {
		return nil, nil, err
	}

	enrollments, err := s.repo.Enrollment.ListByOffering(ctx, cs.CourseOfferingID)
	if err != nil {
		return nil, nil, err
	}
	enrolled := make(map[string]struct{}, len(enrollments))
	for _, e := range enrollments {
		enrolled[e.StudentID] = struct{}{}
	}

	result := &dto.SubmissionResult{FailedRecords: []dto.FailedRecord{}}
	recordedAt := time.Now()
	seen := make(map[string]struct{}, len(req.Entries))
	var valid []*model.AttendanceRecord

	for i, entry := range req.Entries {
		if _, dup := seen[entry.StudentID]; dup {
			result.FailedCount++
			result.FailedRecords = append(result.FailedRecords, dto.FailedRecord{
				SourceRowNumber: i + 1,
				Reference:       entry.StudentID,
				Reason:          "duplicate student in this submission",
			})
			continue
		}
		seen[entry.StudentID] = struct{}{}

		if _, ok := enrolled[entry.StudentID]; !ok {
			result.FailedCount++
			result.FailedRecords = append(result.FailedRecords, dto.FailedRecord{
				SourceRowNumber: i + 1,
				Reference:       entry.StudentID,
				Reason:          "no active enrollment for this course offering",
			})
			continue
		}

		valid = append(valid, &model.AttendanceRecord{
			StudentID:      entry.StudentID,
			ClassSessionID: classSessionID,
			Status:         entry.Status,
			RecordedAt:     recordedAt,
		})
	}

	if len(valid) > 0 {
		tx, err := s.repo.BeginTx(ctx)
		if err != nil {
			return nil, nil, err
		}
		if err := s.repo.WithTx(tx).Attendance.CreateBatch(ctx, valid); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("补录批量落库失败", zap.Error(err))
			return nil, nil, err
		}
		if tx != nil {
			if err := tx.Commit().Error; err != nil {
				return nil, nil, err
			}
		}
		result.SuccessCount = len(valid)
	}

	// 写后刷新对账
	var recon *dto.ReconciliationResponse
	if result.SuccessCount > 0 {
		recon, err = s.Reconciliation(ctx, classSessionID)
		if err != nil {
			s.logger.Error("对账刷新失败", zap.String("class_session", classSessionID), zap.Error(err))
			recon = nil
		}
	}
	return result, recon, nil
}

// ────────────────────── BulkDelete ──────────────────────

func (s *attendanceService) BulkDelete(ctx context.Context, classSessionID string, req *dto.BulkDeleteAttendanceRequest) (*dto.BulkDeleteResult, error) {
	if _, err := s.getClassSession(ctx, classSessionID); err != nil {
		return nil, err
	}

	result := &dto.BulkDeleteResult{}
	for _, studentID := range req.StudentIDs {
		n, err := s.repo.Attendance.DeleteByStudentAndSession(ctx, studentID, classSessionID)
		if err != nil {
			s.logger.Error("删除考勤失败",
				zap.String("student", studentID),
				zap.String("class_session", classSessionID),
				zap.Error(err))
			result.FailedIDs = append(result.FailedIDs, studentID)
			continue
		}
		if n == 0 {
			result.FailedIDs = append(result.FailedIDs, studentID)
			continue
		}
		result.DeletedCount += int(n)
	}
	return result, nil
}

// ═══════════════════════════════════════════════════════════
// ExportXLSX — 场次考勤导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 单 Sheet：学号 / 姓名 / 状态 / 记录时间，按对账视图输出（已标记侧
// 取生效记录，未标记侧状态留空）。返回 buf 与建议文件名，由 Handler
// 设置响应头后写出。

func (s *attendanceService) ExportXLSX(ctx context.Context, classSessionID string) (*bytes.Buffer, string, error) {
	cs, err := s.getClassSession(ctx, classSessionID)
	if err != nil {
		return nil, "", err
	}

	enrollments, err := s.repo.Enrollment.ListByOffering(ctx, cs.CourseOfferingID)
	if err != nil {
		return nil, "", err
	}
	if len(enrollments) == 0 {
		return nil, "", ErrAttendanceNoEnrollments
	}
	records, err := s.repo.Attendance.ListBySession(ctx, classSessionID)
	if err != nil {
		return nil, "", err
	}
	set := BuildReconciliation(enrollments, records)

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{"Student No", "Full Name", "Status", "Recorded At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", ErrExportGenerateFail
		}
	}

	row := 2
	writeRow := func(no, name, status, recorded string) error {
		values := []string{no, name, status, recorded}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		row++
		return nil
	}

	for _, m := range set.Marked {
		no, name := m.Enrollment.StudentID, ""
		if m.Enrollment.Student != nil {
			no, name = m.Enrollment.Student.StudentNo, m.Enrollment.Student.FullName
		}
		if err := writeRow(no, name, m.Record.Status, m.Record.RecordedAt.Format("2006-01-02 15:04")); err != nil {
			return nil, "", ErrExportGenerateFail
		}
	}
	for _, e := range set.NotMarked {
		no, name := e.StudentID, ""
		if e.Student != nil {
			no, name = e.Student.StudentNo, e.Student.FullName
		}
		if err := writeRow(no, name, "", ""); err != nil {
			return nil, "", ErrExportGenerateFail
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		s.logger.Error("写出 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	short := classSessionID
	if len(short) > 8 {
		short = short[:8]
	}
	filename := fmt.Sprintf("attendance-%s-%s.xlsx", cs.SessionDate, short)
	return &buf, filename, nil
}
