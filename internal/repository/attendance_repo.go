package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"campus-sis/internal/model"
)

// AttendanceRepository 考勤数据访问接口
type AttendanceRepository interface {
	Create(ctx context.Context, record *model.AttendanceRecord) error
	CreateBatch(ctx context.Context, records []*model.AttendanceRecord) error
	// ListBySession 按 recorded_at 升序返回场次下全部考勤；后写的记录排在
	// 后面，去重时顺序覆盖即可取得最新者
	ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error)
	ListByStudentAndSession(ctx context.Context, studentID, sessionID string) ([]model.AttendanceRecord, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
	DeleteByStudentAndSession(ctx context.Context, studentID, sessionID string) (int64, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, record *model.AttendanceRecord) error {
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attendanceRepo) CreateBatch(ctx context.Context, records []*model.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now()
	for _, rec := range records {
		if rec.RecordedAt.IsZero() {
			rec.RecordedAt = now
		}
	}
	return r.db.WithContext(ctx).Create(records).Error
}

func (r *attendanceRepo) ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("class_session_id = ?", sessionID).
		Order("recorded_at").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListByStudentAndSession(ctx context.Context, studentID, sessionID string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND class_session_id = ?", studentID, sessionID).
		Order("recorded_at").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("class_session_id = ?", sessionID).
		Delete(&model.AttendanceRecord{})
	return res.RowsAffected, res.Error
}

func (r *attendanceRepo) DeleteByStudentAndSession(ctx context.Context, studentID, sessionID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("student_id = ? AND class_session_id = ?", studentID, sessionID).
		Delete(&model.AttendanceRecord{})
	return res.RowsAffected, res.Error
}
