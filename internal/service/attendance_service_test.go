package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"campus-sis/internal/dto"
	"campus-sis/internal/model"
	"campus-sis/internal/repository"
)

type attendanceFixture struct {
	svc         AttendanceService
	sessions    *mockClassSessionRepo
	enrollments *mockEnrollmentRepo
	attendance  *mockAttendanceRepo
}

func newAttendanceFixture() *attendanceFixture {
	f := &attendanceFixture{
		sessions:    newMockClassSessionRepo(),
		enrollments: newMockEnrollmentRepo(),
		attendance:  newMockAttendanceRepo(),
	}
	repo := &repository.Repository{
		ClassSession: f.sessions,
		Enrollment:   f.enrollments,
		Attendance:   f.attendance,
	}
	f.svc = NewAttendanceService(repo, zap.NewNop())
	return f
}

func (f *attendanceFixture) seedSession(sessionID, offeringID string) {
	f.sessions.sessions[sessionID] = &model.ClassSession{
		ClassSessionID:   sessionID,
		CourseOfferingID: offeringID,
		SessionDate:      "2026-03-10",
		StartTime:        "09:00",
		EndTime:          "11:00",
	}
}

func (f *attendanceFixture) seedEnrollment(studentID, studentNo, offeringID string) {
	f.enrollments.enrollments["enr-"+studentID] = &model.Enrollment{
		EnrollmentID:     "enr-" + studentID,
		StudentID:        studentID,
		CourseOfferingID: offeringID,
		Status:           model.EnrollmentStatusActive,
		Student:          &model.Student{StudentID: studentID, StudentNo: studentNo, FullName: "Student " + studentNo},
	}
}

// ────────────────────── Reconciliation ──────────────────────

func TestAttendanceService_Reconciliation(t *testing.T) {
	f := newAttendanceFixture()
	f.seedSession("cs-1", "off-1")
	f.seedEnrollment("s1", "2021CS001", "off-1")
	f.seedEnrollment("s2", "2021CS002", "off-1")
	ctx := context.Background()

	_ = f.attendance.Create(ctx, &model.AttendanceRecord{
		StudentID: "s1", ClassSessionID: "cs-1",
		Status: model.AttendanceStatusPresent, RecordedAt: time.Now(),
	})

	resp, err := f.svc.Reconciliation(ctx, "cs-1")
	if err != nil {
		t.Fatalf("Reconciliation 失败: %v", err)
	}
	if len(resp.Marked) != 1 || resp.Marked[0].StudentNo != "2021CS001" {
		t.Errorf("已标记侧不符: %+v", resp.Marked)
	}
	if len(resp.NotMarked) != 1 || resp.NotMarked[0].StudentNo != "2021CS002" {
		t.Errorf("未标记侧不符: %+v", resp.NotMarked)
	}
}

func TestAttendanceService_Reconciliation_SessionNotFound(t *testing.T) {
	f := newAttendanceFixture()
	if _, err := f.svc.Reconciliation(context.Background(), "no-such"); !errors.Is(err, ErrClassSessionNotFound) {
		t.Errorf("期望 ErrClassSessionNotFound，实际 %v", err)
	}
}

// ────────────────────── BulkCreate ──────────────────────

func TestAttendanceService_BulkCreate(t *testing.T) {
	f := newAttendanceFixture()
	f.seedSession("cs-1", "off-1")
	f.seedEnrollment("s1", "2021CS001", "off-1")
	f.seedEnrollment("s2", "2021CS002", "off-1")
	ctx := context.Background()

	req := &dto.BulkAttendanceRequest{Entries: []dto.BulkAttendanceEntry{
		{StudentID: "s1", Status: model.AttendanceStatusPresent},
		{StudentID: "s2", Status: model.AttendanceStatusLate},
		{StudentID: "s1", Status: model.AttendanceStatusPresent}, // 重复勾选
		{StudentID: "ghost", Status: model.AttendanceStatusPresent},
	}}

	result, recon, err := f.svc.BulkCreate(ctx, "cs-1", req)
	if err != nil {
		t.Fatalf("BulkCreate 失败: %v", err)
	}
	if result.SuccessCount != 2 || result.FailedCount != 2 {
		t.Fatalf("期望 2 成功 2 失败，实际 %d/%d", result.SuccessCount, result.FailedCount)
	}
	// 逐条结果总数恒等于请求条数
	if result.SuccessCount+result.FailedCount != len(req.Entries) {
		t.Errorf("结果总数期望 %d，实际 %d", len(req.Entries), result.SuccessCount+result.FailedCount)
	}
	reasons := map[string]string{}
	for _, fr := range result.FailedRecords {
		reasons[fr.Reference] = fr.Reason
	}
	if reasons["s1"] != "duplicate student in this submission" {
		t.Errorf("重复勾选原因不符: %q", reasons["s1"])
	}
	if reasons["ghost"] != "no active enrollment for this course offering" {
		t.Errorf("无选课原因不符: %q", reasons["ghost"])
	}

	// 写后对账视图已刷新
	if recon == nil {
		t.Fatal("期望返回刷新后的对账视图")
	}
	if len(recon.Marked) != 2 || len(recon.NotMarked) != 0 {
		t.Errorf("对账期望 2 已标记 / 0 未标记，实际 %d/%d", len(recon.Marked), len(recon.NotMarked))
	}
}

func TestAttendanceService_BulkCreate_AllFailed(t *testing.T) {
	f := newAttendanceFixture()
	f.seedSession("cs-1", "off-1")

	req := &dto.BulkAttendanceRequest{Entries: []dto.BulkAttendanceEntry{
		{StudentID: "ghost", Status: model.AttendanceStatusPresent},
	}}
	result, recon, err := f.svc.BulkCreate(context.Background(), "cs-1", req)
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessCount != 0 || result.FailedCount != 1 {
		t.Errorf("期望 0 成功 1 失败，实际 %d/%d", result.SuccessCount, result.FailedCount)
	}
	if recon != nil {
		t.Error("零成功提交不应返回对账视图")
	}
	if len(f.attendance.records) != 0 {
		t.Errorf("不应有任何落库记录，实际 %d", len(f.attendance.records))
	}
}

// ────────────────────── BulkDelete ──────────────────────

func TestAttendanceService_BulkDelete(t *testing.T) {
	f := newAttendanceFixture()
	f.seedSession("cs-1", "off-1")
	ctx := context.Background()

	// s1 在该场次有两条重复记录，删除应一并移除
	_ = f.attendance.Create(ctx, &model.AttendanceRecord{StudentID: "s1", ClassSessionID: "cs-1", Status: model.AttendanceStatusAbsent})
	_ = f.attendance.Create(ctx, &model.AttendanceRecord{StudentID: "s1", ClassSessionID: "cs-1", Status: model.AttendanceStatusPresent})
	_ = f.attendance.Create(ctx, &model.AttendanceRecord{StudentID: "s2", ClassSessionID: "cs-other", Status: model.AttendanceStatusPresent})

	result, err := f.svc.BulkDelete(ctx, "cs-1", &dto.BulkDeleteAttendanceRequest{
		StudentIDs: []string{"s1", "s-none"},
	})
	if err != nil {
		t.Fatalf("BulkDelete 失败: %v", err)
	}
	if result.DeletedCount != 2 {
		t.Errorf("期望删除 2 条，实际 %d", result.DeletedCount)
	}
	if len(result.FailedIDs) != 1 || result.FailedIDs[0] != "s-none" {
		t.Errorf("无记录学生应进入 FailedIDs: %+v", result.FailedIDs)
	}
	// 其他场次的记录不受影响
	if len(f.attendance.records) != 1 {
		t.Errorf("期望剩余 1 条记录，实际 %d", len(f.attendance.records))
	}
}

// ────────────────────── ExportXLSX ──────────────────────

func TestAttendanceService_ExportXLSX(t *testing.T) {
	f := newAttendanceFixture()
	f.seedSession("cs-1", "off-1")
	f.seedEnrollment("s1", "2021CS001", "off-1")
	f.seedEnrollment("s2", "2021CS002", "off-1")
	ctx := context.Background()

	_ = f.attendance.Create(ctx, &model.AttendanceRecord{
		StudentID: "s1", ClassSessionID: "cs-1",
		Status: model.AttendanceStatusPresent, RecordedAt: time.Now(),
	})

	buf, filename, err := f.svc.ExportXLSX(ctx, "cs-1")
	if err != nil {
		t.Fatalf("ExportXLSX 失败: %v", err)
	}
	if filename != "attendance-2026-03-10-cs-1.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	file, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出文件无法解析: %v", err)
	}
	defer file.Close()
	rows, err := file.GetRows(file.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	// 表头 + 已标记 1 行 + 未标记 1 行
	if len(rows) != 3 {
		t.Fatalf("期望 3 行，实际 %d", len(rows))
	}
	if rows[1][0] != "2021CS001" || rows[1][2] != "present" {
		t.Errorf("已标记行不符: %v", rows[1])
	}
	if rows[2][0] != "2021CS002" {
		t.Errorf("未标记行不符: %v", rows[2])
	}
}

func TestAttendanceService_ExportXLSX_NoEnrollments(t *testing.T) {
	f := newAttendanceFixture()
	f.seedSession("cs-1", "off-1")
	if _, _, err := f.svc.ExportXLSX(context.Background(), "cs-1"); !errors.Is(err, ErrAttendanceNoEnrollments) {
		t.Errorf("期望 ErrAttendanceNoEnrollments，实际 %v", err)
	}
}
