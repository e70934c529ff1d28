package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-sis/config"
	"campus-sis/internal/dto"
	"campus-sis/internal/model"
	"campus-sis/internal/repository"
	"campus-sis/pkg/redis"
)

// ── 导入模块业务错误 ──

var (
	ErrImportBatchNotFound    = errors.New("批次不存在")
	ErrClassSessionNotFound   = errors.New("场次不存在")
	ErrImportOfferingMismatch = errors.New("场次不属于指定开课")
	ErrImportLocked           = errors.New("同一目标的导入正在进行中")
	ErrUnknownTemplateKind    = errors.New("未知模板类型")
	ErrNoFailedRecords        = errors.New("该会话没有可导出的失败记录")
)

// ImportService 批量导入业务接口
//
// 控制流：文件 → ColumnMapper → RowNormalizer → ImportValidator →
// （操作员触发）提交 → 逐条结果回填 → 对账刷新。会话由内存存储
// 持有，同一目标上下文的新上传直接取代旧会话。
type ImportService interface {
	// ImportStudents 解析学生导入文件，创建导入会话
	ImportStudents(ctx context.Context, reader io.Reader, batchID string) (*dto.ImportSessionResponse, error)
	// ImportAttendance 解析考勤导入文件，创建导入会话
	ImportAttendance(ctx context.Context, reader io.Reader, classSessionID, courseOfferingID string) (*dto.ImportSessionResponse, error)
	// GetSession 查询会话当前状态
	GetSession(ctx context.Context, id string) (*dto.ImportSessionResponse, error)
	// Submit 提交已校验的批次；考勤导入成功后附带刷新的对账视图
	Submit(ctx context.Context, id string) (*dto.ImportSessionResponse, *dto.ReconciliationResponse, error)
	// Reset 重置会话：completed → idle，invalid 直接丢弃
	Reset(ctx context.Context, id string) error
	// FailedCSV 导出失败记录 CSV
	FailedCSV(ctx context.Context, id string) ([]byte, string, error)
	// TemplateCSV 下载导入模板 CSV，kind ∈ {students, attendance}
	TemplateCSV(kind string) ([]byte, string, error)
}

type importService struct {
	repo   *repository.Repository
	store  *SessionStore
	cache  *redis.Client // 可为 nil，降级为进程内锁
	cfg    *config.ImportConfig
	logger *zap.Logger

	localMu    sync.Mutex
	localLocks map[string]struct{}
}

// NewImportService 创建 ImportService 实例
func NewImportService(repo *repository.Repository, store *SessionStore, cache *redis.Client, cfg *config.ImportConfig, logger *zap.Logger) ImportService {
	return &importService{
		repo:       repo,
		store:      store,
		cache:      cache,
		cfg:        cfg,
		logger:     logger,
		localLocks: make(map[string]struct{}),
	}
}

// ────────────────────── 解析阶段 ──────────────────────

// parseSpreadsheet 读取上传文件的表头与数据行，支持 xlsx 与 csv。
// 模板以 CSV 分发，操作员填完直接上传也要能进同一条流水线。
// 行号为源文件行号：表头 = 1，首个数据行 = 2。全空行跳过但不
// 影响后续行的行号。
func (s *importService) parseSpreadsheet(reader io.Reader) ([]string, []RawRow, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("file could not be read: %w", err)
	}
	// Excel 另存的 CSV 常带 UTF-8 BOM
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	table, err := readXLSXRows(bytes.NewReader(data))
	if err != nil {
		table, err = readCSVRows(bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("file could not be parsed: %w", err)
		}
	}

	if len(table) < 2 {
		return nil, nil, errors.New("file has no data rows (first row is the header)")
	}
	header := table[0]
	var rows []RawRow
	for i := 1; i < len(table); i++ {
		if rowEmpty(table[i]) {
			continue
		}
		rows = append(rows, RawRow{SourceRowNumber: i + 1, Cells: table[i]})
	}
	if len(rows) == 0 {
		return nil, nil, errors.New("file has no data rows (first row is the header)")
	}
	if len(rows) > s.cfg.MaxRows {
		return nil, nil, fmt.Errorf("row count exceeds the limit of %d", s.cfg.MaxRows)
	}
	return header, rows, nil
}

// readXLSXRows 取第一个工作表的全部行
func readXLSXRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetRows(f.GetSheetName(0))
}

func readCSVRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // 行宽不齐交给列映射与必填检查处理
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

func rowEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

// runImport 公共解析流水线：建会话 → 映射列 → 归一化 → 校验
func (s *importService) runImport(reader io.Reader, kind string, target TargetContext, schema *TargetSchema, postNormalize func(*NormalizedRecord)) (*dto.ImportSessionResponse, error) {
	session := NewImportSession(kind, target)
	s.store.Put(session)

	if err := session.BeginProcessing(); err != nil {
		return nil, err
	}

	header, rows, err := s.parseSpreadsheet(reader)
	if err != nil {
		// 解析失败：单条合成错误，跳过行级校验
		_ = session.FailProcessing(err.Error())
		return s.buildSessionResponse(session.Snapshot()), nil
	}

	mapping, err := MapColumns(header, schema)
	if err != nil {
		var missing *MissingColumnsError
		if errors.As(err, &missing) {
			_ = session.FailProcessing(missing.Error())
			return s.buildSessionResponse(session.Snapshot()), nil
		}
		return nil, err
	}

	records := make([]*NormalizedRecord, 0, len(rows))
	for _, row := range rows {
		rec := NormalizeRow(row, mapping, schema)
		if postNormalize != nil {
			postNormalize(rec)
		}
		records = append(records, rec)
	}

	report := ValidateRecords(records)
	if err := session.FinishProcessing(records, report); err != nil {
		return nil, err
	}
	return s.buildSessionResponse(session.Snapshot()), nil
}

// ────────────────────── ImportStudents ──────────────────────

func (s *importService) ImportStudents(ctx context.Context, reader io.Reader, batchID string) (*dto.ImportSessionResponse, error) {
	if _, err := s.repo.Batch.GetByID(ctx, batchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImportBatchNotFound
		}
		return nil, err
	}

	target := TargetContext{BatchID: batchID}
	return s.runImport(reader, "students", target, StudentImportSchema(), nil)
}

// ────────────────────── ImportAttendance ──────────────────────

func (s *importService) ImportAttendance(ctx context.Context, reader io.Reader, classSessionID, courseOfferingID string) (*dto.ImportSessionResponse, error) {
	classSession, err := s.repo.ClassSession.GetByID(ctx, classSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassSessionNotFound
		}
		return nil, err
	}
	if classSession.CourseOfferingID != courseOfferingID {
		return nil, ErrImportOfferingMismatch
	}

	target := TargetContext{ClassSessionID: classSessionID, CourseOfferingID: courseOfferingID}
	return s.runImport(reader, "attendance", target, AttendanceImportSchema(), normalizeAttendanceStatus)
}

// normalizeAttendanceStatus 考勤状态取值校验（归一化后的补充规则）。
// 电子表格里习惯写 "Present"/"Absent"，先做大小写折叠再比对。
func normalizeAttendanceStatus(rec *NormalizedRecord) {
	status, ok := rec.Fields["status"]
	if !ok {
		return // 缺失已由必填检查报告
	}
	folded := strings.ToLower(strings.TrimSpace(status))
	switch folded {
	case model.AttendanceStatusPresent, model.AttendanceStatusAbsent, model.AttendanceStatusLate:
		rec.Fields["status"] = folded
	default:
		delete(rec.Fields, "status")
		rec.addError("status must be one of present, absent, late")
	}
}

// ────────────────────── GetSession ──────────────────────

func (s *importService) GetSession(ctx context.Context, id string) (*dto.ImportSessionResponse, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return s.buildSessionResponse(session.Snapshot()), nil
}

// ────────────────────── Submit ──────────────────────

func (s *importService) Submit(ctx context.Context, id string) (*dto.ImportSessionResponse, *dto.ReconciliationResponse, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return nil, nil, err
	}

	if err := session.BeginSubmit(); err != nil {
		return nil, nil, err
	}

	view := session.Snapshot()
	lockKey := view.TargetContext.Key()
	acquired, err := s.acquireLock(ctx, lockKey)
	if err != nil || !acquired {
		session.FailSubmit()
		if err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrImportLocked
	}
	defer s.releaseLock(ctx, lockKey)

	var result *dto.SubmissionResult
	switch view.Kind {
	case "students":
		result, err = s.submitStudents(ctx, view)
	case "attendance":
		result, err = s.submitAttendance(ctx, view)
	default:
		err = fmt.Errorf("未知导入类型: %s", view.Kind)
	}
	if err != nil {
		// 整批传输失败：回到 validated，操作员可直接重试
		session.FailSubmit()
		s.logger.Error("批量提交失败", zap.String("session", id), zap.Error(err))
		return nil, nil, err
	}

	session.CompleteSubmit(result)

	// 成功量 > 0 时刷新对账：永远重新取数重算，不信任提交前快照
	var recon *dto.ReconciliationResponse
	if view.Kind == "attendance" && result.SuccessCount > 0 {
		recon, err = s.refreshReconciliation(ctx, view.TargetContext)
		if err != nil {
			// 对账刷新失败不回滚提交结果，但必须可见
			s.logger.Error("对账刷新失败", zap.String("session", id), zap.Error(err))
		}
	}

	return s.buildSessionResponse(session.Snapshot()), recon, nil
}

// submitStudents 学生批次提交
//
// 两阶段：先做不触库写的逐条预检（文件内重号、库内已存在学号），
// 再把通过预检的记录放进一个事务批量落库。每条提交记录必有一条
// 结果，总数恒等于批次长度。
func (s *importService) submitStudents(ctx context.Context, view SessionView) (*dto.SubmissionResult, error) {
	result := &dto.SubmissionResult{FailedRecords: []dto.FailedRecord{}}

	studentNos := make([]string, 0, len(view.Records))
	for _, rec := range view.Records {
		studentNos = append(studentNos, rec.Fields["student_no"])
	}
	existing, err := s.repo.Student.ListStudentNos(ctx, studentNos)
	if err != nil {
		return nil, err
	}
	exists := make(map[string]struct{}, len(existing))
	for _, no := range existing {
		exists[no] = struct{}{}
	}

	// 第一阶段：逐条预检
	seen := make(map[string]int, len(view.Records))
	var valid []*NormalizedRecord
	for _, rec := range view.Records {
		no := rec.Fields["student_no"]
		if prev, dup := seen[no]; dup {
			result.FailedCount++
			result.FailedRecords = append(result.FailedRecords, dto.FailedRecord{
				SourceRowNumber: rec.SourceRowNumber,
				Reference:       no,
				Reason:          fmt.Sprintf("duplicate of row %d in this file", prev),
			})
			continue
		}
		seen[no] = rec.SourceRowNumber

		if _, ok := exists[no]; ok {
			result.FailedCount++
			result.FailedRecords = append(result.FailedRecords, dto.FailedRecord{
				SourceRowNumber: rec.SourceRowNumber,
				Reference:       no,
				Reason:          "student number already exists",
			})
			continue
		}
		valid = append(valid, rec)
	}

	// 第二阶段：事务内批量创建
	if len(valid) > 0 {
		students := make([]*model.Student, 0, len(valid))
		for _, rec := range valid {
			students = append(students, &model.Student{
				StudentNo:   rec.Fields["student_no"],
				FullName:    rec.Fields["full_name"],
				Email:       rec.Fields["email"],
				Phone:       rec.Fields["phone"],
				DateOfBirth: rec.Fields["date_of_birth"],
				Address:     rec.Fields["address"],
				BatchID:     view.TargetContext.BatchID,
			})
		}

		tx, err := s.repo.BeginTx(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.repo.WithTx(tx).Student.CreateBatch(ctx, students); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			// 落库整体失败但传输本身成功：无逐条明细可用，降级为
			// 整批失败记账并标记 Degraded，避免与真实部分失败混淆
			s.logger.Warn("学生批量落库失败，降级为整批失败", zap.Error(err))
			for _, rec := range valid {
				result.FailedCount++
				result.FailedRecords = append(result.FailedRecords, dto.FailedRecord{
					SourceRowNumber: rec.SourceRowNumber,
					Reference:       rec.Fields["student_no"],
					Reason:          "bulk insert failed",
				})
			}
			result.Degraded = true
			return result, nil
		}
		if tx != nil {
			if err := tx.Commit().Error; err != nil {
				return nil, err
			}
		}
		result.SuccessCount = len(valid)
	}

	return result, nil
}

// submitAttendance 考勤批次提交
func (s *importService) submitAttendance(ctx context.Context, view SessionView) (*dto.SubmissionResult, error) {
	result := &dto.SubmissionResult{FailedRecords: []dto.FailedRecord{}}

	enrollments, err := s.repo.Enrollment.ListByOffering(ctx, view.TargetContext.CourseOfferingID)
	if err != nil {
		return nil, err
	}
	// 学号 → active 选课学生
	byNo := make(map[string]string, len(enrollments))
	for _, e := range enrollments {
		if e.Student != nil {
			byNo[e.Student.StudentNo] = e.StudentID
		}
	}

	recordedAt := time.Now()
	seen := make(map[string]int, len(view.Records))
	var valid []*model.AttendanceRecord
	var validRows []*NormalizedRecord
	for _, rec := range view.Records {
		no := rec.Fields["student_no"]
		if prev, dup := seen[no]; dup {
			result.FailedCount++
			result.FailedRecords = append(result.FailedRecords, dto.FailedRecord{
				SourceRowNumber: rec.SourceRowNumber,
				Reference:       no,
				Reason:          fmt.Sprintf("duplicate of row %d in this file", prev),
			})
			continue
		}
		seen[no] = rec.SourceRowNumber

		studentID, enrolled := byNo[no]
		if !enrolled {
			result.FailedCount++
			result.FailedRecords = append(result.FailedRecords, dto.FailedRecord{
				SourceRowNumber: rec.SourceRowNumber,
				Reference:       no,
				Reason:          "no active enrollment for this course offering",
			})
			continue
		}

		valid = append(valid, &model.AttendanceRecord{
			StudentID:      studentID,
			ClassSessionID: view.TargetContext.ClassSessionID,
			Status:         rec.Fields["status"],
			RecordedAt:     recordedAt,
		})
		validRows = append(validRows, rec)
	}

	if len(valid) > 0 {
		tx, err := s.repo.BeginTx(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.repo.WithTx(tx).Attendance.CreateBatch(ctx, valid); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Warn("考勤批量落库失败，降级为整批失败", zap.Error(err))
			for _, rec := range validRows {
				result.FailedCount++
				result.FailedRecords = append(result.FailedRecords, dto.FailedRecord{
					SourceRowNumber: rec.SourceRowNumber,
					Reference:       rec.Fields["student_no"],
					Reason:          "bulk insert failed",
				})
			}
			result.Degraded = true
			return result, nil
		}
		if tx != nil {
			if err := tx.Commit().Error; err != nil {
				return nil, err
			}
		}
		result.SuccessCount = len(valid)
	}

	return result, nil
}

// refreshReconciliation 重新取数并重算对账视图
func (s *importService) refreshReconciliation(ctx context.Context, target TargetContext) (*dto.ReconciliationResponse, error) {
	enrollments, err := s.repo.Enrollment.ListByOffering(ctx, target.CourseOfferingID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.Attendance.ListBySession(ctx, target.ClassSessionID)
	if err != nil {
		return nil, err
	}
	set := BuildReconciliation(enrollments, records)
	return buildReconciliationResponse(target.ClassSessionID, set), nil
}

// ────────────────────── Reset ──────────────────────

func (s *importService) Reset(ctx context.Context, id string) error {
	session, err := s.store.Get(id)
	if err != nil {
		return err
	}
	view := session.Snapshot()
	if view.Status == StatusInvalid {
		// invalid 态重置即丢弃整个会话
		s.store.Delete(id)
		return nil
	}
	return session.Reset()
}

// ────────────────────── FailedCSV ──────────────────────

// FailedCSV 失败记录导出：completed 会话导出提交失败明细，invalid
// 会话导出校验错误。内嵌引号按 CSV 双引号转义（encoding/csv 默认）。
func (s *importService) FailedCSV(ctx context.Context, id string) ([]byte, string, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return nil, "", err
	}
	view := session.Snapshot()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	switch {
	case view.Status == StatusCompleted && view.Result != nil && len(view.Result.FailedRecords) > 0:
		_ = w.Write([]string{"row", "reference", "reason"})
		for _, fr := range view.Result.FailedRecords {
			_ = w.Write([]string{fmt.Sprintf("%d", fr.SourceRowNumber), fr.Reference, fr.Reason})
		}
	case view.Status == StatusInvalid && len(view.Errors) > 0:
		_ = w.Write([]string{"error"})
		for _, e := range view.Errors {
			_ = w.Write([]string{e})
		}
	default:
		return nil, "", ErrNoFailedRecords
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("import-%s-failed.csv", view.ID)
	return buf.Bytes(), filename, nil
}

// ────────────────────── TemplateCSV ──────────────────────

func (s *importService) TemplateCSV(kind string) ([]byte, string, error) {
	var schema *TargetSchema
	switch kind {
	case "students":
		schema = StudentImportSchema()
	case "attendance":
		schema = AttendanceImportSchema()
	default:
		return nil, "", ErrUnknownTemplateKind
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		header = append(header, f.Label)
	}
	_ = w.Write(header)
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("%s-template.csv", kind), nil
}

// ────────────────────── 锁 ──────────────────────

// acquireLock 目标上下文锁：优先 Redis SetNX，未配置 Redis 时退化为
// 进程内锁（单实例部署语义等价）
func (s *importService) acquireLock(ctx context.Context, key string) (bool, error) {
	if s.cache != nil {
		return s.cache.AcquireImportLock(ctx, key, s.cfg.LockTTL)
	}
	s.localMu.Lock()
	defer s.localMu.Unlock()
	if _, held := s.localLocks[key]; held {
		return false, nil
	}
	s.localLocks[key] = struct{}{}
	return true, nil
}

func (s *importService) releaseLock(ctx context.Context, key string) {
	if s.cache != nil {
		if err := s.cache.ReleaseImportLock(ctx, key); err != nil {
			s.logger.Warn("释放导入锁失败", zap.String("key", key), zap.Error(err))
		}
		return
	}
	s.localMu.Lock()
	defer s.localMu.Unlock()
	delete(s.localLocks, key)
}

// ────────────────────── 响应装配 ──────────────────────

// buildSessionResponse 会话 → DTO；错误与预览的截断只发生在这里
func (s *importService) buildSessionResponse(view SessionView) *dto.ImportSessionResponse {
	preview := make([]map[string]string, 0, dto.PreviewRowCap)
	for _, rec := range view.Records {
		if len(preview) == dto.PreviewRowCap {
			break
		}
		row := make(map[string]string, len(rec.Fields))
		for k, v := range rec.Fields {
			row[k] = v
		}
		preview = append(preview, row)
	}

	return &dto.ImportSessionResponse{
		ID:               view.ID,
		Kind:             view.Kind,
		Status:           string(view.Status),
		RecordCount:      len(view.Records),
		Errors:           CapErrors(view.Errors, dto.ErrorDisplayCap),
		TotalErrors:      len(view.Errors),
		PreviewRows:      preview,
		SubmissionResult: view.Result,
	}
}

func buildReconciliationResponse(classSessionID string, set ReconciliationSet) *dto.ReconciliationResponse {
	resp := &dto.ReconciliationResponse{
		ClassSessionID: classSessionID,
		Marked:         []dto.ReconciliationEntry{},
		NotMarked:      []dto.ReconciliationEntry{},
	}
	for _, m := range set.Marked {
		entry := dto.ReconciliationEntry{
			StudentID:  m.Enrollment.StudentID,
			Status:     m.Record.Status,
			RecordedAt: m.Record.RecordedAt.Format(time.RFC3339),
		}
		if m.Enrollment.Student != nil {
			entry.StudentNo = m.Enrollment.Student.StudentNo
			entry.FullName = m.Enrollment.Student.FullName
		}
		resp.Marked = append(resp.Marked, entry)
	}
	for _, e := range set.NotMarked {
		entry := dto.ReconciliationEntry{StudentID: e.StudentID}
		if e.Student != nil {
			entry.StudentNo = e.Student.StudentNo
			entry.FullName = e.Student.FullName
		}
		resp.NotMarked = append(resp.NotMarked, entry)
	}
	return resp
}
