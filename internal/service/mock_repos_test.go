package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"campus-sis/internal/model"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // 同时按 user_id 与 "email:<email>" 索引
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "uid-" + user.Email
	}
	m.users[user.UserID] = user
	m.users["email:"+user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.users["email:"+email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock BatchRepository ──

type mockBatchRepo struct {
	batches map[string]*model.Batch
}

func newMockBatchRepo() *mockBatchRepo {
	return &mockBatchRepo{batches: make(map[string]*model.Batch)}
}

func (m *mockBatchRepo) Create(_ context.Context, batch *model.Batch) error {
	if batch.BatchID == "" {
		batch.BatchID = "batch-" + batch.Name
	}
	m.batches[batch.BatchID] = batch
	return nil
}

func (m *mockBatchRepo) GetByID(_ context.Context, id string) (*model.Batch, error) {
	if b, ok := m.batches[id]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBatchRepo) GetByName(_ context.Context, name string) (*model.Batch, error) {
	for _, b := range m.batches {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBatchRepo) List(_ context.Context) ([]model.Batch, error) {
	var result []model.Batch
	for _, b := range m.batches {
		result = append(result, *b)
	}
	return result, nil
}

func (m *mockBatchRepo) Delete(_ context.Context, id string) error {
	delete(m.batches, id)
	return nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students       map[string]*model.Student // 按 student_id 索引
	createBatchErr error                     // 注入批量落库失败
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	if student.StudentID == "" {
		student.StudentID = "sid-" + student.StudentNo
	}
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) CreateBatch(ctx context.Context, students []*model.Student) error {
	if m.createBatchErr != nil {
		return m.createBatchErr
	}
	for _, st := range students {
		if err := m.Create(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if st, ok := m.students[id]; ok {
		return st, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByStudentNo(_ context.Context, studentNo string) (*model.Student, error) {
	for _, st := range m.students {
		if st.StudentNo == studentNo {
			return st, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) ListStudentNos(_ context.Context, studentNos []string) ([]string, error) {
	want := make(map[string]struct{}, len(studentNos))
	for _, no := range studentNos {
		want[no] = struct{}{}
	}
	var existing []string
	for _, st := range m.students {
		if _, ok := want[st.StudentNo]; ok {
			existing = append(existing, st.StudentNo)
		}
	}
	return existing, nil
}

func (m *mockStudentRepo) ListByBatch(_ context.Context, batchID string) ([]model.Student, error) {
	var result []model.Student
	for _, st := range m.students {
		if st.BatchID == batchID {
			result = append(result, *st)
		}
	}
	return result, nil
}

func (m *mockStudentRepo) List(_ context.Context, batchID, _ string, _, _ int) ([]model.Student, int64, error) {
	var result []model.Student
	for _, st := range m.students {
		if batchID == "" || st.BatchID == batchID {
			result = append(result, *st)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockStudentRepo) Update(_ context.Context, student *model.Student) error {
	if _, ok := m.students[student.StudentID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) Delete(_ context.Context, id string) error {
	delete(m.students, id)
	return nil
}

// ── Mock CourseOfferingRepository ──

type mockCourseOfferingRepo struct {
	offerings map[string]*model.CourseOffering
}

func newMockCourseOfferingRepo() *mockCourseOfferingRepo {
	return &mockCourseOfferingRepo{offerings: make(map[string]*model.CourseOffering)}
}

func (m *mockCourseOfferingRepo) Create(_ context.Context, offering *model.CourseOffering) error {
	if offering.CourseOfferingID == "" {
		offering.CourseOfferingID = "off-" + offering.Code
	}
	m.offerings[offering.CourseOfferingID] = offering
	return nil
}

func (m *mockCourseOfferingRepo) GetByID(_ context.Context, id string) (*model.CourseOffering, error) {
	if o, ok := m.offerings[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseOfferingRepo) ListByBatch(_ context.Context, batchID string) ([]model.CourseOffering, error) {
	var result []model.CourseOffering
	for _, o := range m.offerings {
		if o.BatchID == batchID {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (m *mockCourseOfferingRepo) List(_ context.Context) ([]model.CourseOffering, error) {
	var result []model.CourseOffering
	for _, o := range m.offerings {
		result = append(result, *o)
	}
	return result, nil
}

// ── Mock ClassSessionRepository ──

type mockClassSessionRepo struct {
	sessions map[string]*model.ClassSession
}

func newMockClassSessionRepo() *mockClassSessionRepo {
	return &mockClassSessionRepo{sessions: make(map[string]*model.ClassSession)}
}

func (m *mockClassSessionRepo) Create(_ context.Context, session *model.ClassSession) error {
	if session.ClassSessionID == "" {
		session.ClassSessionID = fmt.Sprintf("cs-%d", len(m.sessions)+1)
	}
	m.sessions[session.ClassSessionID] = session
	return nil
}

func (m *mockClassSessionRepo) CreateBatch(ctx context.Context, sessions []*model.ClassSession) error {
	for _, cs := range sessions {
		if err := m.Create(ctx, cs); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockClassSessionRepo) GetByID(_ context.Context, id string) (*model.ClassSession, error) {
	if cs, ok := m.sessions[id]; ok {
		return cs, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassSessionRepo) ListByOffering(_ context.Context, offeringID string) ([]model.ClassSession, error) {
	var result []model.ClassSession
	for _, cs := range m.sessions {
		if cs.CourseOfferingID == offeringID {
			result = append(result, *cs)
		}
	}
	return result, nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	enrollments map[string]*model.Enrollment
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{enrollments: make(map[string]*model.Enrollment)}
}

func (m *mockEnrollmentRepo) Create(_ context.Context, enrollment *model.Enrollment) error {
	if enrollment.EnrollmentID == "" {
		enrollment.EnrollmentID = fmt.Sprintf("enr-%d", len(m.enrollments)+1)
	}
	m.enrollments[enrollment.EnrollmentID] = enrollment
	return nil
}

func (m *mockEnrollmentRepo) CreateBatch(ctx context.Context, enrollments []*model.Enrollment) error {
	for _, e := range enrollments {
		if err := m.Create(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockEnrollmentRepo) ListByOffering(_ context.Context, offeringID string) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.enrollments {
		if e.CourseOfferingID == offeringID && e.Status == model.EnrollmentStatusActive {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockEnrollmentRepo) GetByStudentAndOffering(_ context.Context, studentID, offeringID string) (*model.Enrollment, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.CourseOfferingID == offeringID {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records        map[string]*model.AttendanceRecord
	createBatchErr error // 注入批量落库失败
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*model.AttendanceRecord)}
}

func (m *mockAttendanceRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	if record.AttendanceID == "" {
		record.AttendanceID = fmt.Sprintf("att-%d", len(m.records)+1)
	}
	m.records[record.AttendanceID] = record
	return nil
}

func (m *mockAttendanceRepo) CreateBatch(ctx context.Context, records []*model.AttendanceRecord) error {
	if m.createBatchErr != nil {
		return m.createBatchErr
	}
	for _, rec := range records {
		if err := m.Create(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockAttendanceRepo) ListBySession(_ context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, rec := range m.records {
		if rec.ClassSessionID == sessionID {
			result = append(result, *rec)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) ListByStudentAndSession(_ context.Context, studentID, sessionID string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, rec := range m.records {
		if rec.StudentID == studentID && rec.ClassSessionID == sessionID {
			result = append(result, *rec)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) DeleteBySession(_ context.Context, sessionID string) (int64, error) {
	var n int64
	for id, rec := range m.records {
		if rec.ClassSessionID == sessionID {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) DeleteByStudentAndSession(_ context.Context, studentID, sessionID string) (int64, error) {
	var n int64
	for id, rec := range m.records {
		if rec.StudentID == studentID && rec.ClassSessionID == sessionID {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}
