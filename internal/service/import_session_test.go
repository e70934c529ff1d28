package service

import (
	"errors"
	"testing"
	"time"

	"campus-sis/internal/dto"
)

func validatedSession(t *testing.T, target TargetContext) *ImportSession {
	t.Helper()
	s := NewImportSession("students", target)
	if err := s.BeginProcessing(); err != nil {
		t.Fatalf("BeginProcessing 失败: %v", err)
	}
	records := []*NormalizedRecord{
		{SourceRowNumber: 2, Fields: map[string]string{"student_no": "2021CS001"}},
	}
	if err := s.FinishProcessing(records, ValidateRecords(records)); err != nil {
		t.Fatalf("FinishProcessing 失败: %v", err)
	}
	return s
}

// ────────────────────── 状态迁移 ──────────────────────

func TestImportSession_HappyPath(t *testing.T) {
	s := validatedSession(t, TargetContext{BatchID: "batch-1"})
	if s.Status != StatusValidated {
		t.Fatalf("期望 validated，实际 %s", s.Status)
	}

	if err := s.BeginSubmit(); err != nil {
		t.Fatalf("BeginSubmit 失败: %v", err)
	}
	if s.Status != StatusSubmitting {
		t.Fatalf("期望 submitting，实际 %s", s.Status)
	}

	s.CompleteSubmit(&dto.SubmissionResult{SuccessCount: 1})
	if s.Status != StatusCompleted {
		t.Fatalf("期望 completed，实际 %s", s.Status)
	}
	if s.Result == nil || s.Result.SuccessCount != 1 {
		t.Errorf("提交结果未落入会话: %+v", s.Result)
	}
}

func TestImportSession_InvalidBatchCannotSubmit(t *testing.T) {
	s := NewImportSession("students", TargetContext{BatchID: "batch-1"})
	if err := s.BeginProcessing(); err != nil {
		t.Fatalf("BeginProcessing 失败: %v", err)
	}
	bad := &NormalizedRecord{SourceRowNumber: 2}
	bad.addError("email has invalid format")
	records := []*NormalizedRecord{bad}
	if err := s.FinishProcessing(records, ValidateRecords(records)); err != nil {
		t.Fatalf("FinishProcessing 失败: %v", err)
	}
	if s.Status != StatusInvalid {
		t.Fatalf("含错批次期望 invalid，实际 %s", s.Status)
	}

	if err := s.BeginSubmit(); !errors.Is(err, ErrSubmitNotReady) {
		t.Errorf("invalid 态提交期望 ErrSubmitNotReady，实际 %v", err)
	}
}

func TestImportSession_SubmitSingleFlight(t *testing.T) {
	s := validatedSession(t, TargetContext{BatchID: "batch-1"})
	if err := s.BeginSubmit(); err != nil {
		t.Fatalf("首次 BeginSubmit 失败: %v", err)
	}
	// 提交未结束前的第二次提交必须拒绝
	if err := s.BeginSubmit(); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("期望 ErrSubmitInFlight，实际 %v", err)
	}
}

func TestImportSession_EmptyTargetCannotSubmit(t *testing.T) {
	s := validatedSession(t, TargetContext{})
	if err := s.BeginSubmit(); !errors.Is(err, ErrSubmitNotReady) {
		t.Errorf("目标上下文未设置时期望 ErrSubmitNotReady，实际 %v", err)
	}
}

func TestImportSession_FailSubmitReturnsToValidated(t *testing.T) {
	s := validatedSession(t, TargetContext{BatchID: "batch-1"})
	if err := s.BeginSubmit(); err != nil {
		t.Fatalf("BeginSubmit 失败: %v", err)
	}
	s.FailSubmit()
	if s.Status != StatusValidated {
		t.Fatalf("传输失败后期望回到 validated，实际 %s", s.Status)
	}
	// 记录仍在，可直接重试提交
	if len(s.Records) != 1 {
		t.Errorf("传输失败不应丢弃已解析记录，实际 %d 条", len(s.Records))
	}
	if err := s.BeginSubmit(); err != nil {
		t.Errorf("重试提交应被允许: %v", err)
	}
}

func TestImportSession_FailProcessing(t *testing.T) {
	s := NewImportSession("students", TargetContext{BatchID: "batch-1"})
	if err := s.BeginProcessing(); err != nil {
		t.Fatalf("BeginProcessing 失败: %v", err)
	}
	if err := s.FailProcessing("file could not be parsed"); err != nil {
		t.Fatalf("FailProcessing 失败: %v", err)
	}
	if s.Status != StatusInvalid {
		t.Fatalf("解析失败期望 invalid，实际 %s", s.Status)
	}
	if len(s.Errors) != 1 || s.Errors[0] != "file could not be parsed" {
		t.Errorf("期望单条合成错误，实际 %v", s.Errors)
	}
}

func TestImportSession_ReuploadAfterInvalid(t *testing.T) {
	s := NewImportSession("students", TargetContext{BatchID: "batch-1"})
	if err := s.BeginProcessing(); err != nil {
		t.Fatal(err)
	}
	if err := s.FailProcessing("file could not be parsed"); err != nil {
		t.Fatal(err)
	}

	// invalid 可直接再次进入 processing，旧错误清空
	if err := s.BeginProcessing(); err != nil {
		t.Fatalf("invalid → processing 应被允许: %v", err)
	}
	if len(s.Errors) != 0 {
		t.Errorf("重新解析时旧错误应清空，实际 %v", s.Errors)
	}
}

func TestImportSession_Reset(t *testing.T) {
	s := validatedSession(t, TargetContext{BatchID: "batch-1"})
	if err := s.BeginSubmit(); err != nil {
		t.Fatal(err)
	}
	// submitting 态不可重置
	if err := s.Reset(); !errors.Is(err, ErrResetNotPermitted) {
		t.Errorf("submitting 态 Reset 期望 ErrResetNotPermitted，实际 %v", err)
	}

	s.CompleteSubmit(&dto.SubmissionResult{SuccessCount: 1})
	if err := s.Reset(); err != nil {
		t.Fatalf("completed 态 Reset 失败: %v", err)
	}
	if s.Status != StatusIdle || s.Records != nil || s.Result != nil {
		t.Errorf("Reset 后会话未清空: status=%s records=%d result=%+v", s.Status, len(s.Records), s.Result)
	}
}

// ────────────────────── SessionStore ──────────────────────

func TestSessionStore_PutSupersedesSameTarget(t *testing.T) {
	store := NewSessionStore(time.Hour)
	target := TargetContext{BatchID: "batch-1"}

	first := NewImportSession("students", target)
	store.Put(first)
	second := NewImportSession("students", target)
	store.Put(second)

	// 同目标的旧会话被取代
	if _, err := store.Get(first.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("旧会话应被取代，实际 err=%v", err)
	}
	if got, err := store.Get(second.ID); err != nil || got.ID != second.ID {
		t.Errorf("新会话应可取到: %v", err)
	}

	// 不同目标互不影响
	other := NewImportSession("students", TargetContext{BatchID: "batch-2"})
	store.Put(other)
	if _, err := store.Get(second.ID); err != nil {
		t.Errorf("不同目标的会话不应被取代: %v", err)
	}
}

func TestSessionStore_Sweep(t *testing.T) {
	store := NewSessionStore(time.Minute)

	stale := NewImportSession("students", TargetContext{BatchID: "batch-1"})
	stale.Status = StatusCompleted
	stale.UpdatedAt = time.Now().Add(-2 * time.Minute)
	store.Put(stale)

	active := validatedSession(t, TargetContext{BatchID: "batch-2"})
	active.UpdatedAt = time.Now().Add(-2 * time.Minute) // 超时但非终结态
	store.Put(active)

	fresh := NewImportSession("students", TargetContext{BatchID: "batch-3"})
	fresh.Status = StatusCompleted
	store.Put(fresh)

	if removed := store.Sweep(); removed != 1 {
		t.Errorf("期望仅清理 1 个会话，实际 %d", removed)
	}
	if _, err := store.Get(stale.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("过期的 completed 会话应被清理")
	}
	if _, err := store.Get(active.ID); err != nil {
		t.Error("validated 会话不应被清理")
	}
	if _, err := store.Get(fresh.ID); err != nil {
		t.Error("未超时的会话不应被清理")
	}
}
