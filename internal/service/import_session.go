package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"campus-sis/internal/dto"
)

// ── 导入会话状态机 ────────────────────────────────────────
//
// idle → processing → {validated, invalid} → submitting → completed
//
//   - invalid 可在重新上传时回到 processing
//   - completed 可 reset 回 idle（"再导一份"）
//   - submitting 单飞：未结束前拒绝任何再次提交，非法迁移在结构上
//     不可能发生，而不是靠散落的布尔位把守
//   - 解析失败（文件损坏 / 空表）直接 processing → invalid，附一条
//     合成错误，跳过行级校验
//
// 会话独占自己的记录与结果；并发导入之间不共享任何状态。
// ─────────────────────────────────────────────────────────────

// ImportStatus 会话状态
type ImportStatus string

const (
	StatusIdle       ImportStatus = "idle"
	StatusProcessing ImportStatus = "processing"
	StatusValidated  ImportStatus = "validated"
	StatusInvalid    ImportStatus = "invalid"
	StatusSubmitting ImportStatus = "submitting"
	StatusCompleted  ImportStatus = "completed"
)

var (
	ErrSessionNotFound   = errors.New("导入会话不存在或已过期")
	ErrSubmitNotReady    = errors.New("当前状态不可提交")
	ErrSubmitInFlight    = errors.New("提交正在进行中")
	ErrResetNotPermitted = errors.New("当前状态不可重置")
)

// TargetContext 导入目标上下文：学生导入为批次，考勤导入为
// 场次 + 开课。提交前必须非空，与逐行有效性无关。
type TargetContext struct {
	BatchID          string
	ClassSessionID   string
	CourseOfferingID string
}

// Key 目标上下文的锁键，同一上下文同一时间只允许一次提交
func (t TargetContext) Key() string {
	if t.BatchID != "" {
		return "batch:" + t.BatchID
	}
	return fmt.Sprintf("session:%s:%s", t.CourseOfferingID, t.ClassSessionID)
}

// Empty 上下文是否未设置
func (t TargetContext) Empty() bool {
	return t.BatchID == "" && t.ClassSessionID == ""
}

// ImportSession 一次导入的有限状态容器
//
// 所有字段由 mu 保护；对外读取走 Snapshot。
type ImportSession struct {
	mu sync.Mutex

	ID            string
	Kind          string // students | attendance
	Status        ImportStatus
	TargetContext TargetContext
	Records       []*NormalizedRecord
	Errors        []string // 完整错误集
	Result        *dto.SubmissionResult
	UpdatedAt     time.Time
}

// NewImportSession 创建处于 idle 态的会话
func NewImportSession(kind string, target TargetContext) *ImportSession {
	return &ImportSession{
		ID:            uuid.NewString(),
		Kind:          kind,
		Status:        StatusIdle,
		TargetContext: target,
		UpdatedAt:     time.Now(),
	}
}

func (s *ImportSession) touch() { s.UpdatedAt = time.Now() }

// BeginProcessing idle/invalid/completed → processing
func (s *ImportSession) BeginProcessing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.Status {
	case StatusIdle, StatusInvalid, StatusCompleted:
		s.Status = StatusProcessing
		s.Records = nil
		s.Errors = nil
		s.Result = nil
		s.touch()
		return nil
	default:
		return fmt.Errorf("状态 %s 不可开始解析", s.Status)
	}
}

// FinishProcessing processing → validated / invalid，记录与错误集落入会话
func (s *ImportSession) FinishProcessing(records []*NormalizedRecord, report ValidationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status != StatusProcessing {
		return fmt.Errorf("状态 %s 不可结束解析", s.Status)
	}
	s.Records = records
	s.Errors = report.Errors
	if report.AllValid {
		s.Status = StatusValidated
	} else {
		s.Status = StatusInvalid
	}
	s.touch()
	return nil
}

// FailProcessing 解析失败：processing → invalid，单条合成错误
func (s *ImportSession) FailProcessing(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status != StatusProcessing {
		return fmt.Errorf("状态 %s 不可标记解析失败", s.Status)
	}
	s.Records = nil
	s.Errors = []string{message}
	s.Status = StatusInvalid
	s.touch()
	return nil
}

// BeginSubmit validated → submitting（单飞）
func (s *ImportSession) BeginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.Status {
	case StatusSubmitting:
		return ErrSubmitInFlight
	case StatusValidated:
		if s.TargetContext.Empty() {
			return ErrSubmitNotReady
		}
		s.Status = StatusSubmitting
		s.touch()
		return nil
	default:
		return ErrSubmitNotReady
	}
}

// CompleteSubmit submitting → completed，结果落入会话
func (s *ImportSession) CompleteSubmit(result *dto.SubmissionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Result = result
	s.Status = StatusCompleted
	s.touch()
}

// FailSubmit 整批传输失败：submitting → validated，操作员可直接重试
// 而无需重新上传
func (s *ImportSession) FailSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status == StatusSubmitting {
		s.Status = StatusValidated
		s.touch()
	}
}

// Reset completed → idle；invalid 态重置即丢弃已解析内容
func (s *ImportSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.Status {
	case StatusCompleted, StatusInvalid, StatusValidated:
		s.Status = StatusIdle
		s.Records = nil
		s.Errors = nil
		s.Result = nil
		s.touch()
		return nil
	default:
		return ErrResetNotPermitted
	}
}

// SessionView 会话的读快照
type SessionView struct {
	ID            string
	Kind          string
	Status        ImportStatus
	TargetContext TargetContext
	Records       []*NormalizedRecord
	Errors        []string
	Result        *dto.SubmissionResult
}

// Snapshot 取当前状态的一致读
func (s *ImportSession) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionView{
		ID:            s.ID,
		Kind:          s.Kind,
		Status:        s.Status,
		TargetContext: s.TargetContext,
		Records:       s.Records,
		Errors:        s.Errors,
		Result:        s.Result,
	}
}

// ── 会话存储 ──
//
// 进程内存储即可：会话生命周期等同一次操作员交互，不落库。
// 同一目标上下文的新上传直接取代旧会话（无需取消令牌）。

// SessionStore 导入会话的内存存储
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*ImportSession
	byTarget map[string]string // target key → session id
	ttl      time.Duration
}

// NewSessionStore 创建会话存储
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*ImportSession),
		byTarget: make(map[string]string),
		ttl:      ttl,
	}
}

// Put 放入会话；同目标上下文的旧会话被取代并丢弃
func (st *SessionStore) Put(s *ImportSession) {
	st.mu.Lock()
	defer st.mu.Unlock()
	key := s.TargetContext.Key()
	if oldID, ok := st.byTarget[key]; ok && oldID != s.ID {
		delete(st.sessions, oldID)
	}
	st.sessions[s.ID] = s
	st.byTarget[key] = s.ID
}

// Get 按 ID 取会话
func (st *SessionStore) Get(id string) (*ImportSession, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete 删除会话
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return
	}
	delete(st.sessions, id)
	key := s.TargetContext.Key()
	if st.byTarget[key] == id {
		delete(st.byTarget, key)
	}
}

// Sweep 清理超过 TTL 未活动的已终结会话（completed / invalid / idle）
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	cutoff := time.Now().Add(-st.ttl)
	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		stale := s.UpdatedAt.Before(cutoff) &&
			(s.Status == StatusCompleted || s.Status == StatusInvalid || s.Status == StatusIdle)
		s.mu.Unlock()
		if !stale {
			continue
		}
		delete(st.sessions, id)
		key := s.TargetContext.Key()
		if st.byTarget[key] == id {
			delete(st.byTarget, key)
		}
		removed++
	}
	return removed
}

// StartSweeper 启动后台清扫，关闭 stop 通道即退出
func (st *SessionStore) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				st.Sweep()
			case <-stop:
				return
			}
		}
	}()
}
