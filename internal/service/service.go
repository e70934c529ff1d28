package service

import (
	"go.uber.org/zap"

	"campus-sis/config"
	"campus-sis/internal/repository"
	"campus-sis/pkg/jwt"
	"campus-sis/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Batch      BatchService
	Student    StudentService
	Course     CourseService
	Import     ImportService
	Attendance AttendanceService

	// Sessions 导入会话存储，由 main 启动 TTL 清扫
	Sessions *SessionStore
}

// NewService 创建 Service 聚合；cache 可为 nil（Redis 未配置时各模块
// 自行降级）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	cache *redis.Client,
	logger *zap.Logger,
) *Service {
	store := NewSessionStore(cfg.Import.SessionTTL)
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, cache, logger),
		Batch:      NewBatchService(repo, logger),
		Student:    NewStudentService(repo, logger),
		Course:     NewCourseService(repo, logger),
		Import:     NewImportService(repo, store, cache, &cfg.Import, logger),
		Attendance: NewAttendanceService(repo, logger),
		Sessions:   store,
	}
}
