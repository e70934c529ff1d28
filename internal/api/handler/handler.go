package handler

import (
	"campus-sis/config"
	"campus-sis/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Batch      *BatchHandler
	Student    *StudentHandler
	Course     *CourseHandler
	Import     *ImportHandler
	Attendance *AttendanceHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, cfg *config.Config) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Batch:      NewBatchHandler(svc.Batch),
		Student:    NewStudentHandler(svc.Student),
		Course:     NewCourseHandler(svc.Course),
		Import:     NewImportHandler(svc.Import, &cfg.Import),
		Attendance: NewAttendanceHandler(svc.Attendance),
	}
}
