package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-sis/config"
	"campus-sis/internal/api/handler"
	"campus-sis/internal/api/middleware"
	"campus-sis/pkg/jwt"
	"campus-sis/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证，带限流）
		auth := v1.Group("/auth")
		auth.Use(middleware.BodyLimit(1 << 20))
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", middleware.RateLimit(rdb, 20, time.Minute), h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 批次模块（导入目标上下文）
			batches := authorized.Group("/batches")
			{
				batches.GET("", h.Batch.List)
				batches.POST("", middleware.RoleAuth("admin"), h.Batch.Create)
			}

			// 学生模块
			students := authorized.Group("/students")
			{
				students.GET("", h.Student.List)
				students.GET("/:id", h.Student.Get)
				students.POST("", middleware.RoleAuth("admin"), h.Student.Create)
				students.PUT("/:id", middleware.RoleAuth("admin"), h.Student.Update)
				students.DELETE("/:id", middleware.RoleAuth("admin"), h.Student.Delete)
			}

			// 开课与场次模块
			offerings := authorized.Group("/course-offerings")
			{
				offerings.GET("", h.Course.ListOfferings)
				offerings.POST("", middleware.RoleAuth("admin"), h.Course.CreateOffering)
				offerings.GET("/:id/sessions", h.Course.ListSessions)
				offerings.POST("/:id/sessions", middleware.RoleAuth("admin"), h.Course.CreateSession)
				offerings.POST("/:id/sessions/import-ics", middleware.RoleAuth("admin"), h.Course.ImportSessionsICS)
			}

			// 批量导入模块（文件上传，单独的请求体上限）
			imports := authorized.Group("/imports")
			imports.Use(middleware.BodyLimit(cfg.Import.MaxFileSize + 1<<20))
			{
				imports.POST("/students", middleware.RoleAuth("admin"), h.Import.ImportStudents)
				imports.POST("/attendance", middleware.RoleAuth("admin", "staff"), h.Import.ImportAttendance)
				imports.GET("/templates/:kind", h.Import.TemplateCSV)
				imports.GET("/:id", h.Import.GetSession)
				imports.POST("/:id/submit", middleware.RoleAuth("admin", "staff"), h.Import.Submit)
				imports.POST("/:id/reset", middleware.RoleAuth("admin", "staff"), h.Import.Reset)
				imports.GET("/:id/failed.csv", h.Import.FailedCSV)
			}

			// 考勤对账模块
			classSessions := authorized.Group("/class-sessions")
			{
				classSessions.GET("/:id/reconciliation", h.Attendance.Reconciliation)
				classSessions.POST("/:id/attendance/bulk", middleware.RoleAuth("admin", "staff"), h.Attendance.BulkCreate)
				classSessions.DELETE("/:id/attendance", middleware.RoleAuth("admin", "staff"), h.Attendance.BulkDelete)
				classSessions.GET("/:id/attendance/export.xlsx", h.Attendance.ExportXLSX)
			}
		}
	}

	return r
}
