package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Seanzed08/SmartLab/config"
	"github.com/Seanzed08/SmartLab/internal/api/handler"
	"github.com/Seanzed08/SmartLab/internal/api/middleware"
	"github.com/Seanzed08/SmartLab/internal/metrics"
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/pkg/jwt"
	"github.com/Seanzed08/SmartLab/pkg/redis"
)

// maxBodyBytes 请求体上限，批量排课与开放时间请求都很小
const maxBodyBytes = 1 << 20

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
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 运维 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb))
	{
		staff := middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin)
		admin := middleware.RoleAuth(model.RoleAdmin)

		// 开放时间
		v1.GET("/operating-hours", staff, h.OperatingHour.ListWeek)
		v1.PUT("/operating-hours", admin, h.OperatingHour.UpdateWeek)

		// 批量排课
		v1.POST("/schedules/generate", staff, h.Schedule.Generate)

		// 排课管理（持有人鉴权在 Service 层）
		allocations := v1.Group("/allocations", staff)
		{
			allocations.GET("/calendar.ics", middleware.RoleAuth(model.RoleTeacher), h.Calendar.TeacherFeed)
			allocations.PUT("/:id/section", h.Allocation.UpdateSection)
			allocations.POST("/:id/cancel", h.Allocation.Cancel)
		}

		// 实验室
		rooms := v1.Group("/rooms/:id", staff)
		{
			rooms.GET("/allocations", h.Allocation.ListRoomAllocations)
			rooms.GET("/sessions", h.Session.ActiveSessions)
			rooms.POST("/allocations/cancel-future", admin, h.Allocation.CancelFuture)
			rooms.POST("/archive", admin, h.Allocation.ArchiveRoom)
		}

		v1.POST("/assignments/:id/deactivate", admin, h.Allocation.DeactivateAssignment)

		// 使用申请（审批人鉴权在 Service 层：实验室负责人）
		reservations := v1.Group("/reservations", staff)
		{
			reservations.POST("", middleware.RoleAuth(model.RoleTeacher), h.Reservation.Submit)
			reservations.GET("/mine", h.Reservation.ListMine)
			reservations.GET("/pending", h.Reservation.ListPending)
			reservations.GET("/:id", h.Reservation.Get)
			reservations.POST("/:id/approve", h.Reservation.Approve)
			reservations.POST("/:id/reject", h.Reservation.Reject)
		}

		// 刷卡与会话
		sessions := v1.Group("/sessions")
		{
			sessions.POST("/tap",
				middleware.RoleAuth(model.RoleReader),
				middleware.RateLimit(rdb, cfg.RateLimit.TapLimit, cfg.RateLimit.TapWindow),
				h.Session.Tap,
			)
			sessions.POST("/sweep", admin, h.Session.Sweep)
		}

		// 站内通知
		notifications := v1.Group("/notifications", staff)
		{
			notifications.GET("", h.Notification.ListMine)
			notifications.PUT("/:id/read", h.Notification.MarkRead)
		}
	}

	return r
}
