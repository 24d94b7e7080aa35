package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shift-market/backend/config"
	"shift-market/backend/internal/api/handler"
	"shift-market/backend/internal/api/middleware"
	"shift-market/backend/pkg/jwt"
	"shift-market/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时黑名单与限流降级放行
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
	v1.POST("/auth/login", middleware.RateLimit(rdb, 10, cfg.RateLimit.Window), h.Auth.Login)

	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
	{
		// 认证模块
		auth := authorized.Group("/auth")
		{
			auth.POST("/logout", h.Auth.Logout)
			auth.POST("/verify-pin", middleware.RateLimit(rdb, 5, cfg.RateLimit.Window), h.Auth.VerifyPin)
		}

		// 成员模块
		authorized.GET("/users/me", h.User.GetCurrentUser)

		// 班次市场
		market := authorized.Group("/marketplace")
		market.Use(middleware.StaffConfirmation(jwtMgr))
		{
			writeLimit := middleware.RateLimit(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window)

			market.POST("/requests", writeLimit, h.Marketplace.CreateRequest)
			market.POST("/requests/:id/claim", writeLimit, h.Marketplace.Claim)
			market.POST("/requests/:id/respond", writeLimit, h.Marketplace.RespondToSwap)
			market.POST("/requests/:id/resolve", writeLimit, h.Marketplace.Resolve)
			market.POST("/requests/:id/cancel", writeLimit, h.Marketplace.Cancel)

			market.GET("/requests/:id", h.Marketplace.GetRequest)
			market.GET("/open", h.Marketplace.ListOpen)
			market.GET("/my", h.Marketplace.ListMine)
			market.GET("/incoming", h.Marketplace.ListIncoming)
			market.GET("/approvals", h.Marketplace.ListPendingApprovals)
			market.GET("/dashboard", h.Marketplace.Dashboard)
			market.GET("/swappable-shifts", h.Marketplace.ListSwappableShifts)

			market.GET("/export/history", h.Export.ExportHistory)
			market.GET("/calendar.ics", h.Export.ExportCalendar)
		}
	}

	return r
}
