package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"shift-market/backend/config"
	"shift-market/backend/internal/api/handler"
	"shift-market/backend/internal/api/router"
	"shift-market/backend/internal/reporting"
	"shift-market/backend/internal/repository"
	"shift-market/backend/internal/service"
	"shift-market/backend/pkg/database"
	"shift-market/backend/pkg/jwt"
	applogger "shift-market/backend/pkg/logger"
	"shift-market/backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	rollback := flag.Int("migrate-down", 0, "回滚指定步数的数据库迁移后退出")
	flag.Parse()

	// 0. 加载 .env（文件不存在不报错）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("open_swap_acceptance", cfg.Marketplace.OpenSwapAcceptance),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if *rollback > 0 {
		if err := database.RollbackMigrations(sqlDB, *rollback, logger); err != nil {
			logger.Fatal("数据库迁移回滚失败", zap.Error(err))
		}
		return
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 3.2 只读报表连接
	reportDB, err := database.NewReportingDB(&cfg.Reporting, &cfg.Database, logger)
	if err != nil {
		logger.Fatal("报表库连接失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，黑名单/限流/权限缓存将不可用", zap.Error(err))
		rdb = nil
	}
	var (
		permCache service.PermissionCache
		revoker   handler.TokenRevoker
	)
	if rdb != nil {
		permCache = rdb
		revoker = rdb
	}

	// 5. 市场配置热更新
	settings := config.NewMarketplaceSettings(cfg.Marketplace)
	watching := config.Watch(*configPath, func(next *config.Config, err error) {
		if err != nil {
			logger.Warn("配置文件变更解析失败，沿用旧配置", zap.Error(err))
			return
		}
		settings.Store(next.Marketplace)
		logger.Info("市场配置已热更新",
			zap.String("open_swap_acceptance", next.Marketplace.OpenSwapAcceptance),
			zap.Duration("permission_cache_ttl", next.Marketplace.PermissionCacheTTL),
			zap.Bool("notify_approvers", next.Marketplace.NotifyApprovers),
		)
	})
	if !watching {
		logger.Info("未找到配置文件，市场配置热更新未启用")
	}

	// 6. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(service.Deps{
		Settings: settings,
		Repo:     repo,
		View:     reporting.NewMarketplaceView(reportDB),
		JWT:      jwtMgr,
		Cache:    permCache,
		Mailer:   service.NewResendSender(&cfg.Mail),
		Logger:   logger,
	})
	h := handler.NewHandler(svc, revoker)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	sqlDB.Close()
	reportDB.Close()
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
