package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Seanzed08/SmartLab/config"
	"github.com/Seanzed08/SmartLab/internal/api/handler"
	"github.com/Seanzed08/SmartLab/internal/api/router"
	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/internal/service"
	"github.com/Seanzed08/SmartLab/pkg/clock"
	"github.com/Seanzed08/SmartLab/pkg/database"
	"github.com/Seanzed08/SmartLab/pkg/jwt"
	applogger "github.com/Seanzed08/SmartLab/pkg/logger"
	"github.com/Seanzed08/SmartLab/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("SMARTLAB_CONFIG"))
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

	loc, err := cfg.Lab.Location()
	if err != nil {
		logger.Fatal("实验室时区无效", zap.String("timezone", cfg.Lab.Timezone), zap.Error(err))
	}
	clk := clock.Real{Loc: loc}

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", loc.String()),
	)

	// 3. 连接数据库并迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时降级运行，黑名单、限流与实时推送不可用）
	var pub service.Publisher
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，降级运行", zap.Error(err))
		rdb = nil
	} else {
		pub = rdb
	}

	// 5. 绑定校验标签
	if err := dto.RegisterValidators(); err != nil {
		logger.Fatal("注册校验器失败", zap.Error(err))
	}

	// 6. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, service.Deps{
		Clock:     clk,
		Notifier:  service.BuildNotifier(cfg, repo, pub, logger),
		Publisher: pub,
	}, logger)
	h := handler.NewHandler(svc, clk)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 8. 后台清理超时会话
	bgCtx, stopBackground := context.WithCancel(context.Background())
	var bg sync.WaitGroup
	if cfg.Lab.SweepInterval > 0 {
		bg.Add(1)
		go func() {
			defer bg.Done()
			runSweeper(bgCtx, svc.Session, clk, cfg.Lab.SweepInterval, logger)
		}()
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	stopBackground()
	bg.Wait()

	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
