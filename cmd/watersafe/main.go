package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watersafe/internal/alert"
	"watersafe/internal/cache"
	"watersafe/internal/config"
	httpapi "watersafe/internal/http"
	"watersafe/internal/logger"
	"watersafe/internal/notifier"
	"watersafe/internal/repository"
	"watersafe/internal/service"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置（缺 DATABASE_URL 直接退出，不对外提供服务）
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "watersafe")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 连接 PostgreSQL（显式生命周期，启动时建连、退出时关闭）
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}
	defer db.Close()
	log.Info("Connected to PostgreSQL")

	// 4. 连接 Redis（可选：连不上时降级为仅查库，不影响启动）
	var latestCache service.LatestCache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis unavailable, latest-reading cache disabled", zap.Error(err))
		redisClient.Close()
		redisClient = nil
	} else {
		latestCache = cache.NewLatestCache(redisClient, cfg.Alert.LatestCacheTTL, log)
		log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 5. 两条独立的邮件通道（各自的凭证和收件人）
	thresholdNotifier := notifier.NewNotifier(
		notifier.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.ThresholdMail.User, cfg.ThresholdMail.Password),
		cfg.ThresholdMail.User,
		cfg.ThresholdMail.To,
		log,
	)
	manualNotifier := notifier.NewNotifier(
		notifier.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.ManualMail.User, cfg.ManualMail.Password),
		cfg.ManualMail.User,
		cfg.ManualMail.To,
		log,
	)
	if !cfg.ThresholdMail.Enabled() {
		log.Warn("Threshold alert mail credentials incomplete, delivery will fail")
	}
	if !cfg.ManualMail.Enabled() {
		log.Warn("Manual alert mail credentials incomplete, delivery will fail")
	}

	// 6. 去抖器 + 服务编排
	debouncer := alert.NewDebouncer(cfg.Alert.Cooldown, log)
	defer debouncer.Stop()

	repo := repository.NewReadingsRepository(db, log)
	sensorService := service.NewSensorService(
		repo,
		latestCache,
		debouncer,
		thresholdNotifier,
		manualNotifier,
		cfg.HistoryLimit,
		log,
	)

	// 7. 路由 + 中间件
	router := httpapi.NewRouter(log)
	router.RegisterSensorRoutes(httpapi.NewSensorHandler(sensorService, log))
	router.RegisterStaticRoutes("web/index.html")
	handler := httpapi.WithSecurityHeaders(httpapi.WithCORS(cfg.HTTP.CORSOrigin, router))

	srv := service.NewServer(cfg.HTTP.Addr, handler, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// 8. 等待信号（优雅关闭）
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server", zap.Error(err))
	}
	if redisClient != nil {
		redisClient.Close()
	}

	log.Info("watersafe stopped")
}
