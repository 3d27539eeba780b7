package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 服务配置（全部来自环境变量）
type Config struct {
	HTTP struct {
		Addr       string
		CORSOrigin string // 允许的前端来源
	}

	// Database PostgreSQL 连接（DATABASE_URL 必填，缺失时启动失败）
	Database struct {
		URL      string
		MaxConns int
		MaxIdle  int
	}

	// Redis 最新读数缓存（可选，连接失败时服务降级为仅查库）
	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// SMTP 共享的邮件服务器；两条通知通道各自独立的凭证和收件人
	SMTP struct {
		Host string
		Port int
	}
	ThresholdMail MailAccount // 阈值触发通道（受去抖限制）
	ManualMail    MailAccount // 显式 alert=true 通道（不受去抖限制）

	Alert struct {
		Cooldown       time.Duration // 去抖冷却窗口，默认 60 秒
		LatestCacheTTL time.Duration // 最新读数缓存 TTL
	}

	HistoryLimit int // /api/history 返回条数上限

	Log struct {
		Level  string
		Format string
	}
}

// MailAccount 一条通知通道的 SMTP 凭证
type MailAccount struct {
	User     string
	Password string
	To       string
}

// Enabled 凭证齐全时通道才会投递
func (a MailAccount) Enabled() bool {
	return a.User != "" && a.Password != "" && a.To != ""
}

// Load 从环境变量加载配置
// DATABASE_URL 缺失时返回错误（调用方应当直接退出，不对外提供服务）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":3000")
	cfg.HTTP.CORSOrigin = getEnv("CORS_ORIGIN", "https://zillco.github.io")

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.SMTP.Host = getEnv("SMTP_HOST", "smtp.gmail.com")
	cfg.SMTP.Port = getEnvInt("SMTP_PORT", 587)

	// 两套独立凭证：来源环境变量不同、收件人不同，不合并（见 DESIGN.md）
	cfg.ThresholdMail.User = getEnv("ALERT_SMTP_USER", "")
	cfg.ThresholdMail.Password = getEnv("ALERT_SMTP_PASSWORD", "")
	cfg.ThresholdMail.To = getEnv("ALERT_SMTP_TO", "")

	cfg.ManualMail.User = getEnv("MANUAL_ALERT_SMTP_USER", "")
	cfg.ManualMail.Password = getEnv("MANUAL_ALERT_SMTP_PASSWORD", "")
	cfg.ManualMail.To = getEnv("MANUAL_ALERT_SMTP_TO", "recipient@example.com")

	cfg.Alert.Cooldown = time.Duration(getEnvInt("ALERT_COOLDOWN_SECONDS", 60)) * time.Second
	cfg.Alert.LatestCacheTTL = time.Duration(getEnvInt("CACHE_LATEST_TTL_SECONDS", 60)) * time.Second

	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", 100)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
