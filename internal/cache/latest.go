package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"watersafe/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// latestKey 最新读数的固定缓存键
const latestKey = "watersafe:reading:latest"

// LatestCache 最新读数的 Redis 缓存（看板高频轮询 /api/latest-data，
// 缓存命中时不用回库）。尽力而为：缓存故障只记日志，由调用方回退查库。
type LatestCache struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      *zap.Logger
}

// NewLatestCache 创建最新读数缓存
func NewLatestCache(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *LatestCache {
	return &LatestCache{
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

// SetLatest 写入最新读数（带 TTL）
func (c *LatestCache) SetLatest(ctx context.Context, reading *models.Reading) error {
	jsonData, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	if err := c.redisClient.Set(ctx, latestKey, jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest cache: %w", err)
	}

	c.logger.Debug("Updated latest reading cache",
		zap.String("key", latestKey),
		zap.String("reading_id", reading.ID),
	)
	return nil
}

// GetLatest 读取最新读数；缓存未命中返回 (nil, nil)
func (c *LatestCache) GetLatest(ctx context.Context) (*models.Reading, error) {
	val, err := c.redisClient.Get(ctx, latestKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest cache: %w", err)
	}

	var reading models.Reading
	if err := json.Unmarshal([]byte(val), &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached reading: %w", err)
	}

	return &reading, nil
}
