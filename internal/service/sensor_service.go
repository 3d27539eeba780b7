package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"watersafe/internal/evaluator"
	"watersafe/internal/models"
	"watersafe/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReadingsRepo 读数持久化存储
type ReadingsRepo interface {
	CreateReading(ctx context.Context, reading *models.Reading) error
	GetLatestReading(ctx context.Context) (*models.Reading, error)
	GetLatestByColumn(ctx context.Context, column string) (float64, time.Time, error)
	ListReadings(ctx context.Context, limit int) ([]models.Reading, error)
}

// LatestCache 最新读数缓存（可选，nil 表示未启用）
type LatestCache interface {
	SetLatest(ctx context.Context, reading *models.Reading) error
	GetLatest(ctx context.Context) (*models.Reading, error)
}

// Debouncer 报警去抖：TryAcquire 返回 true 表示取得本冷却窗口内唯一的投递授权
type Debouncer interface {
	TryAcquire() bool
}

// ContaminationNotifier 阈值触发的污染报警通道
type ContaminationNotifier interface {
	SendContaminationAlert(r *models.Reading)
}

// QualityNotifier 显式 alert=true 的水质报警通道
type QualityNotifier interface {
	SendQualityAlert(r *models.Reading)
}

// SensorService 传感器数据服务：入库编排 + 看板只读查询
type SensorService struct {
	repo              ReadingsRepo
	cache             LatestCache
	debouncer         Debouncer
	thresholdNotifier ContaminationNotifier
	manualNotifier    QualityNotifier
	historyLimit      int
	logger            *zap.Logger
}

// NewSensorService 创建传感器数据服务
func NewSensorService(
	repo ReadingsRepo,
	cache LatestCache,
	debouncer Debouncer,
	thresholdNotifier ContaminationNotifier,
	manualNotifier QualityNotifier,
	historyLimit int,
	logger *zap.Logger,
) *SensorService {
	return &SensorService{
		repo:              repo,
		cache:             cache,
		debouncer:         debouncer,
		thresholdNotifier: thresholdNotifier,
		manualNotifier:    manualNotifier,
		historyLimit:      historyLimit,
		logger:            logger,
	}
}

// SubmitReadingRequest 设备提交的原始读数
// 五个数值字段用指针区分"缺失"和"零值"，缺任何一个整条拒绝
type SubmitReadingRequest struct {
	User  string   `json:"user"`
	PH    *float64 `json:"ph"`
	Temp  *float64 `json:"temp"`
	Turb  *float64 `json:"turb"`
	TDS   *float64 `json:"tds"`
	DO    *float64 `json:"do"`
	Alert *bool    `json:"alert"`
}

// SubmitReading 处理一次读数提交：
// 校验 → 落库 → 阈值评估 → 去抖 → 异步报警。
// 返回落库后的完整记录；邮件投递失败不影响返回结果。
func (s *SensorService) SubmitReading(ctx context.Context, req *SubmitReadingRequest) (*models.Reading, error) {
	if req.PH == nil || req.Temp == nil || req.Turb == nil || req.TDS == nil || req.DO == nil {
		s.logger.Warn("Incomplete sensor data received",
			zap.Any("payload", req),
		)
		return nil, ErrIncompleteData
	}

	reading := &models.Reading{
		ID:        uuid.New().String(),
		User:      req.User,
		PH:        *req.PH,
		Temp:      *req.Temp,
		Turb:      *req.Turb,
		TDS:       *req.TDS,
		DO:        *req.DO,
		// 提交方断言的 alert 原样保存，不由阈值推导
		Alert:     req.Alert != nil && *req.Alert,
		Timestamp: time.Now().UTC(),
	}

	if err := s.repo.CreateReading(ctx, reading); err != nil {
		return nil, fmt.Errorf("failed to persist reading: %w", err)
	}

	s.logger.Info("Reading saved",
		zap.String("reading_id", reading.ID),
		zap.Float64("ph", reading.PH),
		zap.Float64("temp", reading.Temp),
		zap.Float64("turb", reading.Turb),
		zap.Float64("tds", reading.TDS),
		zap.Float64("do", reading.DO),
	)

	// 最新读数缓存：尽力而为，失败只记日志
	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, reading); err != nil {
			s.logger.Warn("Failed to update latest reading cache", zap.Error(err))
		}
	}

	// 阈值触发路径：不安全且赢得去抖授权时异步投递（不阻塞响应）
	if evaluator.TriggerUnsafe(reading) && s.debouncer.TryAcquire() {
		go s.thresholdNotifier.SendContaminationAlert(reading)
	}

	// 显式报警路径：alert=true 时独立投递，不受去抖限制
	// （通知器内部吸收投递失败，不影响本次请求）
	if reading.Alert {
		s.manualNotifier.SendQualityAlert(reading)
	}

	return reading, nil
}

// PinValue 单通道最新值
type PinValue struct {
	Pin       string    `json:"pin"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// LatestByPin 查询某通道（v1-v5）最近一次非空取值
func (s *SensorService) LatestByPin(ctx context.Context, pin string) (*PinValue, error) {
	ch, ok := models.ChannelForPin(pin)
	if !ok {
		return nil, ErrInvalidChannel
	}

	value, ts, err := s.repo.GetLatestByColumn(ctx, ch.Column)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &PinValue{Pin: pin, Value: value, Timestamp: ts}, nil
}

// ReadingStatus 最新读数 + 看板状态标签
type ReadingStatus struct {
	models.Reading
	Status string `json:"status"`
}

// LatestWithStatus 查询最新读数并计算 Safe/Unsafe 状态
// 优先读缓存，未命中或缓存故障时回库
func (s *SensorService) LatestWithStatus(ctx context.Context) (*ReadingStatus, error) {
	var latest *models.Reading

	if s.cache != nil {
		cached, err := s.cache.GetLatest(ctx)
		if err != nil {
			s.logger.Warn("Latest reading cache read failed, falling back to DB", zap.Error(err))
		} else {
			latest = cached
		}
	}

	if latest == nil {
		reading, err := s.repo.GetLatestReading(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		latest = reading
	}

	return &ReadingStatus{
		Reading: *latest,
		Status:  evaluator.DashboardStatus(latest),
	}, nil
}

// History 返回至多 historyLimit 条读数（时间倒序）
func (s *SensorService) History(ctx context.Context) ([]models.Reading, error) {
	return s.repo.ListReadings(ctx, s.historyLimit)
}
