package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"watersafe/internal/models"

	"go.uber.org/zap"
)

// ErrNotFound 查询无匹配数据
var ErrNotFound = errors.New("not found")

// ReadingsRepository 传感器读数仓库（PostgreSQL）
type ReadingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingsRepository 创建读数仓库
func NewReadingsRepository(db *sql.DB, logger *zap.Logger) *ReadingsRepository {
	return &ReadingsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateReading 写入一条读数（单条 INSERT，要么完整落库要么不落库）
func (r *ReadingsRepository) CreateReading(ctx context.Context, reading *models.Reading) error {
	if reading == nil {
		return fmt.Errorf("reading is required")
	}
	if reading.ID == "" {
		return fmt.Errorf("reading.id is required")
	}

	query := `
		INSERT INTO sensor_readings (
			reading_id,
			user_name,
			ph,
			temp,
			turb,
			tds,
			dissolved_oxygen,
			alert,
			recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		reading.ID,
		nullString(reading.User),
		reading.PH,
		reading.Temp,
		reading.Turb,
		reading.TDS,
		reading.DO,
		reading.Alert,
		reading.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create reading: %w", err)
	}

	return nil
}

const readingColumns = `
	reading_id,
	user_name,
	ph,
	temp,
	turb,
	tds,
	dissolved_oxygen,
	alert,
	recorded_at
`

// GetLatestReading 获取最新一条读数；无数据时返回 ErrNotFound
func (r *ReadingsRepository) GetLatestReading(ctx context.Context) (*models.Reading, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sensor_readings
		ORDER BY recorded_at DESC
		LIMIT 1
	`, readingColumns)

	reading, err := scanReading(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no readings: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}

	return reading, nil
}

// GetLatestByColumn 获取指定列非空的最新读数的列值和时间戳
// column 只能来自 models 中的固定通道映射（不接受任意输入）
func (r *ReadingsRepository) GetLatestByColumn(ctx context.Context, column string) (float64, time.Time, error) {
	query := fmt.Sprintf(`
		SELECT %s, recorded_at
		FROM sensor_readings
		WHERE %s IS NOT NULL
		ORDER BY recorded_at DESC
		LIMIT 1
	`, column, column)

	var value float64
	var recordedAt time.Time
	err := r.db.QueryRowContext(ctx, query).Scan(&value, &recordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, time.Time{}, fmt.Errorf("no readings for column %s: %w", column, ErrNotFound)
		}
		return 0, time.Time{}, fmt.Errorf("failed to get latest %s: %w", column, err)
	}

	return value, recordedAt, nil
}

// ListReadings 按时间倒序返回至多 limit 条读数；无数据返回空切片
func (r *ReadingsRepository) ListReadings(ctx context.Context, limit int) ([]models.Reading, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sensor_readings
		ORDER BY recorded_at DESC
		LIMIT $1
	`, readingColumns)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return readings, nil
}

// scanner 兼容 *sql.Row 和 *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReading(s scanner) (*models.Reading, error) {
	var reading models.Reading
	var user sql.NullString

	err := s.Scan(
		&reading.ID,
		&user,
		&reading.PH,
		&reading.Temp,
		&reading.Turb,
		&reading.TDS,
		&reading.DO,
		&reading.Alert,
		&reading.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	if user.Valid {
		reading.User = user.String
	}

	return &reading, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
