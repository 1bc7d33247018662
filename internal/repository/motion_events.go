package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitness-tracker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlertNotFound 告警不存在
var ErrAlertNotFound = errors.New("fall alert not found")

// Schema 运动服务表结构
const Schema = `
CREATE TABLE IF NOT EXISTS motion_fall_alerts (
	alert_id     UUID PRIMARY KEY,
	tenant_id    TEXT NOT NULL,
	device_id    TEXT NOT NULL,
	magnitude    DOUBLE PRECISION NOT NULL,
	triggered_at TIMESTAMPTZ NOT NULL,
	notified     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_motion_fall_alerts_device
	ON motion_fall_alerts (tenant_id, device_id, triggered_at DESC);

CREATE TABLE IF NOT EXISTS motion_activity_summaries (
	tenant_id     TEXT NOT NULL,
	device_id     TEXT NOT NULL,
	step_count    INTEGER NOT NULL,
	activity_type TEXT NOT NULL,
	magnitude     DOUBLE PRECISION NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tenant_id, device_id)
);
`

// MotionEventsRepository 跌倒告警与活动摘要仓库
type MotionEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMotionEventsRepository 创建仓库
func NewMotionEventsRepository(db *sql.DB, logger *zap.Logger) *MotionEventsRepository {
	return &MotionEventsRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema 建表（幂等）
func (r *MotionEventsRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure motion schema: %w", err)
	}
	return nil
}

// ============================================
// 跌倒告警
// ============================================

// CreateFallAlert 写入跌倒告警，AlertID 为空时自动生成
func (r *MotionEventsRepository) CreateFallAlert(ctx context.Context, alert *models.FallAlert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if alert.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	if alert.AlertID == "" {
		alert.AlertID = uuid.New().String()
	}

	query := `
		INSERT INTO motion_fall_alerts (
			alert_id,
			tenant_id,
			device_id,
			magnitude,
			triggered_at,
			notified
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		alert.AlertID,
		alert.TenantID,
		alert.DeviceID,
		alert.Magnitude,
		alert.TriggeredAt,
		alert.Notified,
	).Scan(&alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create fall alert: %w", err)
	}

	r.logger.Debug("Fall alert stored",
		zap.String("alert_id", alert.AlertID),
		zap.String("device_id", alert.DeviceID),
	)
	return nil
}

// MarkNotified 标记告警已通知
func (r *MotionEventsRepository) MarkNotified(ctx context.Context, tenantID, alertID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE motion_fall_alerts SET notified = TRUE WHERE alert_id = $1 AND tenant_id = $2`,
		alertID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark fall alert notified: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: alert_id=%s", ErrAlertNotFound, alertID)
	}
	return nil
}

// GetFallAlert 根据 alert_id 获取告警（需验证 tenant_id）
func (r *MotionEventsRepository) GetFallAlert(ctx context.Context, tenantID, alertID string) (*models.FallAlert, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	query := `
		SELECT
			alert_id,
			tenant_id,
			device_id,
			magnitude,
			triggered_at,
			notified,
			created_at
		FROM motion_fall_alerts
		WHERE alert_id = $1
		  AND tenant_id = $2
	`

	var alert models.FallAlert
	err := r.db.QueryRowContext(ctx, query, alertID, tenantID).Scan(
		&alert.AlertID,
		&alert.TenantID,
		&alert.DeviceID,
		&alert.Magnitude,
		&alert.TriggeredAt,
		&alert.Notified,
		&alert.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: alert_id=%s, tenant_id=%s", ErrAlertNotFound, alertID, tenantID)
		}
		return nil, fmt.Errorf("failed to get fall alert: %w", err)
	}

	return &alert, nil
}

// ListFallAlerts 查询告警列表，deviceID 为空时查询租户下全部设备
func (r *MotionEventsRepository) ListFallAlerts(ctx context.Context, tenantID, deviceID string, limit int) ([]models.FallAlert, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT
			alert_id,
			tenant_id,
			device_id,
			magnitude,
			triggered_at,
			notified,
			created_at
		FROM motion_fall_alerts
		WHERE tenant_id = $1
		  AND ($2 = '' OR device_id = $2)
		ORDER BY triggered_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fall alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.FallAlert
	for rows.Next() {
		var a models.FallAlert
		if err := rows.Scan(
			&a.AlertID,
			&a.TenantID,
			&a.DeviceID,
			&a.Magnitude,
			&a.TriggeredAt,
			&a.Notified,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fall alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fall alerts: %w", err)
	}

	return alerts, nil
}

// ============================================
// 活动摘要
// ============================================

// UpsertActivitySummary 写入设备最新活动摘要
func (r *MotionEventsRepository) UpsertActivitySummary(ctx context.Context, s *models.ActivitySummary) error {
	if s == nil {
		return fmt.Errorf("summary is required")
	}
	if s.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}

	query := `
		INSERT INTO motion_activity_summaries (
			tenant_id,
			device_id,
			step_count,
			activity_type,
			magnitude,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, device_id)
		DO UPDATE SET step_count = EXCLUDED.step_count,
		              activity_type = EXCLUDED.activity_type,
		              magnitude = EXCLUDED.magnitude,
		              updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		s.TenantID,
		s.DeviceID,
		s.StepCount,
		string(s.Activity),
		s.Magnitude,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert activity summary: %w", err)
	}
	return nil
}

// ListActivitySummaries 查询租户下所有设备的活动摘要
func (r *MotionEventsRepository) ListActivitySummaries(ctx context.Context, tenantID string) ([]models.ActivitySummary, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `
		SELECT
			tenant_id,
			device_id,
			step_count,
			activity_type,
			magnitude,
			updated_at
		FROM motion_activity_summaries
		WHERE tenant_id = $1
		ORDER BY device_id
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.ActivitySummary
	for rows.Next() {
		var s models.ActivitySummary
		var activity string
		if err := rows.Scan(
			&s.TenantID,
			&s.DeviceID,
			&s.StepCount,
			&activity,
			&s.Magnitude,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity summary: %w", err)
		}
		s.Activity = models.Activity(activity)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity summaries: %w", err)
	}

	return summaries, nil
}
