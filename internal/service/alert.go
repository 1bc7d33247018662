package service

import (
	"context"
	"fmt"
	"time"

	"fitness-tracker/internal/models"
	"fitness-tracker/internal/notifier"

	"go.uber.org/zap"
)

// FallAlertStore 跌倒告警持久化（*repository.MotionEventsRepository 实现）
type FallAlertStore interface {
	CreateFallAlert(ctx context.Context, alert *models.FallAlert) error
	MarkNotified(ctx context.Context, tenantID, alertID string) error
}

// FallAlertService 跌倒告警：写库并推送通知
type FallAlertService struct {
	store    FallAlertStore
	notifier notifier.Notifier
	title    string
	logger   *zap.Logger
}

// NewFallAlertService 创建跌倒告警服务
func NewFallAlertService(store FallAlertStore, n notifier.Notifier, title string, logger *zap.Logger) *FallAlertService {
	if n == nil {
		n = notifier.Nop{}
	}
	return &FallAlertService{
		store:    store,
		notifier: n,
		title:    title,
		logger:   logger,
	}
}

// HandleFall 实现 consumer.AlertHandler
func (s *FallAlertService) HandleFall(ctx context.Context, event models.DeviceEvent) error {
	if event.Event.Kind != models.EventFall {
		return fmt.Errorf("not a fall event: %s", event.Event.Kind)
	}

	triggeredAt := time.UnixMilli(event.Event.Timestamp)
	if event.Event.Timestamp == 0 {
		triggeredAt = time.Now()
	}

	// 无租户的设备不落库，仍然推送
	var alert *models.FallAlert
	if event.TenantID != "" && s.store != nil {
		alert = &models.FallAlert{
			TenantID:    event.TenantID,
			DeviceID:    event.DeviceID,
			Magnitude:   event.Event.Magnitude,
			TriggeredAt: triggeredAt,
		}
		if err := s.store.CreateFallAlert(ctx, alert); err != nil {
			return fmt.Errorf("failed to persist fall alert: %w", err)
		}
	}

	n := notifier.FallNotification(s.title, event.DeviceID, event.TenantID, event.Event.Magnitude)
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Error("Failed to notify fall alert",
			zap.String("device_id", event.DeviceID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to notify fall alert: %w", err)
	}

	if alert != nil {
		if err := s.store.MarkNotified(ctx, alert.TenantID, alert.AlertID); err != nil {
			return fmt.Errorf("failed to mark fall alert notified: %w", err)
		}
	}

	s.logger.Info("Fall alert handled",
		zap.String("device_id", event.DeviceID),
		zap.String("tenant_id", event.TenantID),
		zap.Float64("magnitude", event.Event.Magnitude),
	)
	return nil
}
