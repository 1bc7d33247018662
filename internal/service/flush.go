package service

import (
	"context"
	"time"

	"fitness-tracker/internal/models"
	"fitness-tracker/internal/session"

	"go.uber.org/zap"
)

// SummaryStore 活动摘要持久化（*repository.MotionEventsRepository 实现）
type SummaryStore interface {
	UpsertActivitySummary(ctx context.Context, s *models.ActivitySummary) error
}

// SnapshotSource 会话快照来源（*session.Manager 实现）
type SnapshotSource interface {
	Snapshots() []session.Snapshot
}

// SummaryFlusher 定期把会话快照写入 motion_activity_summaries
type SummaryFlusher struct {
	sessions SnapshotSource
	store    SummaryStore
	interval time.Duration
	logger   *zap.Logger

	flushed map[string]time.Time
}

// NewSummaryFlusher 创建摘要写库器
func NewSummaryFlusher(sessions SnapshotSource, store SummaryStore, interval time.Duration, logger *zap.Logger) *SummaryFlusher {
	return &SummaryFlusher{
		sessions: sessions,
		store:    store,
		interval: interval,
		logger:   logger,
		flushed:  make(map[string]time.Time),
	}
}

// Run 按间隔写库，ctx 取消后返回
func (f *SummaryFlusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Flush(ctx)
		}
	}
}

// Flush 写入自上次以来有变化的会话，返回写入条数
func (f *SummaryFlusher) Flush(ctx context.Context) int {
	written := 0
	snaps := f.sessions.Snapshots()
	live := make(map[string]struct{}, len(snaps))
	for _, snap := range snaps {
		live[snap.DeviceID] = struct{}{}
		if snap.TenantID == "" {
			continue
		}
		if last, ok := f.flushed[snap.DeviceID]; ok && !snap.UpdatedAt.After(last) {
			continue
		}

		summary := &models.ActivitySummary{
			TenantID:  snap.TenantID,
			DeviceID:  snap.DeviceID,
			StepCount: snap.State.StepCount,
			Activity:  snap.State.CurrentActivity,
			Magnitude: snap.State.Smoothed,
			UpdatedAt: snap.UpdatedAt,
		}
		if err := f.store.UpsertActivitySummary(ctx, summary); err != nil {
			f.logger.Error("Failed to flush activity summary",
				zap.String("device_id", snap.DeviceID),
				zap.Error(err),
			)
			continue
		}
		f.flushed[snap.DeviceID] = snap.UpdatedAt
		written++
	}

	// 已关闭的会话不再跟踪
	for deviceID := range f.flushed {
		if _, ok := live[deviceID]; !ok {
			delete(f.flushed, deviceID)
		}
	}

	if written > 0 {
		f.logger.Debug("Activity summaries flushed", zap.Int("count", written))
	}
	return written
}
