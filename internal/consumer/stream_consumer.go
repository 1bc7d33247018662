package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	rediscommon "fitness-tracker/common/redis"
	"fitness-tracker/internal/config"
	"fitness-tracker/internal/models"
	"fitness-tracker/internal/session"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrInvalidMessage 采样流消息无法解析
var ErrInvalidMessage = errors.New("invalid motion message")

// AlertHandler 处理跌倒告警（持久化 + 通知）
type AlertHandler interface {
	HandleFall(ctx context.Context, event models.DeviceEvent) error
}

// StreamConsumer 采样流消费者：按设备驱动分类器，输出事件
type StreamConsumer struct {
	config      *config.Config
	redisClient *redis.Client
	sessions    *session.Manager
	state       *StateManager
	alerts      AlertHandler
	logger      *zap.Logger
	metrics     *Metrics

	block time.Duration
}

// NewStreamConsumer 创建 Streams 消费者
func NewStreamConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	sessions *session.Manager,
	state *StateManager,
	alerts AlertHandler,
	logger *zap.Logger,
) *StreamConsumer {
	return &StreamConsumer{
		config:      cfg,
		redisClient: redisClient,
		sessions:    sessions,
		state:       state,
		alerts:      alerts,
		logger:      logger,
		metrics:     NewMetrics(),
		block:       2 * time.Second,
	}
}

// Metrics 返回指标
func (c *StreamConsumer) Metrics() *Metrics {
	return c.metrics
}

// Start 启动消费者，阻塞直到 ctx 取消
func (c *StreamConsumer) Start(ctx context.Context) error {
	stream := c.config.Motion.Streams.Samples
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, stream, c.config.Motion.ConsumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", stream, err)
	}

	c.logger.Info("Stream consumer started",
		zap.String("consumer_group", c.config.Motion.ConsumerGroup),
		zap.String("consumer_name", c.config.Motion.ConsumerName),
		zap.String("stream", stream),
	)

	metricsCtx, metricsCancel := context.WithCancel(ctx)
	defer metricsCancel()
	go c.reportMetrics(metricsCtx)

	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := c.consumeStream(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume stream",
				zap.Error(err),
				zap.Duration("backoff", backoffDuration),
			)

			// 指数退避
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoffDuration):
				backoffDuration *= 2
				if backoffDuration > maxBackoff {
					backoffDuration = maxBackoff
				}
			}
			continue
		}
		backoffDuration = time.Second
	}
}

// consumeStream 读取一批消息并逐条处理，处理完即 ACK
func (c *StreamConsumer) consumeStream(ctx context.Context) error {
	stream := c.config.Motion.Streams.Samples
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		stream,
		c.config.Motion.ConsumerGroup,
		c.config.Motion.ConsumerName,
		c.config.Motion.BatchSize,
		c.block,
	)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		c.metrics.IncrementProcessed()
		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("Failed to process message",
				zap.String("stream_id", msg.ID),
				zap.Error(err),
			)
		}
		// 分类器状态已前进，失败消息同样确认，避免重投导致重复计步
		ids = append(ids, msg.ID)
	}

	if err := rediscommon.AckMessages(ctx, c.redisClient, stream, c.config.Motion.ConsumerGroup, ids...); err != nil {
		return fmt.Errorf("failed to ack messages: %w", err)
	}
	return nil
}

// processMessage 处理单条消息
func (c *StreamConsumer) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	startTime := time.Now()

	m, err := models.ParseMotionMessage(msg.Values)
	if err != nil {
		c.metrics.IncrementFailed(failParse)
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if m.TenantID == "" {
		m.TenantID = c.config.TenantID
	}

	switch m.Kind {
	case models.MessageKindCommand:
		cmd, err := session.ParseCommand(m.Command)
		if err != nil {
			c.metrics.IncrementFailed(failCommand)
			return err
		}
		if err := c.sessions.Command(m.DeviceID, m.TenantID, cmd); err != nil {
			c.metrics.IncrementFailed(failCommand)
			return err
		}
		c.metrics.RecordCommand()

	case models.MessageKindSample:
		events := c.sessions.Process(m.DeviceID, m.TenantID, m.Samples...)
		if err := c.dispatchEvents(ctx, m, events); err != nil {
			// 分类器状态已前进，缓存照常刷新；分类计数已在 dispatchEvents 中记录
			if cacheErr := c.cacheState(ctx, m.DeviceID); cacheErr != nil {
				c.metrics.RecordError(failCache)
				err = errors.Join(err, cacheErr)
			}
			c.metrics.IncrementFailed("")
			return err
		}
	}

	if err := c.cacheState(ctx, m.DeviceID); err != nil {
		c.metrics.IncrementFailed(failCache)
		return err
	}

	c.metrics.IncrementSucceeded(time.Since(startTime))
	return nil
}

// dispatchEvents 发布事件到事件流，跌倒告警交给 AlertHandler
func (c *StreamConsumer) dispatchEvents(ctx context.Context, m *models.MotionMessage, events []models.Event) error {
	var summaries, falls int
	var firstErr error

	for _, e := range events {
		de := models.DeviceEvent{DeviceID: m.DeviceID, TenantID: m.TenantID, Event: e}

		if _, err := rediscommon.PublishJSONToStream(ctx, c.redisClient, c.config.Motion.Streams.Events, de); err != nil {
			c.metrics.RecordError(failPublish)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to publish event: %w", err)
			}
		}

		switch e.Kind {
		case models.EventSummary:
			summaries++
			c.logger.Debug("Activity summary",
				zap.String("device_id", m.DeviceID),
				zap.Int("step_count", e.StepCount),
				zap.String("activity", string(e.Activity)),
				zap.Float64("magnitude", e.Magnitude),
			)
		case models.EventFall:
			falls++
			c.logger.Warn("Fall detected",
				zap.String("device_id", m.DeviceID),
				zap.String("tenant_id", m.TenantID),
				zap.Float64("magnitude", e.Magnitude),
			)
			if c.alerts == nil {
				continue
			}
			if err := c.alerts.HandleFall(ctx, de); err != nil {
				c.metrics.RecordError(failAlert)
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to handle fall alert: %w", err)
				}
			}
		}
	}

	c.metrics.RecordSamples(len(m.Samples), summaries, falls)
	return firstErr
}

// cacheState 将会话快照写入 Redis
func (c *StreamConsumer) cacheState(ctx context.Context, deviceID string) error {
	if c.state == nil {
		return nil
	}
	snap, err := c.sessions.Snapshot(deviceID)
	if err != nil {
		// stop 命令不会创建会话
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if err := c.state.SetState(ctx, snap); err != nil {
		return fmt.Errorf("failed to cache state: %w", err)
	}
	return nil
}

// reportMetrics 定期报告指标（每60秒）
func (c *StreamConsumer) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.logMetrics()
		}
	}
}

func (c *StreamConsumer) logMetrics() {
	snapshot := c.metrics.GetSnapshot()

	var avgProcessingTime time.Duration
	if snapshot.MessagesSucceeded > 0 {
		avgProcessingTime = snapshot.TotalProcessingTime / time.Duration(snapshot.MessagesSucceeded)
	}
	successRate := float64(0)
	if snapshot.MessagesProcessed > 0 {
		successRate = float64(snapshot.MessagesSucceeded) / float64(snapshot.MessagesProcessed) * 100
	}

	c.logger.Info("Metrics report",
		zap.Int64("messages_processed", snapshot.MessagesProcessed),
		zap.Int64("messages_succeeded", snapshot.MessagesSucceeded),
		zap.Int64("messages_failed", snapshot.MessagesFailed),
		zap.Float64("success_rate", successRate),
		zap.Int64("samples_classified", snapshot.SamplesClassified),
		zap.Int64("summaries_emitted", snapshot.SummariesEmitted),
		zap.Int64("falls_detected", snapshot.FallsDetected),
		zap.Int64("commands_applied", snapshot.CommandsApplied),
		zap.Int64("errors_parse", snapshot.ErrorsParse),
		zap.Int64("errors_command", snapshot.ErrorsCommand),
		zap.Int64("errors_publish", snapshot.ErrorsPublish),
		zap.Int64("errors_cache", snapshot.ErrorsCache),
		zap.Int64("errors_alert", snapshot.ErrorsAlert),
		zap.Duration("avg_processing_time", avgProcessingTime),
		zap.Duration("uptime", time.Since(snapshot.StartTime)),
	)
}
