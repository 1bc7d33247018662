package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqttcommon "fitness-tracker/common/mqtt"
	rediscommon "fitness-tracker/common/redis"
	"fitness-tracker/internal/config"
	"fitness-tracker/internal/models"
	"fitness-tracker/internal/repository"
	"fitness-tracker/internal/session"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Subscriber MQTT 订阅接口（*mqttcommon.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// DeviceResolver 设备查询接口（*repository.DeviceRepository 实现）
type DeviceResolver interface {
	ResolveDevice(ctx context.Context, identifier string) (*repository.Device, error)
}

// MQTTConsumer 网关：MQTT 设备消息 → 采样流
type MQTTConsumer struct {
	config      *config.Config
	mqttClient  Subscriber
	redisClient *redis.Client
	devices     DeviceResolver
	logger      *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient Subscriber,
	redisClient *redis.Client,
	devices DeviceResolver,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:      cfg,
		mqttClient:  mqttClient,
		redisClient: redisClient,
		devices:     devices,
		logger:      logger,
	}
}

func (c *MQTTConsumer) topics() []string {
	return []string{c.config.Motion.Topics.Accel, c.config.Motion.Topics.Command}
}

// Start 订阅采样与命令主题，阻塞直到 ctx 取消
func (c *MQTTConsumer) Start(ctx context.Context) error {
	for _, topic := range c.topics() {
		if err := c.mqttClient.Subscribe(topic, c.config.MQTT.QoS, c.handleMessage); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}

	c.logger.Info("MQTT consumer started", zap.Strings("topics", c.topics()))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if err := c.mqttClient.Unsubscribe(c.topics()...); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage 处理MQTT消息，主题格式: motion/{device}/{accel|command}
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[1] == "" {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	deviceIdentifier := parts[1] // serial_number 或 uid

	msg := &models.MotionMessage{
		Timestamp: time.Now().UnixMilli(),
		Topic:     topic,
	}

	switch parts[2] {
	case "accel":
		samples, err := models.ParseSamples(payload)
		if err != nil {
			return err
		}
		msg.Kind = models.MessageKindSample
		msg.Samples = samples
	case "command":
		cmd, err := parseCommand(payload)
		if err != nil {
			return err
		}
		msg.Kind = models.MessageKindCommand
		msg.Command = string(cmd)
	default:
		return fmt.Errorf("unsupported topic kind %q: %s", parts[2], topic)
	}

	ctx := context.Background()
	device, err := c.devices.ResolveDevice(ctx, deviceIdentifier)
	if err != nil {
		c.logger.Warn("Device not found",
			zap.String("identifier", deviceIdentifier),
			zap.Error(err),
		)
		return fmt.Errorf("device not found: %s", deviceIdentifier)
	}
	msg.DeviceID = device.DeviceID
	msg.TenantID = device.TenantID
	msg.SerialNumber = device.SerialNumber

	streamName := c.config.Motion.Streams.Samples
	streamID, err := rediscommon.PublishJSONToStream(ctx, c.redisClient, streamName, msg)
	if err != nil {
		c.logger.Error("Failed to publish to Redis Streams",
			zap.String("stream", streamName),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish to stream: %w", err)
	}

	c.logger.Debug("Published motion message",
		zap.String("device_id", device.DeviceID),
		zap.String("kind", string(msg.Kind)),
		zap.String("stream_id", streamID),
	)
	return nil
}

// parseCommand 支持 {"command":"start"} 或纯文本 start
func parseCommand(payload []byte) (session.Command, error) {
	var body struct {
		Command string `json:"command"`
	}
	raw := strings.TrimSpace(string(payload))
	if err := json.Unmarshal(payload, &body); err == nil && body.Command != "" {
		raw = body.Command
	} else {
		raw = strings.Trim(raw, `"`)
	}
	return session.ParseCommand(raw)
}
