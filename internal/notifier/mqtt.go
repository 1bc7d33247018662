package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Publisher MQTT 发布接口（*mqttcommon.Client 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTNotifier 将通知下发到设备告警主题
type MQTTNotifier struct {
	publisher Publisher
	topic     func(deviceID string) string
	qos       byte
	logger    *zap.Logger
}

// NewMQTTNotifier 创建 MQTT 通知通道，topic 根据设备 ID 生成主题
func NewMQTTNotifier(publisher Publisher, topic func(deviceID string) string, qos byte, logger *zap.Logger) *MQTTNotifier {
	return &MQTTNotifier{
		publisher: publisher,
		topic:     topic,
		qos:       qos,
		logger:    logger,
	}
}

// Notify 发布到 motion/{device}/alert，无设备的通知直接忽略
func (m *MQTTNotifier) Notify(_ context.Context, n Notification) error {
	if n.DeviceID == "" {
		return nil
	}
	n = n.Normalize()

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	topic := m.topic(n.DeviceID)
	if err := m.publisher.Publish(topic, m.qos, false, payload); err != nil {
		return err
	}

	m.logger.Debug("Notification published", zap.String("topic", topic))
	return nil
}
