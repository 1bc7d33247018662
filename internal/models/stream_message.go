package models

import (
	"encoding/json"
	"fmt"
)

// MessageKind 采样流消息类型
type MessageKind string

const (
	MessageKindSample  MessageKind = "sample"
	MessageKindCommand MessageKind = "command"
)

// MotionMessage 采样流中的标准化消息（网关写入，分类服务消费）
// 采样与控制命令写入同一个 stream，保证同一设备内的顺序
type MotionMessage struct {
	DeviceID     string      `json:"device_id"`
	TenantID     string      `json:"tenant_id"`
	SerialNumber string      `json:"serial_number,omitempty"`
	Kind         MessageKind `json:"kind"`
	Samples      []Sample    `json:"samples,omitempty"`
	Command      string      `json:"command,omitempty"`
	Timestamp    int64       `json:"timestamp"`
	Topic        string      `json:"topic,omitempty"`
}

// ParseMotionMessage 从 Redis Streams 的 values 中解析消息（data 字段为 JSON）
func ParseMotionMessage(values map[string]interface{}) (*MotionMessage, error) {
	raw, ok := values["data"]
	if !ok {
		return nil, fmt.Errorf("missing data field in message")
	}
	dataStr, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("invalid data format in message")
	}

	var msg MotionMessage
	if err := json.Unmarshal([]byte(dataStr), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message data: %w", err)
	}
	if msg.DeviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	switch msg.Kind {
	case MessageKindSample:
		if len(msg.Samples) == 0 {
			return nil, fmt.Errorf("sample message without samples")
		}
	case MessageKindCommand:
		if msg.Command == "" {
			return nil, fmt.Errorf("command message without command")
		}
	default:
		return nil, fmt.Errorf("unknown message kind: %q", msg.Kind)
	}

	return &msg, nil
}

// DeviceEvent 输出事件流中的消息
type DeviceEvent struct {
	DeviceID string `json:"device_id"`
	TenantID string `json:"tenant_id"`
	Event    Event  `json:"event"`
}
