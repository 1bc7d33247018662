package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// Sample 三轴加速度采样（m/s²）
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude 加速度向量的欧氏范数
func (s Sample) Magnitude() float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// Activity 活动类型
type Activity string

const (
	ActivityStationary Activity = "stationary"
	ActivityWalking    Activity = "walking"
	ActivityRunning    Activity = "running"
)

// Valid 是否为已知活动类型
func (a Activity) Valid() bool {
	switch a {
	case ActivityStationary, ActivityWalking, ActivityRunning:
		return true
	}
	return false
}

// EventKind 事件种类
type EventKind int

const (
	// EventSummary 周期性摘要 {stepCount, activityType, magnitude}
	EventSummary EventKind = iota
	// EventFall 跌倒告警 {type, magnitude, timestamp}
	EventFall
)

// FallDetectedType 跌倒告警的 type 字段
const FallDetectedType = "fall_detected"

func (k EventKind) String() string {
	switch k {
	case EventSummary:
		return "summary"
	case EventFall:
		return FallDetectedType
	}
	return "unknown"
}

// Event 分类器输出事件（摘要与跌倒告警二选一）
type Event struct {
	Kind      EventKind
	StepCount int      // 仅 EventSummary
	Activity  Activity // 仅 EventSummary，已确认的活动类型
	Magnitude float64  // EventSummary 为平滑值，EventFall 为原始值
	Timestamp int64    // 仅 EventFall，epoch 毫秒
}

type summaryWire struct {
	StepCount    int      `json:"stepCount"`
	ActivityType Activity `json:"activityType"`
	Magnitude    float64  `json:"magnitude"`
}

type fallWire struct {
	Type      string  `json:"type"`
	Magnitude float64 `json:"magnitude"`
	Timestamp int64   `json:"timestamp"`
}

// MarshalJSON 按事件种类输出对应的 JSON 结构
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EventSummary:
		return json.Marshal(summaryWire{
			StepCount:    e.StepCount,
			ActivityType: e.Activity,
			Magnitude:    e.Magnitude,
		})
	case EventFall:
		return json.Marshal(fallWire{
			Type:      FallDetectedType,
			Magnitude: e.Magnitude,
			Timestamp: e.Timestamp,
		})
	}
	return nil, fmt.Errorf("unknown event kind: %d", e.Kind)
}

// UnmarshalJSON 根据是否带 type 字段区分事件种类
func (e *Event) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type         string   `json:"type"`
		StepCount    int      `json:"stepCount"`
		ActivityType Activity `json:"activityType"`
		Magnitude    float64  `json:"magnitude"`
		Timestamp    int64    `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	switch probe.Type {
	case FallDetectedType:
		*e = Event{Kind: EventFall, Magnitude: probe.Magnitude, Timestamp: probe.Timestamp}
	case "":
		*e = Event{
			Kind:      EventSummary,
			StepCount: probe.StepCount,
			Activity:  probe.ActivityType,
			Magnitude: probe.Magnitude,
		}
	default:
		return fmt.Errorf("unknown event type: %s", probe.Type)
	}
	return nil
}

// ParseSamples 解析采样负载：单个 {x,y,z} 或 {samples:[...]}
func ParseSamples(payload []byte) ([]Sample, error) {
	var batch struct {
		Samples []Sample `json:"samples"`
		*Sample
	}
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal samples: %w", err)
	}
	if len(batch.Samples) > 0 {
		return batch.Samples, nil
	}
	if batch.Sample != nil {
		return []Sample{*batch.Sample}, nil
	}
	return nil, fmt.Errorf("payload contains no samples")
}
