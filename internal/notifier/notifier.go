// Package notifier 推送通知：跌倒告警与手动通知
package notifier

import (
	"context"
	"errors"
	"fmt"
)

// DefaultTitle 未指定标题时使用
const DefaultTitle = "Notificación"

// 通知优先级
const (
	PriorityHigh    = "high"
	PriorityDefault = "default"
)

// Notification 一条推送通知
type Notification struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	DeviceID string `json:"device_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	Priority string `json:"priority"`
}

// Normalize 补全默认值
func (n Notification) Normalize() Notification {
	if n.Title == "" {
		n.Title = DefaultTitle
	}
	if n.Priority == "" {
		n.Priority = PriorityHigh
	}
	return n
}

// Notifier 通知发送接口
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Multi 依次发送到多个通道，返回合并后的错误
type Multi []Notifier

// Notify 实现 Notifier
func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, target := range m {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop 丢弃通知（未配置任何通道时使用）
type Nop struct{}

// Notify 实现 Notifier
func (Nop) Notify(context.Context, Notification) error { return nil }

// FallNotification 跌倒告警通知
func FallNotification(title, deviceID, tenantID string, magnitude float64) Notification {
	return Notification{
		Title:    title,
		Body:     fmt.Sprintf("Device %s reported a fall (%.1f m/s²)", deviceID, magnitude),
		DeviceID: deviceID,
		TenantID: tenantID,
		Priority: PriorityHigh,
	}.Normalize()
}
