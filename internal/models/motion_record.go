package models

import "time"

// FallAlert 跌倒告警记录（对应 motion_fall_alerts 表）
type FallAlert struct {
	AlertID     string    `json:"alert_id" db:"alert_id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	DeviceID    string    `json:"device_id" db:"device_id"`
	Magnitude   float64   `json:"magnitude" db:"magnitude"`
	TriggeredAt time.Time `json:"triggered_at" db:"triggered_at"`
	Notified    bool      `json:"notified" db:"notified"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ActivitySummary 设备最新活动摘要（对应 motion_activity_summaries 表）
type ActivitySummary struct {
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	DeviceID  string    `json:"device_id" db:"device_id"`
	StepCount int       `json:"step_count" db:"step_count"`
	Activity  Activity  `json:"activity_type" db:"activity_type"`
	Magnitude float64   `json:"magnitude" db:"magnitude"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
