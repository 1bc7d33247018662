package classifier

import (
	"fmt"
	"time"
)

// Params 分类器阈值参数（加速度单位 m/s²）
type Params struct {
	FallThreshold     float64       // 超过即跌倒告警
	StepLow           float64       // 步态低阈值
	StepHigh          float64       // 步态高阈值
	MinStepInterval   time.Duration // 两步之间的最小间隔（不应期）
	HistorySize       int           // 平滑窗口大小
	WalkingThreshold  float64       // 平滑值 >= 该值视为 walking
	RunningThreshold  float64       // 平滑值 >= 该值视为 running
	ConfidenceSamples int           // 活动类型确认所需的连续一致次数
	EmitEvery         int           // 每 N 个非跌倒采样输出一次摘要
}

// DefaultParams 默认参数
func DefaultParams() Params {
	return Params{
		FallThreshold:     25.0,
		StepLow:           11.0,
		StepHigh:          20.0,
		MinStepInterval:   250 * time.Millisecond,
		HistorySize:       10,
		WalkingThreshold:  10.5,
		RunningThreshold:  13.5,
		ConfidenceSamples: 3,
		EmitEvery:         3,
	}
}

// Validate 校验参数之间的约束
func (p Params) Validate() error {
	if p.StepLow <= 0 || p.StepHigh <= p.StepLow {
		return fmt.Errorf("step thresholds must satisfy 0 < low < high, got low=%.2f high=%.2f", p.StepLow, p.StepHigh)
	}
	if p.FallThreshold <= p.StepHigh {
		return fmt.Errorf("fall threshold %.2f must exceed step high %.2f", p.FallThreshold, p.StepHigh)
	}
	if p.WalkingThreshold >= p.RunningThreshold {
		return fmt.Errorf("walking threshold %.2f must be below running threshold %.2f", p.WalkingThreshold, p.RunningThreshold)
	}
	if p.MinStepInterval < 0 {
		return fmt.Errorf("min step interval must not be negative")
	}
	if p.HistorySize < 1 || p.ConfidenceSamples < 1 || p.EmitEvery < 1 {
		return fmt.Errorf("history size, confidence samples and emit interval must be positive")
	}
	return nil
}
