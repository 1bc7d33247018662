// Package classifier 根据三轴加速度采样计步、识别活动类型并检测跌倒。
//
// 每个采样依次经过：
//   - 跌倒检测：模值超过阈值立即输出告警，跳过其余处理
//   - 平滑：模值进入固定窗口，窗口均值用于活动分类
//   - 计步：原始模值上的峰谷检测，带最小步间隔
//   - 活动分类：按平滑值分档，连续一致若干次后才确认
//   - 输出节流：每 N 个采样输出一次摘要
//
// Classifier 不加锁，调用方保证同一实例不被并发调用。
package classifier

import (
	"time"

	"fitness-tracker/internal/models"

	"github.com/montanaflynn/stats"
)

// Clock 时间源
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时间
type SystemClock struct{}

// Now 返回当前时间
func (SystemClock) Now() time.Time { return time.Now() }

// State 分类器状态快照
type State struct {
	StepCount       int             `json:"step_count"`
	LastMagnitude   float64         `json:"last_magnitude"`
	Smoothed        float64         `json:"smoothed_magnitude"`
	PeakDetected    bool            `json:"peak_detected"`
	LastStepTime    int64           `json:"last_step_time"`
	LastActivity    models.Activity `json:"last_activity"`
	CurrentActivity models.Activity `json:"current_activity"`
	Confidence      int             `json:"confidence"`
	SampleCounter   int             `json:"sample_counter"`
	HistoryLen      int             `json:"history_len"`
}

// Classifier 运动活动分类器
type Classifier struct {
	clock  Clock
	params Params

	history  *RingFloat
	smoothed float64

	stepCount      int
	lastMagnitude  float64
	isPeakDetected bool
	lastStepTime   int64 // epoch 毫秒，0 表示尚未计步

	lastActivity    models.Activity // 上一次的原始分类结果
	currentActivity models.Activity // 已确认、对外可见的分类结果
	confidence      int

	sampleCounter int
}

// New 创建分类器，clock 为 nil 时使用系统时间
func New(clock Clock, params Params) *Classifier {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Classifier{
		clock:           clock,
		params:          params,
		history:         NewRingFloat(params.HistorySize),
		lastActivity:    models.ActivityStationary,
		currentActivity: models.ActivityStationary,
	}
}

// NewDefault 使用系统时间和默认参数创建分类器
func NewDefault() *Classifier {
	return New(SystemClock{}, DefaultParams())
}

// Process 处理一个采样，返回本次产生的事件（0 或 1 个）
func (c *Classifier) Process(sample models.Sample) []models.Event {
	magnitude := sample.Magnitude()
	now := c.clock.Now().UnixMilli()

	// 1. 跌倒检测优先，不改动任何状态
	if magnitude > c.params.FallThreshold {
		return []models.Event{{
			Kind:      models.EventFall,
			Magnitude: magnitude,
			Timestamp: now,
		}}
	}

	// 2. 平滑
	c.history.Push(magnitude)
	c.smoothed = c.movingAverage()

	// 3. 计步（使用原始模值）
	c.detectStep(magnitude, now)
	c.lastMagnitude = magnitude

	// 4. 活动分类
	c.updateActivity(c.classify(c.smoothed))

	// 5. 输出节流
	c.sampleCounter++
	if c.sampleCounter < c.params.EmitEvery {
		return nil
	}
	c.sampleCounter = 0

	return []models.Event{{
		Kind:      models.EventSummary,
		StepCount: c.stepCount,
		Activity:  c.currentActivity,
		Magnitude: c.smoothed,
	}}
}

func (c *Classifier) movingAverage() float64 {
	mean, err := stats.Mean(c.history.Slice())
	if err != nil {
		// 窗口在 Push 之后不会为空
		return 0
	}
	return mean
}

func (c *Classifier) detectStep(magnitude float64, now int64) {
	p := c.params

	// 上升沿进入步态区间：武装峰值
	if magnitude > p.StepLow && magnitude < p.StepHigh && c.lastMagnitude <= p.StepLow && !c.isPeakDetected {
		c.isPeakDetected = true
		return
	}

	// 下降沿回落到低阈值以下：满足间隔则确认一步
	if c.isPeakDetected && magnitude < p.StepLow && c.lastMagnitude >= p.StepLow {
		if now-c.lastStepTime > p.MinStepInterval.Milliseconds() {
			c.stepCount++
			c.lastStepTime = now
			c.isPeakDetected = false
		}
	}
}

func (c *Classifier) classify(smoothed float64) models.Activity {
	switch {
	case smoothed < c.params.WalkingThreshold:
		return models.ActivityStationary
	case smoothed < c.params.RunningThreshold:
		return models.ActivityWalking
	default:
		return models.ActivityRunning
	}
}

func (c *Classifier) updateActivity(activity models.Activity) {
	if activity == c.lastActivity {
		c.confidence++
	} else {
		c.confidence = 0
		c.lastActivity = activity
	}

	if c.confidence >= c.params.ConfidenceSamples {
		c.currentActivity = activity
	}
}

// Start 开始计步：步数归零，平滑与分类状态保留
func (c *Classifier) Start() {
	c.stepCount = 0
}

// Stop 仅作确认，不改变状态；真正的释放由流的取消完成
func (c *Classifier) Stop() {}

// Reset 步数归零
func (c *Classifier) Reset() {
	c.stepCount = 0
}

// StepCount 当前步数
func (c *Classifier) StepCount() int {
	return c.stepCount
}

// CurrentActivity 已确认的活动类型
func (c *Classifier) CurrentActivity() models.Activity {
	return c.currentActivity
}

// Snapshot 返回状态副本
func (c *Classifier) Snapshot() State {
	return State{
		StepCount:       c.stepCount,
		LastMagnitude:   c.lastMagnitude,
		Smoothed:        c.smoothed,
		PeakDetected:    c.isPeakDetected,
		LastStepTime:    c.lastStepTime,
		LastActivity:    c.lastActivity,
		CurrentActivity: c.currentActivity,
		Confidence:      c.confidence,
		SampleCounter:   c.sampleCounter,
		HistoryLen:      c.history.Len(),
	}
}
