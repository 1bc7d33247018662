package consumer

import (
	"sync"
	"time"
)

// 失败分类
const (
	failParse   = "parse"
	failCommand = "command"
	failPublish = "publish"
	failCache   = "cache"
	failAlert   = "alert"
)

// Metrics 监控指标
type Metrics struct {
	mu sync.RWMutex

	// 消息处理统计
	MessagesProcessed int64
	MessagesSucceeded int64
	MessagesFailed    int64

	// 分类器输出统计
	SamplesClassified int64
	SummariesEmitted  int64
	FallsDetected     int64
	CommandsApplied   int64

	// 错误分类统计
	ErrorsParse   int64
	ErrorsCommand int64
	ErrorsPublish int64
	ErrorsCache   int64
	ErrorsAlert   int64

	TotalProcessingTime time.Duration
	LastProcessTime     time.Time

	StartTime time.Time
}

// NewMetrics 创建指标
func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// GetSnapshot 获取指标快照（线程安全）
func (m *Metrics) GetSnapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		MessagesProcessed:   m.MessagesProcessed,
		MessagesSucceeded:   m.MessagesSucceeded,
		MessagesFailed:      m.MessagesFailed,
		SamplesClassified:   m.SamplesClassified,
		SummariesEmitted:    m.SummariesEmitted,
		FallsDetected:       m.FallsDetected,
		CommandsApplied:     m.CommandsApplied,
		ErrorsParse:         m.ErrorsParse,
		ErrorsCommand:       m.ErrorsCommand,
		ErrorsPublish:       m.ErrorsPublish,
		ErrorsCache:         m.ErrorsCache,
		ErrorsAlert:         m.ErrorsAlert,
		TotalProcessingTime: m.TotalProcessingTime,
		LastProcessTime:     m.LastProcessTime,
		StartTime:           m.StartTime,
	}
}

// IncrementProcessed 增加处理计数
func (m *Metrics) IncrementProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesProcessed++
}

// IncrementSucceeded 增加成功计数
func (m *Metrics) IncrementSucceeded(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSucceeded++
	m.TotalProcessingTime += duration
	m.LastProcessTime = time.Now()
}

// IncrementFailed 增加失败计数（每条消息至多一次），errorType 为空时只计消息
func (m *Metrics) IncrementFailed(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesFailed++
	m.recordError(errorType)
}

// RecordError 只增加错误分类计数
func (m *Metrics) RecordError(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordError(errorType)
}

func (m *Metrics) recordError(errorType string) {
	switch errorType {
	case failParse:
		m.ErrorsParse++
	case failCommand:
		m.ErrorsCommand++
	case failPublish:
		m.ErrorsPublish++
	case failCache:
		m.ErrorsCache++
	case failAlert:
		m.ErrorsAlert++
	}
}

// RecordSamples 记录分类的采样数与输出事件数
func (m *Metrics) RecordSamples(samples, summaries, falls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SamplesClassified += int64(samples)
	m.SummariesEmitted += int64(summaries)
	m.FallsDetected += int64(falls)
}

// RecordCommand 记录已执行的控制命令
func (m *Metrics) RecordCommand() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommandsApplied++
}
