package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"fitness-tracker/internal/classifier"
	"fitness-tracker/internal/models"

	"go.uber.org/zap"
)

var (
	// ErrUnknownCommand 未知控制命令
	ErrUnknownCommand = errors.New("unknown command")
	// ErrSessionNotFound 设备没有活动会话
	ErrSessionNotFound = errors.New("session not found")
)

// Command 控制命令
type Command string

const (
	CommandStart Command = "start"
	CommandStop  Command = "stop"
	CommandReset Command = "reset"
)

// 移动端方法名
var commandAliases = map[string]Command{
	"startTracking": CommandStart,
	"stopTracking":  CommandStop,
	"resetSteps":    CommandReset,
}

// ParseCommand 解析控制命令，兼容移动端方法名
func ParseCommand(s string) (Command, error) {
	switch Command(s) {
	case CommandStart, CommandStop, CommandReset:
		return Command(s), nil
	}
	if cmd, ok := commandAliases[s]; ok {
		return cmd, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Snapshot 设备会话快照
type Snapshot struct {
	DeviceID  string           `json:"device_id"`
	TenantID  string           `json:"tenant_id,omitempty"`
	OpenedAt  time.Time        `json:"opened_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Samples   int64            `json:"samples"`
	Falls     int64            `json:"falls"`
	State     classifier.State `json:"state"`
}

// session 单个设备的分类器会话，mu 保证分类器不被并发调用
type session struct {
	mu         sync.Mutex
	deviceID   string
	tenantID   string
	classifier *classifier.Classifier
	openedAt   time.Time
	updatedAt  time.Time
	samples    int64
	falls      int64
}

func (s *session) snapshot() Snapshot {
	return Snapshot{
		DeviceID:  s.deviceID,
		TenantID:  s.tenantID,
		OpenedAt:  s.openedAt,
		UpdatedAt: s.updatedAt,
		Samples:   s.samples,
		Falls:     s.falls,
		State:     s.classifier.Snapshot(),
	}
}

// Manager 管理每个设备的分类器会话
type Manager struct {
	clock  classifier.Clock
	params classifier.Params
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewManager 创建会话管理器
func NewManager(clock classifier.Clock, params classifier.Params, logger *zap.Logger) *Manager {
	if clock == nil {
		clock = classifier.SystemClock{}
	}
	return &Manager{
		clock:    clock,
		params:   params,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

func (m *Manager) newSession(deviceID, tenantID string) *session {
	now := m.clock.Now()
	return &session{
		deviceID:   deviceID,
		tenantID:   tenantID,
		classifier: classifier.New(m.clock, m.params),
		openedAt:   now,
		updatedAt:  now,
	}
}

// Open 开始一个设备流：创建全新的分类器（已存在则丢弃旧状态）
func (m *Manager) Open(deviceID, tenantID string) {
	s := m.newSession(deviceID, tenantID)

	m.mu.Lock()
	m.sessions[deviceID] = s
	m.mu.Unlock()

	m.logger.Info("Motion session opened",
		zap.String("device_id", deviceID),
		zap.String("tenant_id", tenantID),
	)
}

// Close 结束设备流并丢弃状态
func (m *Manager) Close(deviceID string) error {
	m.mu.Lock()
	_, ok := m.sessions[deviceID]
	delete(m.sessions, deviceID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, deviceID)
	}

	m.logger.Info("Motion session closed", zap.String("device_id", deviceID))
	return nil
}

// getOrOpen 获取会话，不存在时自动创建
func (m *Manager) getOrOpen(deviceID, tenantID string) *session {
	m.mu.RLock()
	s, ok := m.sessions[deviceID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[deviceID]; ok {
		return s
	}
	s = m.newSession(deviceID, tenantID)
	m.sessions[deviceID] = s
	m.logger.Debug("Motion session auto-opened", zap.String("device_id", deviceID))
	return s
}

// Process 将采样交给设备的分类器，返回产生的事件
func (m *Manager) Process(deviceID, tenantID string, samples ...models.Sample) []models.Event {
	s := m.getOrOpen(deviceID, tenantID)

	s.mu.Lock()
	defer s.mu.Unlock()

	var events []models.Event
	for _, sample := range samples {
		out := s.classifier.Process(sample)
		s.samples++
		for _, e := range out {
			if e.Kind == models.EventFall {
				s.falls++
			}
		}
		events = append(events, out...)
	}
	s.updatedAt = m.clock.Now()
	if tenantID != "" {
		s.tenantID = tenantID
	}

	return events
}

// Command 执行控制命令，start/reset 会在没有会话时创建会话
func (m *Manager) Command(deviceID, tenantID string, cmd Command) error {
	cmd, err := ParseCommand(string(cmd))
	if err != nil {
		return err
	}

	if cmd == CommandStop {
		// stop 只是确认，不创建会话也不改动步数
		m.logger.Info("Motion stop acknowledged", zap.String("device_id", deviceID))
		return nil
	}

	s := m.getOrOpen(deviceID, tenantID)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd {
	case CommandStart:
		s.classifier.Start()
	case CommandReset:
		s.classifier.Reset()
	}
	s.updatedAt = m.clock.Now()

	m.logger.Info("Motion command applied",
		zap.String("device_id", deviceID),
		zap.String("command", string(cmd)),
	)
	return nil
}

// Snapshot 获取设备会话快照
func (m *Manager) Snapshot(deviceID string) (Snapshot, error) {
	m.mu.RLock()
	s, ok := m.sessions[deviceID]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSessionNotFound, deviceID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// Snapshots 获取所有会话快照（按 device_id 排序）
func (m *Manager) Snapshots() []Snapshot {
	m.mu.RLock()
	list := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()

	out := make([]Snapshot, 0, len(list))
	for _, s := range list {
		s.mu.Lock()
		out = append(out, s.snapshot())
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Len 活动会话数
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
