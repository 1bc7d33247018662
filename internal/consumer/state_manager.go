package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fitness-tracker/internal/session"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrStateNotFound Redis 中没有设备状态
var ErrStateNotFound = errors.New("state not found")

// StateManager 设备会话状态缓存（motion:state:{device_id}）
type StateManager struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
	logger      *zap.Logger
}

// NewStateManager 创建状态管理器
func NewStateManager(redisClient *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *StateManager {
	return &StateManager{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
		logger:      logger,
	}
}

// GetStateKey 构建状态键
func (s *StateManager) GetStateKey(deviceID string) string {
	return s.keyPrefix + deviceID
}

// SetState 写入设备快照（带 TTL）
func (s *StateManager) SetState(ctx context.Context, snap session.Snapshot) error {
	jsonData, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := s.redisClient.Set(ctx, s.GetStateKey(snap.DeviceID), jsonData, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set state: %w", err)
	}
	return nil
}

// GetState 读取设备快照
func (s *StateManager) GetState(ctx context.Context, deviceID string) (*session.Snapshot, error) {
	key := s.GetStateKey(deviceID)
	val, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrStateNotFound, key)
		}
		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &snap, nil
}

// DeleteState 删除设备快照
func (s *StateManager) DeleteState(ctx context.Context, deviceID string) error {
	if err := s.redisClient.Del(ctx, s.GetStateKey(deviceID)).Err(); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}
