package redis

import (
	"context"
	"fmt"
	"time"

	"fitness-tracker/common/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient 创建Redis客户端
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
}

// Ping 测试Redis连接
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// WaitReady 启动时等待 Redis 可用，最多尝试 attempts 次
func WaitReady(ctx context.Context, client *redis.Client, attempts int, interval time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = Ping(ctx, client); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("redis not ready after %d attempts: %w", attempts, err)
}

// Close 关闭Redis连接
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
