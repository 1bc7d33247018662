package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fitness-tracker/common/database"
	mqttcommon "fitness-tracker/common/mqtt"
	rediscommon "fitness-tracker/common/redis"
	"fitness-tracker/internal/config"
	"fitness-tracker/internal/consumer"
	"fitness-tracker/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// GatewayService 设备网关：MQTT 采样/命令 → Redis 采样流
type GatewayService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttcommon.Client
	consumer   *consumer.MQTTConsumer
}

// NewGatewayService 创建网关服务
func NewGatewayService(cfg *config.Config, logger *zap.Logger) (*GatewayService, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.WaitReady(context.Background(), redisClient, 5, time.Second); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		rediscommon.Close(redisClient)
		database.Close(db)
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	deviceRepo := repository.NewDeviceRepository(db, logger)
	mqttConsumer := consumer.NewMQTTConsumer(cfg, mqttClient, redisClient, deviceRepo, logger)

	return &GatewayService{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		mqttClient: mqttClient,
		consumer:   mqttConsumer,
	}, nil
}

// Start 启动服务，阻塞直到 ctx 取消
func (s *GatewayService) Start(ctx context.Context) error {
	s.logger.Info("Starting motion gateway")

	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MQTT consumer: %w", err)
	}
	return nil
}

// Stop 停止服务
func (s *GatewayService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping motion gateway")

	if s.consumer != nil {
		if err := s.consumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping consumer", zap.Error(err))
		}
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redis != nil {
		rediscommon.Close(s.redis)
	}
	if s.db != nil {
		database.Close(s.db)
	}

	s.logger.Info("Motion gateway stopped")
	return nil
}
