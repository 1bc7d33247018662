package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fitness-tracker/common/database"
	mqttcommon "fitness-tracker/common/mqtt"
	rediscommon "fitness-tracker/common/redis"
	"fitness-tracker/internal/config"
	"fitness-tracker/internal/consumer"
	"fitness-tracker/internal/httpapi"
	"fitness-tracker/internal/notifier"
	"fitness-tracker/internal/repository"
	"fitness-tracker/internal/session"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// MotionService 运动分类服务：采样流 → 分类器 → 事件流 / 告警 / HTTP 接口
type MotionService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttcommon.Client

	sessions *session.Manager
	consumer *consumer.StreamConsumer
	flusher  *SummaryFlusher
	server   *http.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMotionService 创建运动分类服务
func NewMotionService(cfg *config.Config, logger *zap.Logger) (*MotionService, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.WaitReady(context.Background(), redisClient, 5, time.Second); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 与网关区分 client id，避免互相踢下线
	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = cfg.MQTT.ClientID + "-classifier"
	mqttClient, err := mqttcommon.NewClient(&mqttCfg, logger)
	if err != nil {
		rediscommon.Close(redisClient)
		database.Close(db)
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	eventsRepo := repository.NewMotionEventsRepository(db, logger)
	if err := eventsRepo.EnsureSchema(context.Background()); err != nil {
		mqttClient.Disconnect()
		rediscommon.Close(redisClient)
		database.Close(db)
		return nil, err
	}

	channels := notifier.Multi{
		notifier.NewMQTTNotifier(mqttClient, cfg.AlertTopic, cfg.MQTT.QoS, logger),
	}
	if cfg.Notify.URL != "" {
		channels = append(channels, notifier.NewRestNotifier(cfg.Notify, logger))
	}

	sessions := session.NewManager(nil, cfg.Motion.Classifier, logger)
	state := consumer.NewStateManager(redisClient, cfg.Motion.Cache.StateKeyPrefix, cfg.Motion.Cache.StateTTL, logger)
	alerts := NewFallAlertService(eventsRepo, channels, cfg.Notify.Title, logger)
	streamConsumer := consumer.NewStreamConsumer(cfg, redisClient, sessions, state, alerts, logger)

	handler := &httpapi.MotionHandler{
		Sessions:      sessions,
		State:         state,
		Store:         eventsRepo,
		Alerts:        alerts,
		Notifier:      channels,
		DefaultTenant: cfg.TenantID,
		Logger:        logger,
	}
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httpapi.NewRouter(handler, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &MotionService{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		mqttClient: mqttClient,
		sessions:   sessions,
		consumer:   streamConsumer,
		flusher:    NewSummaryFlusher(sessions, eventsRepo, cfg.Motion.FlushInterval, logger),
		server:     server,
	}, nil
}

// Start 启动服务（非阻塞）
func (s *MotionService) Start(ctx context.Context) error {
	s.logger.Info("Starting motion service components")

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		if err := s.consumer.Start(ctx); err != nil {
			s.logger.Error("Stream consumer exited", zap.Error(err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.flusher.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.logger.Info("HTTP server listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	s.logger.Info("Motion service started successfully")
	return nil
}

// Stop 停止服务
func (s *MotionService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping motion service")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.HTTP.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error shutting down HTTP server", zap.Error(err))
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	// 退出前写入最后一次摘要
	s.flusher.Flush(shutdownCtx)

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redis != nil {
		rediscommon.Close(s.redis)
	}
	if s.db != nil {
		database.Close(s.db)
	}

	s.logger.Info("Motion service stopped")
	return nil
}
