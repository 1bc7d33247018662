package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fitness-tracker/common/logger"
	"fitness-tracker/internal/config"
	"fitness-tracker/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 可选 .env
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "motion-classifier")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting motion-classifier service",
		zap.String("samples_stream", cfg.Motion.Streams.Samples),
		zap.String("events_stream", cfg.Motion.Streams.Events),
		zap.String("http_addr", cfg.HTTP.Addr),
	)

	motionService, err := service.NewMotionService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create motion service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := motionService.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start motion service", zap.Error(err))
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	cancel()
	if err := motionService.Stop(context.Background()); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
}
