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
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "motion-gateway")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting motion-gateway service",
		zap.String("mqtt_broker", cfg.MQTT.Broker),
		zap.String("samples_stream", cfg.Motion.Streams.Samples),
	)

	gatewayService, err := service.NewGatewayService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create gateway service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- gatewayService.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			zapLogger.Error("Gateway service exited", zap.Error(err))
		}
	}

	cancel()
	if err := gatewayService.Stop(context.Background()); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
}
