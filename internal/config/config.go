package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"fitness-tracker/common/config"
	"fitness-tracker/internal/classifier"
)

// Config 运动分类服务配置（网关与分类服务共用）
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig
	Notify   config.NotifyConfig
	HTTP     config.HTTPConfig

	// 租户 ID（单租户部署时作为默认值）
	TenantID string

	Motion struct {
		Topics struct {
			Accel   string // 采样主题，如 "motion/+/accel"
			Command string // 控制命令主题，如 "motion/+/command"
			Alert   string // 告警下发主题模板，如 "motion/%s/alert"
		}

		Streams struct {
			Samples string // 采样流（网关写入）
			Events  string // 事件流（分类服务写入）
		}

		ConsumerGroup string
		ConsumerName  string
		BatchSize     int64

		// Redis 状态缓存
		Cache struct {
			StateKeyPrefix string        // 如 "motion:state:"
			StateTTL       time.Duration // 默认 10 分钟
		}

		// 会话摘要写库间隔
		FlushInterval time.Duration

		// 分类器阈值
		Classifier classifier.Params
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "fitness")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "motion-gateway")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.Notify.URL = getEnv("NOTIFY_URL", "")
	cfg.Notify.Token = getEnv("NOTIFY_TOKEN", "")
	cfg.Notify.Title = getEnv("NOTIFY_TITLE", "Fall detected")
	cfg.Notify.Timeout = getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second)
	cfg.Notify.Retries = getEnvInt("NOTIFY_RETRIES", 3)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	cfg.HTTP.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	cfg.HTTP.ShutdownTimeout = getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg.TenantID = getEnv("TENANT_ID", "")

	// 运动服务配置
	cfg.Motion.Topics.Accel = getEnv("MOTION_TOPIC_ACCEL", "motion/+/accel")
	cfg.Motion.Topics.Command = getEnv("MOTION_TOPIC_COMMAND", "motion/+/command")
	cfg.Motion.Topics.Alert = getEnv("MOTION_TOPIC_ALERT", "motion/%s/alert")
	cfg.Motion.Streams.Samples = getEnv("MOTION_STREAM_SAMPLES", "motion:samples:stream")
	cfg.Motion.Streams.Events = getEnv("MOTION_STREAM_EVENTS", "motion:events:stream")
	cfg.Motion.ConsumerGroup = getEnv("MOTION_CONSUMER_GROUP", "motion-classifier-group")
	cfg.Motion.ConsumerName = getEnv("MOTION_CONSUMER_NAME", "motion-classifier-1")
	cfg.Motion.BatchSize = int64(getEnvInt("MOTION_BATCH_SIZE", 50))
	cfg.Motion.Cache.StateKeyPrefix = getEnv("MOTION_STATE_PREFIX", "motion:state:")
	cfg.Motion.Cache.StateTTL = getEnvDuration("MOTION_STATE_TTL", 10*time.Minute)
	cfg.Motion.FlushInterval = getEnvDuration("MOTION_FLUSH_INTERVAL", 30*time.Second)

	params := classifier.DefaultParams()
	params.FallThreshold = getEnvFloat("MOTION_FALL_THRESHOLD", params.FallThreshold)
	params.StepLow = getEnvFloat("MOTION_STEP_LOW", params.StepLow)
	params.StepHigh = getEnvFloat("MOTION_STEP_HIGH", params.StepHigh)
	params.MinStepInterval = time.Duration(getEnvInt("MOTION_STEP_INTERVAL_MS", int(params.MinStepInterval.Milliseconds()))) * time.Millisecond
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier thresholds: %w", err)
	}
	cfg.Motion.Classifier = params

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// AlertTopic 设备告警下发主题
func (c *Config) AlertTopic(deviceID string) string {
	return fmt.Sprintf(c.Motion.Topics.Alert, deviceID)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultValue
}
