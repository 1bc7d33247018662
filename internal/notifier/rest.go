package notifier

import (
	"context"
	"fmt"
	"time"

	"fitness-tracker/common/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RestNotifier 通过推送网关 HTTP 接口发送通知
type RestNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewRestNotifier 创建 REST 通知客户端
func NewRestNotifier(cfg config.NotifyConfig, logger *zap.Logger) *RestNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &RestNotifier{
		httpClient: client,
		url:        cfg.URL,
		logger:     logger,
	}
}

// Notify 发送通知
func (r *RestNotifier) Notify(ctx context.Context, n Notification) error {
	n = n.Normalize()

	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetBody(n).
		Post(r.url)
	if err != nil {
		r.logger.Error("Push gateway call failed",
			zap.String("device_id", n.DeviceID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call push gateway: %w", err)
	}
	if resp.IsError() {
		r.logger.Error("Push gateway returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return fmt.Errorf("push gateway error: status %d", resp.StatusCode())
	}

	r.logger.Info("Notification sent",
		zap.String("device_id", n.DeviceID),
		zap.String("title", n.Title),
	)
	return nil
}
