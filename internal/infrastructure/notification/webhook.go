// Package notification delivers run reports.
package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/erp/channelsync/internal/application/report"
	"github.com/erp/channelsync/internal/infrastructure/remote"
	"go.uber.org/zap"
)

var (
	_ report.Notifier = (*WebhookNotifier)(nil)
	_ report.Notifier = (*LogNotifier)(nil)
)

// WebhookConfig holds the webhook endpoint settings
type WebhookConfig struct {
	URL           string
	Token         string
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

// WebhookNotifier posts notifications as JSON to an HTTP endpoint. Delivery
// shares the retry policy of the marketplace client.
type WebhookNotifier struct {
	client *remote.Client
	logger *zap.Logger
}

// NewWebhookNotifier creates a new WebhookNotifier
func NewWebhookNotifier(cfg WebhookConfig, logger *zap.Logger, opts ...remote.Option) (*WebhookNotifier, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client, err := remote.NewClient(remote.Config{
		BaseURL:       cfg.URL,
		Token:         cfg.Token,
		Timeout:       cfg.Timeout,
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
	}, append([]remote.Option{remote.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("notification: %w", err)
	}
	return &WebhookNotifier{client: client, logger: logger}, nil
}

// Send posts n to the webhook.
func (w *WebhookNotifier) Send(ctx context.Context, n report.Notification) error {
	_, err := w.client.Do(ctx, remote.Request{
		Method: http.MethodPost,
		Body:   n,
	})
	if err != nil {
		return fmt.Errorf("notification: webhook delivery: %w", err)
	}
	w.logger.Info("Report delivered",
		zap.String("subject", n.Subject),
		zap.Int("recipients", len(n.Recipients)),
	)
	return nil
}

// LogNotifier writes notifications to the log. It is used when no delivery
// channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs n.
func (l *LogNotifier) Send(_ context.Context, n report.Notification) error {
	l.logger.Info(n.Subject,
		zap.Strings("recipients", n.Recipients),
		zap.String("body", n.Body),
		zap.Any("options", n.Options),
	)
	return nil
}
