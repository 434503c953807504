// Package notify fans operational alerts out to structured logs, a Redis
// channel and, when configured, a Slack webhook. Every sink is best-effort:
// a dead webhook must never fail an ingestion run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel the alert events are published on.
const alertChannel = "EVENT_INGEST_ALERT"

const webhookTimeout = 5 * time.Second

// Notifier is the alert surface the pipeline and status checker depend on.
type Notifier interface {
	Notify(ctx context.Context, errType, msg string, details map[string]any, critical bool)
}

// Service implements Notifier.
type Service struct {
	rdb        *redis.Client
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// New returns a Service. webhookURL may be empty, in which case the Slack
// sink is disabled.
func New(rdb *redis.Client, webhookURL string, logger *slog.Logger) *Service {
	return &Service{
		rdb:        rdb,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: webhookTimeout},
		logger:     logger,
	}
}

// Notify reports one operational event. critical selects the log level and
// whether the Slack sink fires; the Redis event always publishes.
func (s *Service) Notify(ctx context.Context, errType, msg string, details map[string]any, critical bool) {
	attrs := []any{"type", errType}
	for k, v := range details {
		attrs = append(attrs, k, v)
	}
	if critical {
		s.logger.Error(msg, attrs...)
	} else {
		s.logger.Warn(msg, attrs...)
	}

	event, _ := json.Marshal(map[string]any{
		"type":     errType,
		"message":  msg,
		"details":  details,
		"critical": critical,
		"at":       time.Now().UTC().Format(time.RFC3339),
	})
	if err := s.rdb.Publish(ctx, alertChannel, event).Err(); err != nil {
		s.logger.Warn("publish alert failed", "channel", alertChannel, "err", err)
	}

	if critical && s.webhookURL != "" {
		if err := s.postSlack(ctx, errType, msg, details); err != nil {
			s.logger.Warn("slack webhook failed", "err", err)
		}
	}
}

func (s *Service) postSlack(ctx context.Context, errType, msg string, details map[string]any) error {
	text := fmt.Sprintf(":rotating_light: *%s*\n%s", errType, msg)
	for k, v := range details {
		text += fmt.Sprintf("\n• %s: %v", k, v)
	}
	body, _ := json.Marshal(map[string]string{"text": text})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}
