// Package events publishes run lifecycle notifications. The service layer
// emits an event when a run starts and when it reaches a terminal state;
// consumers subscribe over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event kinds.
const (
	KindStarted   = "run.started"
	KindCompleted = "run.completed"
	KindFailed    = "run.failed"
	KindCancelled = "run.cancelled"
)

// RunEvent is the published payload.
type RunEvent struct {
	Kind      string `json:"kind"`
	TaskID    string `json:"task_id"`
	RunID     string `json:"run_id"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Publisher delivers run events. Implementations must be safe for concurrent
// use; delivery is best-effort and must never block a run.
type Publisher interface {
	Publish(ctx context.Context, event RunEvent) error
}

// NoopPublisher discards every event. The default when no transport is wired.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, RunEvent) error { return nil }

// Config holds NATS publisher settings.
type Config struct {
	// Subject to publish events on.
	Subject string
	// MaxRetries caps publish retry attempts after the first failure.
	MaxRetries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// DefaultConfig returns the publisher defaults.
func DefaultConfig() Config {
	return Config{
		Subject:    "workflow.events",
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// NATSPublisher publishes run events to a NATS subject with bounded retries.
type NATSPublisher struct {
	conn   *nats.Conn
	config Config
	logger *zap.Logger
}

// NewNATSPublisher creates a publisher on an established connection.
func NewNATSPublisher(conn *nats.Conn, config Config) (*NATSPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection cannot be nil")
	}
	if config.Subject == "" {
		config.Subject = DefaultConfig().Subject
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultConfig().RetryDelay
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, config: config, logger: logger}, nil
}

// Publish sends the event, retrying transient failures.
func (p *NATSPublisher) Publish(ctx context.Context, event RunEvent) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode run event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.RetryDelay):
			}
		}
		if lastErr = p.conn.Publish(p.config.Subject, payload); lastErr == nil {
			p.logger.Debug("run event published",
				zap.String("kind", event.Kind),
				zap.String("task_id", event.TaskID))
			return nil
		}
		p.logger.Warn("run event publish failed",
			zap.String("kind", event.Kind),
			zap.String("task_id", event.TaskID),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}
	return fmt.Errorf("failed to publish run event after %d attempts: %w",
		p.config.MaxRetries+1, lastErr)
}
