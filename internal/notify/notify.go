// Package notify publishes notifications emitted by handler effects.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/goran-ethernal/ChainDemux/internal/common"
	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/pkg/handler"
)

// Notification is a single message emitted by an effect.
type Notification struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	Action      string          `json:"action"`
	Version     string          `json:"version"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	EmittedAt   time.Time       `json:"emitted_at"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	Close() error
}

// New builds a notification for an action of the given version, encoding data as its payload.
func New(topic, action, version string, meta handler.BlockMeta, data any) (Notification, error) {
	n := Notification{
		ID:          uuid.NewString(),
		Topic:       topic,
		BlockNumber: meta.BlockNumber,
		BlockHash:   meta.BlockHash,
		Action:      action,
		Version:     version,
		EmittedAt:   time.Now().UTC(),
	}

	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return Notification{}, fmt.Errorf("failed to encode notification payload: %w", err)
		}
		n.Payload = payload
	}

	return n, nil
}

// LogNotifier writes notifications to the log. It is used when no Redis is configured.
type LogNotifier struct {
	log *logger.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &LogNotifier{log: log.WithComponent(common.ComponentNotifier)}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.log.Infow("notification",
		"id", n.ID,
		"topic", n.Topic,
		"block", n.BlockNumber,
		"action", n.Action,
		"version", n.Version,
		"payload", string(n.Payload),
	)
	NotificationSentInc(sinkLog)

	return nil
}

// Close implements Notifier.
func (l *LogNotifier) Close() error {
	return nil
}
