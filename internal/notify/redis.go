package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goran-ethernal/ChainDemux/internal/common"
	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/internal/metrics"
	"github.com/goran-ethernal/ChainDemux/pkg/config"
	"github.com/redis/go-redis/v9"
)

// streamName is appended to the key prefix to form the stream key.
const streamName = "notifications"

// publisher is the subset of the Redis client the notifier uses.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisNotifier publishes every notification on "<prefix>:<topic>" and, when enabled,
// appends it to the capped stream "<prefix>:notifications".
type RedisNotifier struct {
	conn      publisher
	keyPrefix string
	stream    bool
	maxLen    int64
	log       *logger.Logger
}

var _ Notifier = (*RedisNotifier)(nil)

// NewRedisNotifier connects to Redis and verifies the connection.
func NewRedisNotifier(ctx context.Context, cfg config.NotificationsConfig, log *logger.Logger) (*RedisNotifier, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid notifications config: %w", err)
	}

	conn := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	return newRedisNotifier(conn, cfg, log), nil
}

func newRedisNotifier(conn publisher, cfg config.NotificationsConfig, log *logger.Logger) *RedisNotifier {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &RedisNotifier{
		conn:      conn,
		keyPrefix: cfg.KeyPrefix,
		stream:    cfg.Stream,
		maxLen:    cfg.StreamMaxLen,
		log:       log.WithComponent(common.ComponentNotifier),
	}
}

func (r *RedisNotifier) key(name string) string {
	return fmt.Sprintf("%s:%s", r.keyPrefix, name)
}

// Notify implements Notifier.
func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	if err := r.conn.Publish(ctx, r.key(n.Topic), data).Err(); err != nil {
		NotificationFailedInc(sinkRedis)
		metrics.ComponentDegraded(common.ComponentNotifier)
		return fmt.Errorf("failed to publish notification %s: %w", n.ID, err)
	}

	if r.stream {
		err := r.conn.XAdd(ctx, &redis.XAddArgs{
			Stream: r.key(streamName),
			MaxLen: r.maxLen,
			Approx: true,
			Values: map[string]any{
				"id":    n.ID,
				"topic": n.Topic,
				"data":  string(data),
			},
		}).Err()
		if err != nil {
			NotificationFailedInc(sinkRedis)
			metrics.ComponentDegraded(common.ComponentNotifier)
			return fmt.Errorf("failed to append notification %s to stream: %w", n.ID, err)
		}
	}

	NotificationSentInc(sinkRedis)
	r.log.Debugw("notification published", "id", n.ID, "topic", n.Topic, "block", n.BlockNumber)

	return nil
}

// Close implements Notifier.
func (r *RedisNotifier) Close() error {
	return r.conn.Close()
}
