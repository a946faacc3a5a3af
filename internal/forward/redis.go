package forward

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rohankatakam/feedbackd/internal/errors"
	"github.com/rohankatakam/feedbackd/internal/models"
)

// RedisForwarder publishes each record on a Redis pub/sub channel
type RedisForwarder struct {
	client  *redis.Client
	channel string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisForwarder creates the client and pings it once. An unreachable server is
// logged, not fatal: forwarding is best-effort and the server may come up later.
func NewRedisForwarder(addr, password, channel string, timeout time.Duration) (*RedisForwarder, error) {
	if addr == "" || channel == "" {
		return nil, errors.ConfigError("forward.redis.addr and forward.redis.channel are required for the redis sink")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  timeout,
		WriteTimeout: timeout,
		ReadTimeout:  timeout,
	})

	logger := slog.Default().With("component", "forward", "sink", "redis")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", "addr", addr, "error", err)
	} else {
		logger.Info("redis client connected", "addr", addr, "channel", channel)
	}

	return &RedisForwarder{
		client:  client,
		channel: channel,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (f *RedisForwarder) Name() string { return "redis" }

func (f *RedisForwarder) Forward(ctx context.Context, rec models.FeedbackRecord) Result {
	result := Result{Sink: f.Name()}

	payload, err := encodeRecord(rec)
	if err != nil {
		result.Err = errors.ForwardError(err, "failed to encode push payload")
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	receivers, err := f.client.Publish(ctx, f.channel, payload).Result()
	if err != nil {
		f.logger.Warn("forward.failed", "channel", f.channel, "error", err)
		result.Err = errors.ForwardError(err, fmt.Sprintf("publish to redis channel %s failed", f.channel))
		return result
	}

	f.logger.Debug("forward.ok", "channel", f.channel, "receivers", receivers)
	result.Delivered = true
	return result
}

func (f *RedisForwarder) Close() error {
	if err := f.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}
