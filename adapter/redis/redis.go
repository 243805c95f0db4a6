// Package redis publishes upload notifications on a Redis pub/sub channel and,
// optionally, appends them to a capped stream for consumers that were offline.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/docqa/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "docqa:upload_completed"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// DefaultStreamMaxLen caps the stream when Config.Stream is set.
const DefaultStreamMaxLen = 10000

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: docqa:upload_completed).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// BaseBackoff overrides the first retry delay.
	BaseBackoff time.Duration
	// Stream, when set, also XADDs each event to this stream.
	Stream string
	// StreamMaxLen approximately caps the stream (default DefaultStreamMaxLen).
	StreamMaxLen int64
}

// Adapter publishes upload completion events via Redis PUBLISH.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub adapter from the given config.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.StreamMaxLen <= 0 {
		cfg.StreamMaxLen = DefaultStreamMaxLen
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Channel returns the channel events are published to.
func (a *Adapter) Channel() string {
	return a.config.Channel
}

// Publish sends the event as JSON to the configured channel.
func (a *Adapter) Publish(ctx context.Context, event *adapter.UploadCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	policy := adapter.RetryPolicy{Retries: a.config.Retries, BaseBackoff: a.config.BaseBackoff}
	return adapter.Retry(ctx, "redis", policy, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		err := a.send(publishCtx, event, body)
		if errors.Is(err, goredis.ErrClosed) {
			return adapter.Permanent(err)
		}
		return err
	})
}

// send publishes body, and appends it to the stream in the same
// MULTI/EXEC when a stream is configured.
func (a *Adapter) send(ctx context.Context, event *adapter.UploadCompletedEvent, body []byte) error {
	if a.config.Stream == "" {
		return a.client.Publish(ctx, a.config.Channel, body).Err()
	}
	_, err := a.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Publish(ctx, a.config.Channel, body)
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: a.config.Stream,
			MaxLen: a.config.StreamMaxLen,
			Approx: true,
			Values: map[string]any{
				"session_id": event.SessionID,
				"outcome":    event.Outcome,
				"event":      body,
			},
		})
		return nil
	})
	return err
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
