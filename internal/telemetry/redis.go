// Package telemetry publishes now-playing snapshots to an external sink
// without ever sitting in the streaming request path.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/laurikarhu/sxmproxy/internal/sxm"
)

const publishTimeout = 2 * time.Second

// RedisSink publishes each now-playing snapshot as a JSON value under a
// per-channel key with a short TTL, and pushes it onto a capped list so a
// consumer can tail recent tune-ins. Adapted from the teacher's session/
// viewer-count key-per-entity pattern; session and rate-limit operations
// are dropped since this proxy tracks no per-viewer identity (§9 Non-goals).
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink dials Redis eagerly so startup fails fast on a bad URL.
func NewRedisSink(ctx context.Context, redisURL string) (*RedisSink, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("telemetry: failed to ping redis: %w", err)
	}
	return &RedisSink{client: client}, nil
}

// Close closes the underlying Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

const (
	nowPlayingKeyPrefix = "sxmproxy:now_playing:"
	recentListKey       = "sxmproxy:recent"
	recentListCap       = 50
)

// Publish records the snapshot and trims the recent-tune-ins list. Errors
// are returned to the caller, which per sxm.Sink's contract must only log
// them — a telemetry outage must never affect streaming.
func (s *RedisSink) Publish(ctx context.Context, np sxm.NowPlaying) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	payload, err := json.Marshal(np)
	if err != nil {
		return fmt.Errorf("telemetry: failed to marshal now-playing: %w", err)
	}

	key := nowPlayingKeyPrefix + np.ChannelID
	if err := s.client.Set(ctx, key, payload, 10*time.Minute).Err(); err != nil {
		return fmt.Errorf("telemetry: failed to set now-playing key: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, recentListKey, payload)
	pipe.LTrim(ctx, recentListKey, 0, recentListCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("telemetry: failed to update recent list: %w", err)
	}

	log.Debug().Str("channel", np.ChannelID).Msg("telemetry: now-playing published")
	return nil
}
