package stats

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisSink mirrors counters into Redis so other processes (dashboards,
// alerting) can read them without touching the workspace store.
// Only running totals are kept; the time series stay in the Ledger.
type RedisSink struct {
	client *redis.Client
	prefix string
}

var _ Sink = (*RedisSink)(nil)

// NewRedisSink wraps an existing client. Keys are written under prefix,
// e.g. "streams:stats:".
func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) key(userID int, m Metric) string {
	if m.PerUser() {
		return s.prefix + "user:" + strconv.Itoa(userID) + ":" + string(m)
	}
	return s.prefix + "workspace:" + string(m)
}

// Record applies a batch in one round trip.
func (s *RedisSink) Record(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, e := range events {
		pipe.IncrBy(ctx, s.key(e.UserID, e.Metric), int64(e.Delta))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror stats: %w", err)
	}
	return nil
}

// Count reads one mirrored counter. Missing keys read as 0.
func (s *RedisSink) Count(ctx context.Context, userID int, m Metric) (int64, error) {
	n, err := s.client.Get(ctx, s.key(userID, m)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", m, err)
	}
	return n, nil
}

// Clear deletes every key under the prefix.
func (s *RedisSink) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan stats keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete stats keys: %w", err)
	}
	return nil
}
