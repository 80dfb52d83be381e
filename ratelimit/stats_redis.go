package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore aggregates decisions in Redis hashes so several instances
// can report into one place. Counts only; the limiter itself stays local.
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl applies to the per-minute, route and per-key hashes. The total
	// never expires.
	ttl time.Duration

	trackKeys bool
}

// RedisStatsOption configures a RedisStatsStore.
type RedisStatsOption func(*RedisStatsStore)

// WithStatsPrefix sets the key prefix. Default "ratelimit:stats".
func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

// WithStatsTTL sets the expiry of time-bucketed hashes.
func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

// WithStatsTrackKeys enables per-identifier hashes.
func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

// NewRedisStatsStore wraps a Redis client.
func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys returns the total, minute-bucket and route hash keys for at.
func (s *RedisStatsStore) Keys(at time.Time) (total, minute, route string) {
	return s.prefix + ":total",
		fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504")),
		s.prefix + ":route"
}

func (s *RedisStatsStore) Record(ctx context.Context, ev StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	totalKey, bucketKey, routeKey := s.Keys(at)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, totalKey, field, 1)

	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	pipe.HIncrBy(ctx, routeKey, ev.routeField()+":"+field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, routeKey, s.ttl)
	}

	if s.trackKeys {
		if k := strings.TrimSpace(ev.Key); k != "" {
			keyKey := s.prefix + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, keyKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
