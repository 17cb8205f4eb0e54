package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blog-edge/middleware/gate/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore agrega decisões do gate em hashes no Redis.
//
//	<prefix>:total             verdict -> n (cumulativo, sem TTL)
//	<prefix>:minute:<yyyymmddhhmm>  verdict -> n (com TTL)
//	<prefix>:bucket            <bucket>:<verdict> -> n
type RedisStatsStore struct {
	rdb redis.UniversalClient

	prefix string
	// ttl aplica apenas nas chaves de série temporal.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func NewRedisStatsStore(rdb redis.UniversalClient, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "gate:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Verdict)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		minuteKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, minuteKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, minuteKey, s.ttl)
		}
	}

	if ev.Bucket != "" {
		pipe.HIncrBy(ctx, s.prefix+":bucket", string(ev.Bucket)+":"+field, 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}
