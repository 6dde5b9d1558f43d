package infra

import (
	"context"
	"strings"
	"time"

	"llm-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore agrega as decisões do gate em hashes do Redis:
//
//	<prefix>:total            allowed/denied cumulativos, sem expiração
//	<prefix>:minute:<YYYYMMDDhhmm>  série por minuto, com TTL
//	<prefix>:route            "<METHOD> <path>:allowed|denied"
//	<prefix>:key:<cliente>    só com trackKeys, com TTL
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	ttl    time.Duration
	// bucket: "minute" (padrão) ou "none"
	bucket    string
	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "gateway:stats",
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
	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		s.incrWithTTL(ctx, pipe, s.prefix+":minute:"+at.UTC().Format("200601021504"), field)
	}

	if route := strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path)); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	if k := strings.TrimSpace(string(ev.Key)); s.trackKeys && k != "" {
		s.incrWithTTL(ctx, pipe, s.prefix+":key:"+k, field)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStatsStore) incrWithTTL(ctx context.Context, pipe redis.Pipeliner, key, field string) {
	pipe.HIncrBy(ctx, key, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}
