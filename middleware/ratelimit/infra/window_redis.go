package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"llm-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript aplica a mesma regra do FixedWindow de forma atômica no Redis.
// A expiração da chave faz o papel do resetAt.
//
// KEYS[1] = chave do cliente; ARGV[1] = janela em ms; ARGV[2] = máximo.
// Retorna {limited (0|1), pttl restante em ms}.
var fixedWindowScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  redis.call('SET', KEYS[1], 1, 'PX', ARGV[1])
  return {0, tonumber(ARGV[1])}
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
if tonumber(cur) >= tonumber(ARGV[2]) then
  return {1, ttl}
end
redis.call('INCR', KEYS[1])
return {0, ttl}
`)

// RedisFixedWindow compartilha o contador de janela fixa entre instâncias.
//
// Use quando várias instâncias do gateway atendem o mesmo tráfego; o
// FixedWindow em memória só enxerga o próprio processo.
type RedisFixedWindow struct {
	rdb    *redis.Client
	prefix string
	window time.Duration
	max    int
	now    func() time.Time
}

type RedisWindowOption func(*RedisFixedWindow)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(w *RedisFixedWindow) { w.prefix = strings.Trim(prefix, ":") }
}

func WithWindowClock(now func() time.Time) RedisWindowOption {
	return func(w *RedisFixedWindow) { w.now = now }
}

func NewRedisFixedWindow(rdb *redis.Client, window time.Duration, max int, opts ...RedisWindowOption) *RedisFixedWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMaxRequests
	}
	w := &RedisFixedWindow{
		rdb:    rdb,
		prefix: "ratelimit:window",
		window: window,
		max:    max,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Check implementa domain.LimiterStore.
func (w *RedisFixedWindow) Check(ctx context.Context, key domain.Key) (domain.Result, error) {
	out, err := fixedWindowScript.Run(ctx, w.rdb,
		[]string{w.prefix + ":" + string(key)},
		w.window.Milliseconds(), w.max,
	).Int64Slice()
	if err != nil {
		return domain.Result{}, fmt.Errorf("redis fixed window: %w", err)
	}
	if len(out) != 2 {
		return domain.Result{}, fmt.Errorf("redis fixed window: unexpected reply %v", out)
	}
	return domain.Result{
		Limited: out[0] == 1,
		ResetAt: w.now().Add(time.Duration(out[1]) * time.Millisecond),
	}, nil
}

func (w *RedisFixedWindow) Window() time.Duration { return w.window }
func (w *RedisFixedWindow) MaxRequests() int      { return w.max }
