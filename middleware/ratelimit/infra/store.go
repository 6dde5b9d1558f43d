package infra

import (
	"context"
	"sync"
	"time"

	"llm-gateway/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// TokenStore é a alternativa ao FixedWindow baseada em token bucket
// (x/time/rate), com um limiter por chave e limpeza periódica de chaves ociosas.
//
// Não tem janela, então Result.ResetAt sai zerado.
type TokenStore struct {
	mu           sync.Mutex
	entries      map[domain.Key]*tokenEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type tokenEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type TokenStoreOption func(*TokenStore)

func WithIdleTTL(d time.Duration) TokenStoreOption {
	return func(s *TokenStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) TokenStoreOption {
	return func(s *TokenStore) { s.cleanupEvery = d }
}

// NewTokenStore cria o store. Os defaults (rps, burst) equivalem em média
// a DefaultMaxRequests por DefaultWindow.
func NewTokenStore(rps float64, burst int, opts ...TokenStoreOption) *TokenStore {
	if rps <= 0 {
		rps = float64(DefaultMaxRequests) / DefaultWindow.Seconds()
	}
	if burst <= 0 {
		burst = DefaultMaxRequests
	}
	s := &TokenStore{
		entries:      make(map[domain.Key]*tokenEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenStore) RPS() float64 { return float64(s.rps) }
func (s *TokenStore) Burst() int   { return s.burst }

// Check implementa domain.LimiterStore.
func (s *TokenStore) Check(_ context.Context, key domain.Key) (domain.Result, error) {
	return domain.Result{Limited: !s.limiter(key).Allow()}, nil
}

func (s *TokenStore) limiter(key domain.Key) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &tokenEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup remove chaves sem uso há mais de idleTTL. Uma chave removida volta
// com o bucket cheio.
func (s *TokenStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *TokenStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
