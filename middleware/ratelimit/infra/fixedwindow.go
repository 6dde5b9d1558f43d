package infra

import (
	"context"
	"sync"
	"time"

	"llm-gateway/middleware/ratelimit/domain"
)

const (
	// DefaultWindow e DefaultMaxRequests são fixos no deploy, não vêm de config.
	DefaultWindow      = 60 * time.Second
	DefaultMaxRequests = 20
)

// FixedWindow é um contador de janela fixa por chave, em memória.
//
// Permite rajadas na virada da janela (max no fim de uma + max no começo da
// próxima). Registros nunca são removidos: o mapa vive enquanto o processo
// viver e só zera num restart.
type FixedWindow struct {
	mu      sync.Mutex
	records map[domain.Key]*domain.WindowRecord
	window  time.Duration
	max     int
	now     func() time.Time
}

type FixedWindowOption func(*FixedWindow)

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) FixedWindowOption {
	return func(w *FixedWindow) { w.now = now }
}

func NewFixedWindow(window time.Duration, max int, opts ...FixedWindowOption) *FixedWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMaxRequests
	}
	w := &FixedWindow{
		records: make(map[domain.Key]*domain.WindowRecord),
		window:  window,
		max:     max,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *FixedWindow) Window() time.Duration { return w.window }
func (w *FixedWindow) MaxRequests() int      { return w.max }

// CheckAndRecord retorna true quando a chave está limitada e a requisição
// deve ser rejeitada. Quando retorna false a requisição já foi contabilizada.
func (w *FixedWindow) CheckAndRecord(key domain.Key) bool {
	limited, _ := w.upsert(key)
	return limited
}

// Check implementa domain.LimiterStore.
func (w *FixedWindow) Check(_ context.Context, key domain.Key) (domain.Result, error) {
	limited, resetAt := w.upsert(key)
	return domain.Result{Limited: limited, ResetAt: resetAt}, nil
}

// upsert faz leitura, expiração e escrita sob o mesmo lock.
func (w *FixedWindow) upsert(key domain.Key) (bool, time.Time) {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	rec, ok := w.records[key]
	if !ok || now.After(rec.ResetAt) {
		rec = &domain.WindowRecord{Count: 1, ResetAt: now.Add(w.window)}
		w.records[key] = rec
		return false, rec.ResetAt
	}
	// rejeitada não conta para a janela
	if rec.Count >= w.max {
		return true, rec.ResetAt
	}
	rec.Count++
	return false, rec.ResetAt
}

// Record devolve uma cópia do registro atual da chave, se existir.
func (w *FixedWindow) Record(key domain.Key) (domain.WindowRecord, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec, ok := w.records[key]
	if !ok {
		return domain.WindowRecord{}, false
	}
	return *rec, true
}

// Len retorna quantas chaves têm registro.
func (w *FixedWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.records)
}
