package application

import (
	"context"
	"time"

	"llm-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
	// Now permite controlar o relógio nos testes. Nil usa time.Now.
	Now func() time.Time
}

// Decide consulta o store para a chave.
//
// Erro do store não bloqueia o cliente: a decisão sai como permitida e o erro
// vai em Decision.Err para quem quiser logar.
func (s Service) Decide(ctx context.Context, key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	res, err := s.Store.Check(ctx, key)
	if err != nil {
		return domain.Decision{Allowed: true, Err: err}
	}
	if !res.Limited {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: false, RetryAfter: s.retryAfter(res.ResetAt)}
}

// retryAfter usa o fim da janela quando o store informa; senão o valor fixo.
func (s Service) retryAfter(resetAt time.Time) time.Duration {
	if resetAt.IsZero() {
		return s.RetryAfter
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	d := resetAt.Sub(now())
	if d < time.Second {
		return time.Second
	}
	return d
}
