package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// WindowRecord é o estado de um cliente dentro da janela fixa atual.
//
// Invariantes: Count >= 1 enquanto o registro existir; ResetAt sempre fica no
// futuro em relação ao momento em que o registro foi (re)criado.
type WindowRecord struct {
	Count   int
	ResetAt time.Time
}

// Result é a resposta de um LimiterStore para uma única requisição.
type Result struct {
	Limited bool
	// ResetAt indica quando a janela do cliente expira.
	// Zero quando o algoritmo não tem janela (ex: token bucket).
	ResetAt time.Time
}

// LimiterStore verifica e contabiliza uma requisição para a chave.
//
// A implementação pode ser janela fixa, token bucket, Redis, etc.
// Implementações em memória nunca retornam erro.
type LimiterStore interface {
	Check(ctx context.Context, key Key) (Result, error)
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
	// Err guarda a falha do store quando a decisão foi "fail open".
	Err error
}
