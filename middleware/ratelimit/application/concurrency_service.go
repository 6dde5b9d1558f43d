package application

import (
	"context"
	"errors"
	"time"

	"llm-gateway/middleware/ratelimit/domain"
)

// ErrNoSlot indica que o tempo de espera por uma vaga acabou.
var ErrNoSlot = errors.New("no slot available")

// ConcurrencyService limita quantas requisições do gate ficam em andamento
// ao mesmo tempo, sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - AcquireTimeout <= 0: espera até o ctx do chamador encerrar.
//   - AcquireTimeout > 0: espera no máximo esse tempo.
//
// Em caso de falha retorna ErrNoSlot (timeout próprio) ou o erro do ctx do
// chamador (cliente desistiu). O release só é válido quando err == nil.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if ok {
		return release, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoSlot
}
