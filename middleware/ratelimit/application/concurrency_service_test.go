package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

// blockingPool nunca libera vaga; só retorna quando o ctx encerra.
type blockingPool struct{}

func (p *blockingPool) Acquire(ctx context.Context) (func(), bool) {
	<-ctx.Done()
	return nil, false
}

type immediatePool struct {
	acquired int
}

func (p *immediatePool) Acquire(ctx context.Context) (func(), bool) {
	p.acquired++
	return func() {}, true
}

func TestConcurrencyService_Acquire_AllowsWhenNoPool(t *testing.T) {
	svc := ConcurrencyService{}
	release, err := svc.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected slot, got %v", err)
	}
	release()
}

func TestConcurrencyService_Acquire_TimeoutReturnsErrNoSlot(t *testing.T) {
	svc := ConcurrencyService{Pool: &blockingPool{}, AcquireTimeout: 10 * time.Millisecond}

	_, err := svc.Acquire(context.Background())
	if !errors.Is(err, ErrNoSlot) {
		t.Fatalf("expected ErrNoSlot, got %v", err)
	}
}

func TestConcurrencyService_Acquire_CallerCancelReturnsCtxErr(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := ConcurrencyService{Pool: &blockingPool{}}

	_, err := svc.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConcurrencyService_Acquire_NoTimeoutDelegatesToPool(t *testing.T) {
	pool := &immediatePool{}
	svc := ConcurrencyService{Pool: pool}

	_, err := svc.Acquire(context.Background())
	if err != nil {
		t.Fatalf("expected slot, got %v", err)
	}
	if pool.acquired != 1 {
		t.Fatalf("expected pool Acquire to be called once, got %d", pool.acquired)
	}
}
