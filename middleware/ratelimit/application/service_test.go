package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"llm-gateway/middleware/ratelimit/domain"
)

type fakeStore struct {
	res domain.Result
	err error
}

func (s fakeStore) Check(context.Context, domain.Key) (domain.Result, error) { return s.res, s.err }

func TestService_Decide_AllowsWhenNoStore(t *testing.T) {
	svc := Service{}
	dec := svc.Decide(context.Background(), "k")
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected RetryAfter=0 when allowed, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_AllowsWhenNotLimited(t *testing.T) {
	svc := Service{Store: fakeStore{}, RetryAfter: 5 * time.Second}
	dec := svc.Decide(context.Background(), "k")
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
}

func TestService_Decide_BlocksWithRetryAfterDefault(t *testing.T) {
	svc := Service{Store: fakeStore{res: domain.Result{Limited: true}}}
	dec := svc.Decide(context.Background(), "k")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 1*time.Second {
		t.Fatalf("expected default RetryAfter=1s, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_BlocksUntilWindowReset(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := Service{
		Store: fakeStore{res: domain.Result{Limited: true, ResetAt: now.Add(42 * time.Second)}},
		Now:   func() time.Time { return now },
	}
	dec := svc.Decide(context.Background(), "k")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 42*time.Second {
		t.Fatalf("expected RetryAfter=42s, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_FailsOpenOnStoreError(t *testing.T) {
	boom := errors.New("redis down")
	svc := Service{Store: fakeStore{res: domain.Result{Limited: true}, err: boom}}
	dec := svc.Decide(context.Background(), "k")
	if !dec.Allowed {
		t.Fatalf("expected allowed on store error")
	}
	if !errors.Is(dec.Err, boom) {
		t.Fatalf("expected store error to be carried, got %v", dec.Err)
	}
}
