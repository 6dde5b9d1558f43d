package ratelimit

import (
	"errors"
	"net/http"
	"time"

	"llm-gateway/middleware/ratelimit/application"
	"llm-gateway/middleware/ratelimit/domain"
	"llm-gateway/middleware/ratelimit/infra"
)

// DefaultBusyMessage é o corpo do 503 quando não há vaga.
const DefaultBusyMessage = "Service busy. Please try again later."

type ConcurrencyOptions struct {
	Max            int
	Pool           domain.SlotPool
	RejectStatus   int
	RejectMessage  string
	AcquireTimeout time.Duration
}

// ConcurrencyMiddleware limita as requisições em andamento. Max <= 0 sem Pool
// desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil {
		if opts.Max <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		opts.Pool = infra.NewChanPool(opts.Max)
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.RejectMessage == "" {
		opts.RejectMessage = DefaultBusyMessage
	}

	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			if err != nil {
				// cliente já foi embora: não há para quem responder
				if !errors.Is(err, application.ErrNoSlot) {
					return
				}
				WriteError(w, opts.RejectStatus, opts.RejectMessage)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
