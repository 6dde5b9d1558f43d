package ratelimit

import (
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"llm-gateway/middleware/ratelimit/application"
	"llm-gateway/middleware/ratelimit/domain"
)

// DefaultRejectMessage é o corpo do 429 enviado ao cliente.
const DefaultRejectMessage = "Too many requests. Please try again later."

// UnknownKey identifica clientes sem XFF nem RemoteAddr.
const UnknownKey = "unknown"

type KeyFunc func(r *http.Request) string

type Options struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RejectMessage       string
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	Logger              *log.Logger
	// Now é o relógio usado no Retry-After. Nil usa time.Now.
	Now func() time.Time
	// OnDecision é chamado uma vez por requisição, depois da decisão.
	OnDecision func(r *http.Request, key domain.Key, dec domain.Decision)
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

type windowInfo interface {
	Window() time.Duration
	MaxRequests() int
}

// DefaultKeyFunc extrai a identidade do cliente.
//
// Ordem: header configurado, primeiro IP do X-Forwarded-For (se confiável),
// host do RemoteAddr, "unknown". Nenhum valor é autenticado: quem controla
// os headers da requisição controla a chave.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro valor do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		addr := strings.TrimSpace(r.RemoteAddr)
		if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
			return host
		}
		if addr != "" {
			return addr
		}
		return UnknownKey
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RejectMessage == "" {
		opts.RejectMessage = DefaultRejectMessage
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	svc := application.Service{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
		Now:        opts.Now,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.Key(opts.KeyFn(r))

			if opts.AddRateLimitHeaders {
				setInfoHeaders(w.Header(), key, opts.Store)
			}

			dec := svc.Decide(r.Context(), key)
			if dec.Err != nil {
				opts.Logger.Printf("ratelimit: store error for key %q, allowing: %v", key, dec.Err)
			}
			if opts.OnDecision != nil {
				opts.OnDecision(r, key, dec)
			}
			if opts.Stats != nil {
				if err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     key,
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				}); err != nil {
					opts.Logger.Printf("ratelimit: stats error: %v", err)
				}
			}
			if !dec.Allowed {
				w.Header().Set("Retry-After", formatInt(retryAfterSeconds(dec.RetryAfter)))
				WriteError(w, opts.RejectStatus, opts.RejectMessage)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setInfoHeaders(h http.Header, key domain.Key, store domain.LimiterStore) {
	h.Set("X-RateLimit-Key", string(key))
	switch s := store.(type) {
	case windowInfo:
		h.Set("X-RateLimit-Limit", formatInt(s.MaxRequests()))
		h.Set("X-RateLimit-Window", formatInt(int(s.Window().Seconds())))
	case rateInfo:
		h.Set("X-RateLimit-RPS", formatFloat(s.RPS()))
		h.Set("X-RateLimit-Burst", formatInt(s.Burst()))
	}
}

// retryAfterSeconds arredonda para cima: 2.5s vira 3.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
