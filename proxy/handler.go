// Package proxy é o gate HTTP na frente do provedor de LLM.
//
// Ordem por requisição (qualquer passo pode encerrar com erro):
// método -> identidade -> rate limit -> credencial -> payload -> prompt ->
// chamada upstream -> mapeamento da resposta.
package proxy

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"llm-gateway/metrics"
	"llm-gateway/middleware/ratelimit"
	"llm-gateway/middleware/ratelimit/domain"
	"llm-gateway/upstream"
)

const DefaultMaxBodyBytes = 64 << 10

type Options struct {
	// Limiter decide por cliente. Nil desliga o rate limit.
	Limiter domain.LimiterStore
	Stats   domain.StatsStore
	// KeyFn extrai o cliente. Padrão: primeiro X-Forwarded-For, RemoteAddr, "unknown".
	KeyFn               ratelimit.KeyFunc
	AddRateLimitHeaders bool
	Upstream            upstream.Client
	// Credential é consultada a cada requisição, não só no boot.
	Credential   func() (string, bool)
	Logger       *log.Logger
	Metrics      *metrics.Metrics
	MaxBodyBytes int64
	Now          func() time.Time
}

// EnvCredential lê a chave do provedor da variável name a cada chamada.
func EnvCredential(name string) func() (string, bool) {
	return func() (string, bool) {
		v := os.Getenv(name)
		return v, v != ""
	}
}

type gate struct {
	upstream   upstream.Client
	credential func() (string, bool)
	log        *log.Logger
	metrics    *metrics.Metrics
	maxBody    int64
	now        func() time.Time
}

// New monta o handler completo: guarda de método, rate limit e o gate.
func New(opts Options) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = ratelimit.DefaultKeyFunc("", true)
	}
	if opts.Upstream == nil {
		opts.Upstream = upstream.NewAnthropicClient()
	}
	if opts.Credential == nil {
		opts.Credential = EnvCredential("ANTHROPIC_API_KEY")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	g := &gate{
		upstream:   opts.Upstream,
		credential: opts.Credential,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		maxBody:    opts.MaxBodyBytes,
		now:        opts.Now,
	}

	h := http.Handler(g)
	if opts.Limiter != nil {
		h = ratelimit.Middleware(ratelimit.Options{
			Store:               opts.Limiter,
			Stats:               opts.Stats,
			KeyFn:               opts.KeyFn,
			AddRateLimitHeaders: opts.AddRateLimitHeaders,
			Logger:              opts.Logger,
			Now:                 opts.Now,
			OnDecision: func(_ *http.Request, _ domain.Key, dec domain.Decision) {
				if !dec.Allowed {
					opts.Metrics.IncrementRateLimited()
					opts.Metrics.ObserveResponse("", http.StatusTooManyRequests)
				}
			},
		})(h)
	}
	return postOnly(h, opts.Metrics)
}

// postOnly recusa outros métodos antes de qualquer outro passo; nada é
// contabilizado no rate limit.
func postOnly(next http.Handler, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			m.ObserveResponse("", http.StatusMethodNotAllowed)
			ratelimit.WriteError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var action string
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			g.log.Printf("proxy: panic: %v\n%s", rec, debug.Stack())
			g.fail(w, action, http.StatusInternalServerError, MsgInternal)
		}
	}()

	apiKey, ok := g.credential()
	if !ok {
		g.log.Printf("proxy: upstream API key is not set")
		g.fail(w, action, http.StatusInternalServerError, MsgNotConfigured)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.maxBody))
	if err != nil {
		g.fail(w, action, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	act, err := ParseAction(body)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			g.fail(w, action, reqErr.Status, reqErr.Message)
			return
		}
		g.log.Printf("proxy: parse action: %v", err)
		g.fail(w, action, http.StatusInternalServerError, MsgInternal)
		return
	}
	action = act.Name()

	start := g.now()
	text, err := g.upstream.Complete(r.Context(), upstream.Request{APIKey: apiKey, Prompt: act.Prompt()})
	g.metrics.ObserveUpstream(action, err == nil, g.now().Sub(start))
	if err != nil {
		var se *upstream.StatusError
		if errors.As(err, &se) {
			g.log.Printf("proxy: %s upstream returned %d: %s", action, se.StatusCode, se.Body)
			g.fail(w, action, passthroughStatus(se.StatusCode), MsgUpstream)
			return
		}
		g.log.Printf("proxy: %s upstream call failed: %v", action, err)
		g.fail(w, action, http.StatusInternalServerError, MsgInternal)
		return
	}

	g.metrics.ObserveResponse(action, http.StatusOK)
	ratelimit.WriteJSON(w, http.StatusOK, Result{Result: text})
}

// passthroughStatus repassa o status do provedor; só troca valores que o
// net/http não aceita escrever.
func passthroughStatus(code int) int {
	if code < 100 || code > 999 {
		return http.StatusBadGateway
	}
	return code
}

// Result é o corpo de sucesso.
type Result struct {
	Result string `json:"result"`
}

func (g *gate) fail(w http.ResponseWriter, action string, status int, msg string) {
	g.metrics.ObserveResponse(action, status)
	ratelimit.WriteError(w, status, msg)
}
