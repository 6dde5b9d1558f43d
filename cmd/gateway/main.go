package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"llm-gateway/metrics"
	"llm-gateway/middleware/ratelimit"
	"llm-gateway/middleware/ratelimit/domain"
	"llm-gateway/middleware/ratelimit/infra"
	"llm-gateway/ogpage"
	"llm-gateway/proxy"
	"llm-gateway/upstream"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// .env é opcional; variáveis já exportadas têm precedência
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.rateRedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.rateRedisAddr,
			Password: cfg.rateRedisPass,
			DB:       cfg.rateRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			log.Fatalf("redis ping error: %v", err)
		}
	}

	var limiter domain.LimiterStore
	switch cfg.rateBackend {
	case "redis":
		limiter = infra.NewRedisFixedWindow(rdb, infra.DefaultWindow, infra.DefaultMaxRequests,
			infra.WithWindowPrefix(cfg.rateRedisKey))
	case "token":
		store := infra.NewTokenStore(cfg.rateRPS, cfg.rateBurst)
		store.StartJanitor(ctx)
		limiter = store
	default:
		limiter = infra.NewFixedWindow(infra.DefaultWindow, infra.DefaultMaxRequests)
	}

	var (
		statsStore domain.StatsStore
		memStats   *infra.MemoryStatsStore
	)
	switch {
	case !cfg.rateStatsEnabled:
	case rdb != nil:
		statsStore = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
			infra.WithStatsBucket(cfg.rateStatsBucket),
			infra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
		)
	default:
		// sem redis os contadores ficam no processo e saem no log ao desligar
		memStats = infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.rateStatsTrackKeys))
		statsStore = memStats
	}

	httpClient := &http.Client{Timeout: cfg.upstreamTimeout}
	var client upstream.Client
	switch cfg.provider {
	case "openai":
		client = upstream.NewOpenAIClient(cfg.openaiModel, cfg.openaiURL, httpClient)
	default:
		opts := []upstream.AnthropicOption{
			upstream.WithAnthropicModel(cfg.anthropicModel),
			upstream.WithHTTPClient(httpClient),
		}
		if cfg.anthropicURL != "" {
			opts = append(opts, upstream.WithAnthropicBaseURL(cfg.anthropicURL))
		}
		client = upstream.NewAnthropicClient(opts...)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	gate := proxy.New(proxy.Options{
		Limiter:             limiter,
		Stats:               statsStore,
		AddRateLimitHeaders: cfg.addHeaders,
		Upstream:            client,
		Credential:          proxy.EnvCredential(cfg.credentialEnv),
		Metrics:             m,
		MaxBodyBytes:        cfg.maxBodyBytes,
	})
	if cfg.concurrencyMax > 0 {
		pool := infra.NewChanPool(cfg.concurrencyMax)
		m.WatchInFlight(prometheus.DefaultRegisterer, pool.InUse)
		gate = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			Pool:           pool,
			AcquireTimeout: cfg.concurrencyTimeout,
		})(gate)
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           newRouter(cfg, gate),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if memStats != nil {
			logStats(memStats)
		}
	}()

	log.Printf("gateway listening on %s (provider=%s)", cfg.listenAddr, cfg.provider)
	log.Printf("rate: backend=%s window=%s max=%d", cfg.rateBackend, infra.DefaultWindow, infra.DefaultMaxRequests)
	log.Printf("rate-stats: enabled=%v bucket=%q ttl=%s trackKeys=%v", cfg.rateStatsEnabled, cfg.rateStatsBucket, cfg.rateStatsTTL, cfg.rateStatsTrackKeys)
	log.Printf("concurrency: max=%d acquireTimeout=%s", cfg.concurrencyMax, cfg.concurrencyTimeout)
	if _, ok := os.LookupEnv(cfg.credentialEnv); !ok {
		log.Printf("warning: %s is not set; /api/anthropic will answer 500 until it is", cfg.credentialEnv)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

func logStats(s *infra.MemoryStatsStore) {
	total := s.Total()
	log.Printf("rate-stats: allowed=%d denied=%d", total.Allowed, total.Denied)
	for route, c := range s.ByRoute() {
		log.Printf("rate-stats: route=%q allowed=%d denied=%d", route, c.Allowed, c.Denied)
	}
}

// newRouter monta as rotas públicas. O gate fica fora do Recoverer do chi
// porque tem a própria rede de segurança com corpo JSON.
func newRouter(cfg config, gate http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Handle("/api/anthropic", gate)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Recoverer)

		caseStudies := ogpage.Handler{Table: ogpage.CaseStudies, SiteURL: cfg.siteURL, PathPrefix: "/case-studies/", Mode: ogpage.RedirectScript}
		journal := ogpage.Handler{Table: ogpage.Journal, SiteURL: cfg.siteURL, PathPrefix: "/journal/", Mode: ogpage.RedirectMetaRefresh}

		r.Get("/api/og/case-study", caseStudies.ServeHTTP)
		r.Get("/api/og/case-study/{slug}", caseStudies.ServeHTTP)
		r.Get("/api/og/journal", journal.ServeHTTP)
		r.Get("/api/og/journal/{slug}", journal.ServeHTTP)

		r.Handle("/metrics", promhttp.Handler())
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok\n"))
		})
	})
	return r
}
