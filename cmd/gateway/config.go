package main

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type config struct {
	listenAddr string
	siteURL    string

	provider        string
	credentialEnv   string
	anthropicModel  string
	anthropicURL    string
	openaiModel     string
	openaiURL       string
	upstreamTimeout time.Duration

	rateBackend   string
	rateRedisAddr string
	rateRedisPass string
	rateRedisDB   int
	rateRedisKey  string
	rateRPS       float64
	rateBurst     int
	addHeaders    bool
	maxBodyBytes  int64

	concurrencyMax     int
	concurrencyTimeout time.Duration

	rateStatsEnabled   bool
	rateStatsPrefix    string
	rateStatsTTL       time.Duration
	rateStatsBucket    string
	rateStatsTrackKeys bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.siteURL = getenvDefault("SITE_URL", "http://localhost:8080")

	cfg.provider = strings.ToLower(getenvDefault("LLM_PROVIDER", "anthropic"))
	cfg.anthropicModel = os.Getenv("ANTHROPIC_MODEL")
	cfg.anthropicURL = os.Getenv("ANTHROPIC_BASE_URL")
	cfg.openaiModel = os.Getenv("OPENAI_MODEL")
	cfg.openaiURL = os.Getenv("OPENAI_BASE_URL")
	// 0 = sem timeout próprio; vale o timeout do servidor
	cfg.upstreamTimeout = getenvDurationDefault("UPSTREAM_TIMEOUT", 0)

	// janela (60s) e máximo (20) são constantes; aqui só se escolhe onde o contador vive
	cfg.rateBackend = strings.ToLower(getenvDefault("RATE_BACKEND", "memory"))
	cfg.rateRedisAddr = os.Getenv("RATE_REDIS_ADDR")
	cfg.rateRedisPass = os.Getenv("RATE_REDIS_PASSWORD")
	cfg.rateRedisDB = getenvIntDefault("RATE_REDIS_DB", 0)
	cfg.rateRedisKey = getenvDefault("RATE_REDIS_PREFIX", "ratelimit:window")
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 0)
	cfg.rateBurst = getenvIntDefault("RATE_BURST", 0)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)
	cfg.maxBodyBytes = int64(getenvIntDefault("MAX_BODY_BYTES", 64<<10))

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.rateStatsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "gateway:stats")
	cfg.rateStatsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	switch cfg.provider {
	case "anthropic":
		cfg.credentialEnv = "ANTHROPIC_API_KEY"
	case "openai":
		cfg.credentialEnv = "OPENAI_API_KEY"
	default:
		return config{}, errors.New("LLM_PROVIDER must be anthropic or openai")
	}

	switch cfg.rateBackend {
	case "memory", "token":
	case "redis":
		if strings.TrimSpace(cfg.rateRedisAddr) == "" {
			return config{}, errors.New("RATE_REDIS_ADDR is required when RATE_BACKEND=redis")
		}
	default:
		return config{}, errors.New("RATE_BACKEND must be memory, redis or token")
	}

	if cfg.rateRPS < 0 {
		return config{}, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	// a credencial do provedor não é validada aqui: sem ela o gate responde
	// "API not configured" por requisição
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
