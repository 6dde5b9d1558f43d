package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GateResponses    *prometheus.CounterVec
	RateLimitDenied  prometheus.Counter
	UpstreamDuration *prometheus.HistogramVec
	InFlight         prometheus.GaugeFunc
}

// New registra as métricas em reg. Use prometheus.NewRegistry() nos testes
// para não colidir com o registry global.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GateResponses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_llm_responses_total",
			Help: "Responses sent by the LLM proxy, by action and status code",
		}, []string{"action", "status"}),
		RateLimitDenied: f.NewCounter(prometheus.CounterOpts{
			Name: "gateway_ratelimit_denied_total",
			Help: "Requests rejected by the per-client rate limiter",
		}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_upstream_duration_seconds",
			Help:    "Latency of calls to the text-generation provider",
			Buckets: prometheus.DefBuckets,
		}, []string{"action", "outcome"}),
	}
}

// WatchInFlight publica o valor de fn como gauge.
func (m *Metrics) WatchInFlight(reg prometheus.Registerer, fn func() int) {
	m.InFlight = promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "gateway_inflight_requests",
		Help: "Requests currently holding a concurrency slot",
	}, func() float64 { return float64(fn()) })
}

func (m *Metrics) ObserveResponse(action string, status int) {
	if m == nil {
		return
	}
	if action == "" {
		action = "none"
	}
	m.GateResponses.WithLabelValues(action, strconv.Itoa(status)).Inc()
}

func (m *Metrics) IncrementRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitDenied.Inc()
}

func (m *Metrics) ObserveUpstream(action string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	m.UpstreamDuration.WithLabelValues(action, outcome).Observe(d.Seconds())
}
