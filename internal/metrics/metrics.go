package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RateMetrics holds the resolver counters exposed on /metrics.
type RateMetrics struct {
	CacheLookupsTotal  *prometheus.CounterVec
	UpstreamFetchTotal *prometheus.CounterVec
	ResolveDuration    *prometheus.HistogramVec
	HTTPRequestsTotal  *prometheus.CounterVec
}

func NewRateMetrics(reg prometheus.Registerer) *RateMetrics {
	factory := promauto.With(reg)
	return &RateMetrics{
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_rate_cache_lookups_total",
				Help: "Cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		),
		UpstreamFetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_rate_upstream_fetch_total",
				Help: "NBP fetches by outcome",
			},
			[]string{"outcome"},
		),
		ResolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exchange_rate_resolve_duration_seconds",
				Help:    "Time spent resolving one exchange rate",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 3, 10, 30},
			},
			[]string{"outcome"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
	}
}

func (m *RateMetrics) RecordCacheHit() {
	m.CacheLookupsTotal.WithLabelValues("hit").Inc()
}

func (m *RateMetrics) RecordCacheMiss() {
	m.CacheLookupsTotal.WithLabelValues("miss").Inc()
}

func (m *RateMetrics) RecordUpstreamFetch(outcome string) {
	m.UpstreamFetchTotal.WithLabelValues(outcome).Inc()
}

func (m *RateMetrics) RecordResolve(outcome string, started time.Time) {
	m.ResolveDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

func (m *RateMetrics) RecordHTTPRequest(route, status string) {
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
}
