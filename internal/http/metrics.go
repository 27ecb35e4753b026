package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hhspend/internal/cache"
)

// routes are the only path labels exported; anything else is "other" so
// scanners cannot blow up label cardinality.
var routes = []string{
	"/", "/estimator", "/ui/estimate", "/categories", "/ui/categories",
	"/api/age-totals", "/api/categories", "/healthz", "/readyz", "/metrics",
}

// serverMetrics owns a dedicated registry so tests can build several
// servers in one process.
type serverMetrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	drills     *prometheus.CounterVec
	estimates  *prometheus.CounterVec
	categories prometheus.Gauge
	loadedAt   prometheus.Gauge
}

func newServerMetrics(panelStats func() cache.Stats) *serverMetrics {
	m := &serverMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hhspend",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hhspend",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		drills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hhspend",
			Name:      "drilldowns_total",
			Help:      "Rendered drill-downs by deepest panel level.",
		}, []string{"level"}),
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hhspend",
			Name:      "estimates_total",
			Help:      "Estimator requests by outcome.",
		}, []string{"outcome"}),
		categories: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hhspend",
			Name:      "dataset_categories",
			Help:      "Categories in the served forest.",
		}),
		loadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hhspend",
			Name:      "dataset_loaded_timestamp_seconds",
			Help:      "Unix time the served dataset was installed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.drills, m.estimates, m.categories, m.loadedAt,
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "hhspend",
			Name:      "panel_cache_hits_total",
			Help:      "Drill-down cache hits.",
		}, func() float64 { return float64(panelStats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "hhspend",
			Name:      "panel_cache_misses_total",
			Help:      "Drill-down cache misses.",
		}, func() float64 { return float64(panelStats().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "hhspend",
			Name:      "panel_cache_entries",
			Help:      "Drill-down cache entries.",
		}, func() float64 { return float64(panelStats().Size) }),
	)
	return m
}

// observe is the trace middleware hook.
func (m *serverMetrics) observe(method, path string, status int, d time.Duration) {
	route := routeLabel(path)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *serverMetrics) datasetInstalled(categories int, at time.Time) {
	m.categories.Set(float64(categories))
	m.loadedAt.Set(float64(at.Unix()))
}

func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func routeLabel(path string) string {
	if strings.HasPrefix(path, "/static/") {
		return "/static/"
	}
	for _, r := range routes {
		if path == r {
			return r
		}
	}
	return "other"
}
