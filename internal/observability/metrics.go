package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeSuperseded = "superseded"
	OutcomeUnchanged  = "unchanged"
	OutcomeStale      = "stale"
)

// Metrics collects the Prometheus metrics of the dashboard service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fetchesTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	pollsTotal      *prometheus.CounterVec
	exportsTotal    *prometheus.CounterVec
	exportsInFlight prometheus.Gauge
	screensOpen     prometheus.Gauge
}

// NewMetrics initializes the registry and every collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request duration by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		fetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_page_fetches_total",
			Help: "Paged list fetches by resource and outcome.",
		}, []string{"resource", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_page_fetch_duration_seconds",
			Help:    "Upstream list fetch latency by resource.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_metrics_polls_total",
			Help: "Metrics poll ticks by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_exports_total",
			Help: "Report exports by kind and outcome.",
		}, []string{"kind", "outcome"}),
		exportsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_exports_in_flight",
			Help: "Report exports currently running.",
		}),
		screensOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_screens_open",
			Help: "Open screen sessions.",
		}),
	}
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.fetchesTotal,
		m.fetchDuration,
		m.pollsTotal,
		m.exportsTotal,
		m.exportsInFlight,
		m.screensOpen,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records every HTTP request against its chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

func (m *Metrics) ObserveFetch(resource, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(resource, outcome).Inc()
	if outcome != OutcomeSuperseded {
		m.fetchDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObservePoll(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) ObserveExport(kind, outcome string) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(kind, outcome).Inc()
}

// ExportStarted and ExportFinished bracket one running export.
func (m *Metrics) ExportStarted() {
	if m == nil {
		return
	}
	m.exportsInFlight.Inc()
}

func (m *Metrics) ExportFinished() {
	if m == nil {
		return
	}
	m.exportsInFlight.Dec()
}

func (m *Metrics) SetScreensOpen(n int) {
	if m == nil {
		return
	}
	m.screensOpen.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE responses streaming through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
