package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the console's Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	forcedLogouts   prometheus.Counter
	guardRedirects  *prometheus.CounterVec
	apiRequests     *prometheus.CounterVec
}

// NewMetrics initialises the registry and the console metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warehouse_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	forced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_forced_logouts_total",
		Help: "Sessions cleared because the API rejected the user.",
	})
	redirects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_guard_redirects_total",
		Help: "Route guard redirects by target.",
	}, []string{"target"})
	api := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_api_requests_total",
		Help: "Remote API calls by method and status class.",
	}, []string{"method", "class"})
	registry.MustRegister(requests, duration, forced, redirects, api)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		forcedLogouts:   forced,
		guardRedirects:  redirects,
		apiRequests:     api,
	}
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

// Middleware records request count and latency.
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

// ForcedLogout counts an "Invalid user" sign-out.
func (m *Metrics) ForcedLogout() {
	if m == nil {
		return
	}
	m.forcedLogouts.Inc()
}

// GuardRedirect counts a guard redirect to target.
func (m *Metrics) GuardRedirect(target string) {
	if m == nil {
		return
	}
	m.guardRedirects.WithLabelValues(target).Inc()
}

// APIRequest counts a remote API call. status 0 means a transport failure.
func (m *Metrics) APIRequest(method string, status int) {
	if m == nil {
		return
	}
	class := "error"
	if status > 0 {
		class = strconv.Itoa(status/100) + "xx"
	}
	m.apiRequests.WithLabelValues(method, class).Inc()
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
