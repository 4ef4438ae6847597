package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/technopolis/careers-portal/internal/authstore"
)

// Metrics collects the Prometheus metrics of the portal.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	backendTotal    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	guardTotal      *prometheus.CounterVec
	authTransitions *prometheus.CounterVec
	moderationTotal *prometheus.CounterVec
	liveSessions    prometheus.Gauge
}

// NewMetrics initialises the registry and every portal metric.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	backendTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_backend_requests_total",
		Help: "Backend API round trips by method, route and status. Status 0 means unreachable.",
	}, []string{"method", "route", "code"})
	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_backend_request_duration_seconds",
		Help:    "Backend API latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	guard := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_route_guard_decisions_total",
		Help: "Route guard outcomes by policy.",
	}, []string{"policy", "outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_auth_transitions_total",
		Help: "Auth store state changes.",
	}, []string{"state"})
	moderation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_moderation_actions_total",
		Help: "Moderation decisions by entity kind, action and result.",
	}, []string{"kind", "action", "result"})
	live := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "portal_live_session_feeds",
		Help: "Open websocket session feeds.",
	})
	registry.MustRegister(requests, duration, backendTotal, backendDuration, guard, transitions, moderation, live)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		backendTotal:    backendTotal,
		backendDuration: backendDuration,
		guardTotal:      guard,
		authTransitions: transitions,
		moderationTotal: moderation,
		liveSessions:    live,
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

// Middleware records metrics for every HTTP request.
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

// ObserveBackend records one backend round trip.
func (m *Metrics) ObserveBackend(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.backendDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordGuard counts a route guard decision.
func (m *Metrics) RecordGuard(policy, outcome string) {
	if m == nil {
		return
	}
	m.guardTotal.WithLabelValues(policy, outcome).Inc()
}

// ObserveSession counts an auth store transition. It is installed as the
// silent observer of every store.
func (m *Metrics) ObserveSession(snap authstore.Snapshot) {
	if m == nil {
		return
	}
	state := "signed_out"
	if snap.IsAuthenticated() {
		state = "signed_in"
	}
	m.authTransitions.WithLabelValues(state).Inc()
}

// RecordModeration counts a publish or reject attempt.
func (m *Metrics) RecordModeration(kind, action string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.moderationTotal.WithLabelValues(kind, action, result).Inc()
}

// LiveFeedOpened tracks an opened websocket feed; the returned func closes it.
func (m *Metrics) LiveFeedOpened() func() {
	if m == nil {
		return func() {}
	}
	m.liveSessions.Inc()
	return m.liveSessions.Dec
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

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
