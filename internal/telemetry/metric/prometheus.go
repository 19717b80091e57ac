package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobdesk"

// Registry holds all application metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	// Auth lifecycle
	Restores     *prometheus.CounterVec
	Logins       *prometheus.CounterVec
	Logouts      prometheus.Counter
	AuthExpired  *prometheus.CounterVec
	SessionState prometheus.Gauge

	// Guard
	GuardDecisions *prometheus.CounterVec

	// Backend calls
	BackendRequests *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec

	// Portal
	PortalRequests *prometheus.CounterVec
}

// NewRegistry creates a registry with every jobdesk metric and the Go
// runtime collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		Restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "restores_total",
			Help:      "Session restorations at startup by result.",
		}, []string{"result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		Logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logouts_total",
			Help:      "Completed logouts.",
		}),
		AuthExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "expired_signals_total",
			Help:      "Authentication-expired signals by how they were handled.",
		}, []string{"result"}),
		SessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "authenticated",
			Help:      "1 while a session is active, 0 otherwise.",
		}),

		GuardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Navigation decisions by outcome.",
		}, []string{"outcome"}),

		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Backend API requests by method and status code.",
		}, []string{"method", "code"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		PortalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portal",
			Name:      "requests_total",
			Help:      "Portal HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}

	r.registry.MustRegister(
		r.Restores,
		r.Logins,
		r.Logouts,
		r.AuthExpired,
		r.SessionState,
		r.GuardDecisions,
		r.BackendRequests,
		r.BackendDuration,
		r.PortalRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Register adds extra collectors, such as a KVCollector.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes all metrics to path in the text exposition format,
// atomically, for the node-exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// ============================================================================
// Recording helpers (satisfy the auth manager's Metrics interface)
// ============================================================================

func (r *Registry) ObserveRestore(result string) {
	r.Restores.WithLabelValues(result).Inc()
	if result == "authenticated" {
		r.SessionState.Set(1)
	}
}

func (r *Registry) ObserveLogin(result string) {
	r.Logins.WithLabelValues(result).Inc()
	if result == "success" {
		r.SessionState.Set(1)
	}
}

func (r *Registry) ObserveLogout() {
	r.Logouts.Inc()
	r.SessionState.Set(0)
}

func (r *Registry) ObserveAuthExpired(result string) {
	r.AuthExpired.WithLabelValues(result).Inc()
	if result == "handled" {
		r.SessionState.Set(0)
	}
}

// ObserveGuard counts a guard decision.
func (r *Registry) ObserveGuard(outcome string) {
	r.GuardDecisions.WithLabelValues(outcome).Inc()
}

// ObserveBackend records one backend round-trip. status 0 means the
// request failed before a response arrived.
func (r *Registry) ObserveBackend(method string, status int, d time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	r.BackendRequests.WithLabelValues(method, code).Inc()
	r.BackendDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObservePortal counts one portal response.
func (r *Registry) ObservePortal(method string, status int) {
	r.PortalRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
