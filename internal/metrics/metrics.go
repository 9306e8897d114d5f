package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-school-portal/internal/model"
)

const namespace = "school_auth"

// Outcome labels shared by the auth counters.
const (
	OutcomeSuccess            = "success"
	OutcomeValidationFailed   = "validation_failed"
	OutcomeConflict           = "conflict"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

type Metrics struct {
	registry        *prometheus.Registry
	Logins          *prometheus.CounterVec
	Registrations   *prometheus.CounterVec
	GuardRejections *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New builds collectors on a private registry so tests can create as many as they need.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by registry and outcome.",
		}, []string{"entity", "outcome"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by registry and outcome.",
		}, []string{"entity", "outcome"}),
		GuardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_rejections_total",
			Help:      "Protected requests rejected by the request guard.",
		}, []string{"reason"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Logins,
		m.Registrations,
		m.GuardRejections,
		m.RequestDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// LoginAttempt counts one login by outcome. A nil *Metrics is a no-op.
func (m *Metrics) LoginAttempt(entity string, outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(entityLabel(entity), outcome).Inc()
}

func (m *Metrics) RegistrationAttempt(entity string, outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(entityLabel(entity), outcome).Inc()
}

func (m *Metrics) GuardRejection(reason string) {
	if m == nil {
		return
	}
	m.GuardRejections.WithLabelValues(reason).Inc()
}

// entityLabel keeps arbitrary path segments out of the label space.
func entityLabel(entity string) string {
	if model.IsEntity(entity) {
		return entity
	}
	return "unknown"
}
