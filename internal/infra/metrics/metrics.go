// Package metrics exposes the prometheus instruments of the auth service.
package metrics

import (
	"arena/internal/domain/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// AuthMetrics holds the auth protocol counters.
type AuthMetrics struct {
	Registrations *prometheus.CounterVec
	Logins        *prometheus.CounterVec
	SecondFactor  *prometheus.CounterVec
	Sessions      *prometheus.CounterVec
}

// NewRegistry creates a dedicated registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return registry
}

// NewAuthMetrics creates and registers the auth counters.
func NewAuthMetrics(reg *prometheus.Registry) *AuthMetrics {
	m := &AuthMetrics{
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_auth_registrations_total",
				Help: "Total number of registration attempts by result",
			},
			[]string{"result"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_auth_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		SecondFactor: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_auth_second_factor_total",
				Help: "Total number of second factor checks by method and result",
			},
			[]string{"method", "result"},
		),
		Sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_auth_sessions_issued_total",
				Help: "Total number of session tokens issued by reason",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(m.Registrations, m.Logins, m.SecondFactor, m.Sessions)

	return m
}

// NewAuthRecorder exposes m as the domain recorder.
func NewAuthRecorder(m *AuthMetrics) service.AuthMetrics {
	return m
}

func (m *AuthMetrics) RecordRegistration(result string) {
	m.Registrations.WithLabelValues(result).Inc()
}

func (m *AuthMetrics) RecordLogin(result string) {
	m.Logins.WithLabelValues(result).Inc()
}

// RecordSecondFactor counts a second factor check. method is "totp",
// "backup_code" or "none" when neither matched.
func (m *AuthMetrics) RecordSecondFactor(method, result string) {
	if method == "" {
		method = "none"
	}
	m.SecondFactor.WithLabelValues(method, result).Inc()
}

func (m *AuthMetrics) RecordSessionIssued(reason string) {
	m.Sessions.WithLabelValues(reason).Inc()
}

// AuditMetrics counts security events consumed by the audit worker.
type AuditMetrics struct {
	SecurityEvents *prometheus.CounterVec
}

// NewAuditMetrics creates and registers the audit counters.
func NewAuditMetrics(reg *prometheus.Registry) *AuditMetrics {
	m := &AuditMetrics{
		SecurityEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_security_events_received_total",
				Help: "Total number of security events received by type",
			},
			[]string{"type"},
		),
	}
	reg.MustRegister(m.SecurityEvents)

	return m
}

// NewAuditRecorder exposes m as the domain recorder.
func NewAuditRecorder(m *AuditMetrics) service.SecurityEventRecorder {
	return m
}

func (m *AuditMetrics) RecordSecurityEvent(eventType string) {
	m.SecurityEvents.WithLabelValues(eventType).Inc()
}
