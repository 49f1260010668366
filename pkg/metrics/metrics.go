// Package metrics exposes Prometheus instrumentation for transaction
// sending, signature building and session monitoring.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transaction outcomes.
const (
	OutcomeConfirmed = "confirmed"
	OutcomeReverted  = "reverted"
	OutcomeFailed    = "failed"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	transactionsTotal   *prometheus.CounterVec
	transactionDuration *prometheus.HistogramVec
	signaturesTotal     *prometheus.CounterVec
	sessionPollsTotal   *prometheus.CounterVec
	sessionsActive      prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg gets a
// fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		transactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sso_session_transactions_total",
				Help: "Total number of transactions sent, by outcome",
			},
			[]string{"authorizer", "outcome"},
		),
		transactionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sso_session_transaction_duration_seconds",
				Help:    "Time from building a transaction to its receipt",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"authorizer"},
		),
		signaturesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sso_session_signatures_total",
				Help: "Total number of custom signatures built",
			},
			[]string{"authorizer", "kind"},
		),
		sessionPollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sso_session_state_polls_total",
				Help: "Total number of session state queries, by result",
			},
			[]string{"result"},
		),
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sso_session_sessions_active",
				Help: "Number of monitored sessions reported active on-chain",
			},
		),
	}

	reg.MustRegister(
		m.transactionsTotal,
		m.transactionDuration,
		m.signaturesTotal,
		m.sessionPollsTotal,
		m.sessionsActive,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTransaction records a finished send.
func (m *Metrics) RecordTransaction(authorizer, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.transactionsTotal.WithLabelValues(authorizer, outcome).Inc()
	m.transactionDuration.WithLabelValues(authorizer).Observe(duration.Seconds())
}

// RecordSignature records a built signature. kind is "placeholder" or "final".
func (m *Metrics) RecordSignature(authorizer, kind string) {
	if m == nil {
		return
	}
	m.signaturesTotal.WithLabelValues(authorizer, kind).Inc()
}

// RecordPoll records a session state query.
func (m *Metrics) RecordPoll(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.sessionPollsTotal.WithLabelValues(result).Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(count int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(count))
}
