package infra

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the domain counters exported on /metrics.
type Metrics struct {
	SessionsOpened   prometheus.Counter
	SessionsClosed   *prometheus.CounterVec // by discrepancy class
	LedgerEvents     *prometheus.CounterVec // by event type
	DiscrepancyCents prometheus.Histogram
	JobsProcessed    *prometheus.CounterVec // by queue, outcome
	HTTPRequests     *prometheus.CounterVec // by method, route, status
}

// NewMetrics registers the collectors on reg. Pass prometheus.NewRegistry()
// in tests to avoid clashes with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cashpos", Name: "sessions_opened_total",
			Help: "Register sessions opened.",
		}),
		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashpos", Name: "sessions_closed_total",
			Help: "Register sessions closed, by discrepancy class.",
		}, []string{"class"}),
		LedgerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashpos", Name: "ledger_events_total",
			Help: "Ledger events appended, by type.",
		}, []string{"type"}),
		DiscrepancyCents: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cashpos", Name: "close_discrepancy_abs_cents",
			Help:    "Absolute discrepancy at close, in cents.",
			Buckets: []float64{0, 100, 500, 1000, 5000, 10000, 50000},
		}),
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashpos", Name: "jobs_processed_total",
			Help: "Async jobs processed, by queue and outcome.",
		}, []string{"queue", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashpos", Name: "http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.SessionsOpened, m.SessionsClosed, m.LedgerEvents, m.DiscrepancyCents, m.JobsProcessed, m.HTTPRequests)
	return m
}
