package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service collectors on a dedicated registry so several
// instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	escalationRuns      *prometheus.CounterVec
	ticketsEscalated    *prometheus.CounterVec
	escalationDuration  prometheus.Histogram
	danglingAssignments prometheus.Counter
	ticketsCreated      *prometheus.CounterVec
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_errors_total",
			Help: "HTTP error responses by error code.",
		}, []string{"path", "method", "code"}),
		escalationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_escalation_job_runs_total",
			Help: "Escalation job runs by outcome.",
		}, []string{"outcome"}),
		ticketsEscalated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_tickets_escalated_total",
			Help: "Tickets escalated by rule name.",
		}, []string{"rule"}),
		escalationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpdesk_escalation_job_duration_seconds",
			Help:    "Escalation job wall time.",
			Buckets: prometheus.DefBuckets,
		}),
		danglingAssignments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_escalation_dangling_assignees_total",
			Help: "Rule firings whose assignee could not be resolved.",
		}),
		ticketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_tickets_created_total",
			Help: "Tickets created by priority.",
		}, []string{"priority"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.httpErrors,
		m.escalationRuns,
		m.ticketsEscalated,
		m.escalationDuration,
		m.danglingAssignments,
		m.ticketsCreated,
	)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(path, method, code).Inc()
}

// RecordEscalationRun records one job execution. outcome is "ok",
// "skipped" or "failed".
func (m *Metrics) RecordEscalationRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.escalationRuns.WithLabelValues(outcome).Inc()
	m.escalationDuration.Observe(duration.Seconds())
}

// RecordEscalation counts one escalated ticket.
func (m *Metrics) RecordEscalation(rule string, dangling bool) {
	if m == nil {
		return
	}
	m.ticketsEscalated.WithLabelValues(rule).Inc()
	if dangling {
		m.danglingAssignments.Inc()
	}
}

// RecordTicketCreated counts a new ticket.
func (m *Metrics) RecordTicketCreated(priority string) {
	if m == nil {
		return
	}
	m.ticketsCreated.WithLabelValues(priority).Inc()
}
