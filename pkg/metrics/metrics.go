package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the service exports. Collectors are bound to
// the registerer passed to New so tests can use a private registry.
type Metrics struct {
	// HTTPRequestsTotal counts requests by route, method and status
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestDuration records request latency by route and method
	HTTPRequestDuration *prometheus.HistogramVec

	// OperationsTotal counts todo operations by op (list/create/delete) and result
	OperationsTotal *prometheus.CounterVec
	// FailuresTotal counts handler failures by error kind
	FailuresTotal *prometheus.CounterVec

	// StoreOperationDuration records key-value backend latency
	StoreOperationDuration *prometheus.HistogramVec

	// EventsPublished counts change events by type and result
	EventsPublished *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_http_requests_total",
				Help: "Total number of HTTP requests handled",
			},
			[]string{"path", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "todo_http_request_duration_seconds",
				Help:    "Latency in seconds of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_operations_total",
				Help: "Total number of todo operations by result",
			},
			[]string{"op", "result"},
		),
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_failures_total",
				Help: "Total number of failed todo requests by error kind",
			},
			[]string{"kind"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "todo_store_operation_duration_seconds",
				Help:    "Latency in seconds of key-value store operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"driver", "op"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_events_published_total",
				Help: "Total number of change events published by result",
			},
			[]string{"type", "result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OperationsTotal,
		m.FailuresTotal,
		m.StoreOperationDuration,
		m.EventsPublished,
	)
	return m
}
