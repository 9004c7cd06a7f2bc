// Package metrics exposes Prometheus instrumentation for the scheduler,
// executor, RPC server, and admin HTTP/WebSocket surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Task metrics
	TasksSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "localtaskd_tasks_submitted_total",
			Help: "Total number of tasks submitted to the scheduler",
		},
	)

	TasksFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localtaskd_tasks_finished_total",
			Help: "Total number of tasks that reached a terminal status",
		},
		[]string{"status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "localtaskd_task_duration_seconds",
			Help:    "Wall-clock time a task spent RUNNING before reaching a terminal status",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15), // 10ms to ~160s
		},
		[]string{"status"},
	)

	// Scheduler metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localtaskd_queue_depth",
			Help: "Current number of tasks in SUBMITTED status",
		},
	)

	ExecutorsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localtaskd_executors_active",
			Help: "Current number of tasks in RUNNING status",
		},
	)

	AvailableCores = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localtaskd_available_cores",
			Help: "Current number of free cores in the scheduler's core budget",
		},
	)

	// RPC metrics
	RPCConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "localtaskd_rpc_connections_total",
			Help: "Total number of TCP connections accepted by the RPC server",
		},
	)

	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localtaskd_rpc_requests_total",
			Help: "Total number of RPC requests handled, by message type",
		},
		[]string{"type"},
	)

	// Admin HTTP metrics
	AdminHTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "localtaskd_admin_http_request_duration_seconds",
			Help:    "Admin HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AdminHTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localtaskd_admin_http_requests_total",
			Help: "Total number of admin HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Admin WebSocket metrics
	AdminWebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localtaskd_admin_websocket_connections",
			Help: "Current number of connected admin dashboard WebSocket clients",
		},
	)
)

// RecordTaskSubmission increments the task-submission counter.
func RecordTaskSubmission() {
	TasksSubmitted.Inc()
}

// RecordTaskFinished records a task reaching a terminal status and the
// duration it spent running.
func RecordTaskFinished(status string, durationSeconds float64) {
	TasksFinished.WithLabelValues(status).Inc()
	TaskDuration.WithLabelValues(status).Observe(durationSeconds)
}

// SetQueueDepth sets the current SUBMITTED task count.
func SetQueueDepth(depth float64) {
	QueueDepth.Set(depth)
}

// SetExecutorsActive sets the current RUNNING task count.
func SetExecutorsActive(count float64) {
	ExecutorsActive.Set(count)
}

// SetAvailableCores sets the current free core count.
func SetAvailableCores(cores float64) {
	AvailableCores.Set(cores)
}

// RecordRPCConnection increments the accepted-connection counter.
func RecordRPCConnection() {
	RPCConnectionsTotal.Inc()
}

// RecordRPCRequest increments the per-message-type RPC request counter.
func RecordRPCRequest(msgType string) {
	RPCRequestsTotal.WithLabelValues(msgType).Inc()
}

// RecordAdminHTTPRequest records one admin HTTP request's outcome.
func RecordAdminHTTPRequest(method, path, status string, durationSeconds float64) {
	AdminHTTPRequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	AdminHTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// SetAdminWebSocketConnections sets the connected-dashboard gauge.
func SetAdminWebSocketConnections(count float64) {
	AdminWebSocketConnections.Set(count)
}
