package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Extension connection metrics
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter

	// Command correlation metrics
	PendingRequests  prometheus.Gauge
	CommandsTotal    *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	ResponsesDropped prometheus.Counter

	// Inbound frame metrics
	EventsTotal        *prometheus.CounterVec
	ProtocolViolations prometheus.Counter

	// Tool metrics
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	ActiveConnections int64
	PendingRequests   int64
	CommandsIssued    int64
	DroppedResponses  int64
}

// NewMetrics creates a new metrics collector on the default Prometheus
// registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates a metrics collector on a specific registry.
// Tests use this to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// Extension connection metrics
		ConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_connections_active",
				Help: "Number of registered extension connections",
			},
		),
		ConnectionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_connections_total",
				Help: "Total number of extension connections accepted",
			},
		),

		// Command correlation metrics
		PendingRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_pending_requests",
				Help: "Number of commands awaiting a response",
			},
		),
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_commands_total",
				Help: "Total number of commands sent to the extension",
			},
			[]string{"op", "status"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_command_duration_seconds",
				Help:    "Command round-trip duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"op"},
		),
		ResponsesDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_responses_dropped_total",
				Help: "Responses matched against an expired or unknown correlation id",
			},
		),

		// Inbound frame metrics
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_events_total",
				Help: "Total number of unsolicited extension events",
			},
			[]string{"event"},
		),
		ProtocolViolations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_protocol_violations_total",
				Help: "Malformed frames that terminated a connection",
			},
		),

		// Tool metrics
		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_tool_calls_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool", "status"},
		),
		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bridge_tool_duration_seconds",
				Help:    "Tool invocation duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool"},
		),

		// System metrics
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_uptime_seconds",
				Help: "Bridge uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordCommand records a completed command round-trip
func (m *Metrics) RecordCommand(op, status string, duration time.Duration) {
	m.CommandsTotal.WithLabelValues(op, status).Inc()
	m.CommandDuration.WithLabelValues(op).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.CommandsIssued++
	m.mu.Unlock()
}

// RecordToolCall records a tool invocation
func (m *Metrics) RecordToolCall(tool, status string, duration time.Duration) {
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordEvent records an unsolicited extension event
func (m *Metrics) RecordEvent(event string) {
	m.EventsTotal.WithLabelValues(event).Inc()
}

// RecordDroppedResponse records a response that matched no pending entry
func (m *Metrics) RecordDroppedResponse() {
	m.ResponsesDropped.Inc()
	m.mu.Lock()
	m.snapshot.DroppedResponses++
	m.mu.Unlock()
}

// RecordProtocolViolation records a malformed frame
func (m *Metrics) RecordProtocolViolation() {
	m.ProtocolViolations.Inc()
}

// IncConnections increments the active connection gauge
func (m *Metrics) IncConnections() {
	m.ConnectionsActive.Inc()
	m.ConnectionsTotal.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecConnections decrements the active connection gauge
func (m *Metrics) DecConnections() {
	m.ConnectionsActive.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// SetPendingRequests sets the pending request gauge
func (m *Metrics) SetPendingRequests(count int) {
	m.PendingRequests.Set(float64(count))
	m.mu.Lock()
	m.snapshot.PendingRequests = int64(count)
	m.mu.Unlock()
}

// Snapshot returns the current metric values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// StartTime returns when the collector was created
func (m *Metrics) StartTime() time.Time {
	return m.startTime
}
