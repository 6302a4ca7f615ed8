package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Bridge metrics
	BridgeInbound  *prometheus.CounterVec
	BridgeOutbound *prometheus.CounterVec
	BridgeInFlight prometheus.Gauge

	// Capability metrics
	PermissionDecisions *prometheus.CounterVec
	LocationDuration    *prometheus.HistogramVec
	TokenErrors         *prometheus.CounterVec

	// Navigation metrics
	BackSignals *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector on its own registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith creates a metrics collector registered on reg.
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),
		registry:  reg,

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shell_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// Bridge metrics
		BridgeInbound: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_bridge_inbound_total",
				Help: "Inbound bridge messages by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		BridgeOutbound: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_bridge_outbound_total",
				Help: "Outbound bridge messages by type",
			},
			[]string{"type"},
		),
		BridgeInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_bridge_in_flight",
				Help: "Bridge handlers currently running",
			},
		),

		// Capability metrics
		PermissionDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_permission_decisions_total",
				Help: "Location permission decisions by platform and decision",
			},
			[]string{"platform", "decision"},
		),
		LocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shell_location_fix_duration_seconds",
				Help:    "Time to obtain a position fix",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"status"},
		),
		TokenErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_token_store_errors_total",
				Help: "Token store failures by operation",
			},
			[]string{"operation"},
		),

		// Navigation metrics
		BackSignals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_back_signals_total",
				Help: "Hardware back signals by handling result",
			},
			[]string{"handled"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_ws_connections",
				Help: "Number of active content surface connections",
			},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "shell_uptime_seconds",
			Help: "Host uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are exported from.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordInbound records an inbound bridge message.
func (m *Metrics) RecordInbound(kind, outcome string) {
	m.BridgeInbound.WithLabelValues(kind, outcome).Inc()
}

// RecordOutbound records an outbound bridge message.
func (m *Metrics) RecordOutbound(msgType string) {
	m.BridgeOutbound.WithLabelValues(msgType).Inc()
}

// HandlerStarted marks a bridge handler as running.
func (m *Metrics) HandlerStarted() {
	m.BridgeInFlight.Inc()
}

// HandlerFinished marks a bridge handler as done.
func (m *Metrics) HandlerFinished() {
	m.BridgeInFlight.Dec()
}

// RecordPermission records a terminal permission decision.
func (m *Metrics) RecordPermission(platform, decision string) {
	m.PermissionDecisions.WithLabelValues(platform, decision).Inc()
}

// RecordLocationFix records how long a fix took and whether it succeeded.
func (m *Metrics) RecordLocationFix(status string, duration time.Duration) {
	m.LocationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordTokenError records a token store failure.
func (m *Metrics) RecordTokenError(operation string) {
	m.TokenErrors.WithLabelValues(operation).Inc()
}

// RecordBackSignal records how a back signal was handled.
func (m *Metrics) RecordBackSignal(handled string) {
	m.BackSignals.WithLabelValues(handled).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
