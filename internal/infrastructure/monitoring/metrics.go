package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Evaluation outcome labels
const (
	OutcomeOK          = "ok"
	OutcomeScriptError = "script_error"
	OutcomeTimeout     = "timeout"
	OutcomeInjection   = "injection_failed"
	OutcomeClosed      = "channel_closed"
	OutcomeCancelled   = "cancelled"
)

// Metadata resolution paths
const (
	PathInPage   = "in_page"
	PathFallback = "http_fallback"
	PathEmpty    = "empty"
	PathNoURL    = "no_url"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can run without a collector in tests.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Script bridge metrics
	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	PendingRequests    prometheus.Gauge
	RelayUnmatched     prometheus.Counter
	RelayMalformed     prometheus.Counter

	// Event bus metrics
	BusPublished *prometheus.CounterVec
	BusDropped   *prometheus.CounterVec

	// Metadata metrics
	MetadataResolutions *prometheus.CounterVec
	FetchDuration       prometheus.Histogram

	// Surface metrics
	SurfacesAttached *prometheus.GaugeVec
	WSMessages       *prometheus.CounterVec

	// Command metrics
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	Uptime    prometheus.GaugeFunc
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint
type Snapshot struct {
	TotalRequests    int64 `json:"total_requests"`
	TotalErrors      int64 `json:"total_errors"`
	Evaluations      int64 `json:"evaluations"`
	EvaluationErrors int64 `json:"evaluation_errors"`
	Pending          int64 `json:"pending"`
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_evaluations_total",
				Help: "Correlated script evaluations by outcome",
			},
			[]string{"outcome"},
		),
		EvaluationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bridge_evaluation_duration_seconds",
				Help:    "Time from injection to completion or timeout",
				Buckets: []float64{.005, .01, .025, .05, .1, .2, .4, .8, 1.6, 3.2},
			},
		),
		PendingRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_pending_requests",
				Help: "Entries currently held in the pending request table",
			},
		),
		RelayUnmatched: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_relay_unmatched_total",
				Help: "script-response events whose id had no pending entry",
			},
		),
		RelayMalformed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bridge_relay_malformed_total",
				Help: "script-response events dropped because the payload did not parse",
			},
		),

		BusPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_published_total",
				Help: "Events published on the bus by topic",
			},
			[]string{"topic"},
		),
		BusDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_dropped_total",
				Help: "Events dropped because a subscriber queue was full",
			},
			[]string{"topic"},
		),

		MetadataResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_resolutions_total",
				Help: "Page metadata resolutions by the path that produced the record",
			},
			[]string{"path"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "metadata_fetch_duration_seconds",
				Help:    "HTTP fallback fetch duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),

		SurfacesAttached: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "surfaces_attached",
				Help: "Browsing surfaces currently attached, by kind",
			},
			[]string{"kind"},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commands_total",
				Help: "Invoked commands by name and status",
			},
			[]string{"command", "status"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "command_duration_seconds",
				Help:    "Command duration in seconds",
				Buckets: []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"command"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "backend_uptime_seconds",
			Help: "Backend uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordEvaluation records the outcome of one correlated evaluation
func (m *Metrics) RecordEvaluation(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(outcome).Inc()
	m.EvaluationDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Evaluations++
	if outcome != OutcomeOK {
		m.snapshot.EvaluationErrors++
	}
	m.mu.Unlock()
}

// SetPending sets the pending table size
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingRequests.Set(float64(n))
	m.mu.Lock()
	m.snapshot.Pending = int64(n)
	m.mu.Unlock()
}

// IncRelayUnmatched counts a response that matched no pending entry
func (m *Metrics) IncRelayUnmatched() {
	if m == nil {
		return
	}
	m.RelayUnmatched.Inc()
}

// IncRelayMalformed counts a response payload that failed to parse
func (m *Metrics) IncRelayMalformed() {
	if m == nil {
		return
	}
	m.RelayMalformed.Inc()
}

// RecordPublish counts a published event
func (m *Metrics) RecordPublish(topic string) {
	if m == nil {
		return
	}
	m.BusPublished.WithLabelValues(topic).Inc()
}

// RecordDrop counts an event dropped on a full subscriber queue
func (m *Metrics) RecordDrop(topic string) {
	if m == nil {
		return
	}
	m.BusDropped.WithLabelValues(topic).Inc()
}

// RecordMetadata counts a metadata resolution by path
func (m *Metrics) RecordMetadata(path string) {
	if m == nil {
		return
	}
	m.MetadataResolutions.WithLabelValues(path).Inc()
}

// ObserveFetch records a fallback fetch duration
func (m *Metrics) ObserveFetch(duration time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(duration.Seconds())
}

// SetSurfaces sets the attached surface count for a kind
func (m *Metrics) SetSurfaces(kind string, n int) {
	if m == nil {
		return
	}
	m.SurfacesAttached.WithLabelValues(kind).Set(float64(n))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// RecordCommand records a command invocation
func (m *Metrics) RecordCommand(command, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, status).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// GetSnapshot returns a copy of the running totals
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
