package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/sdui/internal/domain/render"
	"github.com/GriffinCanCode/sdui/internal/domain/session"
	"github.com/GriffinCanCode/sdui/internal/domain/tree"
)

// Metrics holds all Prometheus metrics on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec

	// Tree metrics
	TreesValidated *prometheus.CounterVec
	TreeNodes      prometheus.Histogram
	TreeDepth      prometheus.Histogram

	// Render metrics
	ElementsRendered   *prometheus.CounterVec
	ComponentsNotFound *prometheus.CounterVec
	DepthLimitHits     prometheus.Counter

	// Event metrics
	Events         *prometheus.CounterVec
	SessionsActive prometheus.Gauge
	WSConnections  prometheus.Gauge
	SinkDeliveries *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals for the JSON health endpoint
type Snapshot struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalErrors   int64   `json:"totalErrors"`
	TreesRendered int64   `json:"treesRendered"`
	EventsBlocked int64   `json:"eventsBlocked"`
	AvgDurationMs float64 `json:"avgDurationMs"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	totalDuration float64
}

var (
	durationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	sizeBuckets     = prometheus.ExponentialBuckets(64, 4, 8)
)

// NewMetrics creates a collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sdui_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sdui_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: durationBuckets,
			},
			[]string{"method", "path"},
		),
		RequestSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sdui_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: sizeBuckets,
			},
			[]string{"method", "path"},
		),

		TreesValidated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sdui_trees_validated_total",
				Help: "Payloads run through the validator, by outcome",
			},
			[]string{"result"},
		),
		TreeNodes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sdui_tree_nodes",
				Help:    "Node count of accepted trees",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 200},
			},
		),
		TreeDepth: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sdui_tree_depth",
				Help:    "Depth of accepted trees",
				Buckets: prometheus.LinearBuckets(1, 2, 10),
			},
		),

		ElementsRendered: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sdui_elements_rendered_total",
				Help: "Elements produced by the renderer, by node type",
			},
			[]string{"type"},
		),
		ComponentsNotFound: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sdui_components_not_found_total",
				Help: "Nodes whose type had no renderer",
			},
			[]string{"type"},
		),
		DepthLimitHits: f.NewCounter(
			prometheus.CounterOpts{
				Name: "sdui_render_depth_limit_total",
				Help: "Subtrees cut off by the render depth guard",
			},
		),

		Events: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sdui_events_total",
				Help: "Dispatched events by kind and target",
			},
			[]string{"kind", "target"},
		),
		SessionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "sdui_sessions_active",
				Help: "Number of live playground sessions",
			},
		),
		WSConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "sdui_ws_connections",
				Help: "Number of open event streams",
			},
		),
		SinkDeliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sdui_sink_deliveries_total",
				Help: "Event sink deliveries by sink and outcome",
			},
			[]string{"sink", "result"},
		),

		Uptime: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "sdui_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records one request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if len(status) > 0 && status[0] >= '4' {
		m.snapshot.TotalErrors++
	}
}

// RecordTree records an accepted tree
func (m *Metrics) RecordTree(t *tree.Tree) {
	m.TreesValidated.WithLabelValues("ok").Inc()
	m.TreeNodes.Observe(float64(t.NodeCount()))
	m.TreeDepth.Observe(float64(t.Depth()))

	m.mu.Lock()
	m.snapshot.TreesRendered++
	m.mu.Unlock()
}

// RecordRejection records a payload the validator refused
func (m *Metrics) RecordRejection(err error) {
	m.TreesValidated.WithLabelValues(tree.Reason(err)).Inc()
}

// RecordDelivery records a sink outcome
func (m *Metrics) RecordDelivery(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SinkDeliveries.WithLabelValues(sink, result).Inc()
}

// SetSessionsActive sets the live session gauge
func (m *Metrics) SetSessionsActive(n int) { m.SessionsActive.Set(float64(n)) }

// WSConnected tracks an opened stream; the returned func closes it
func (m *Metrics) WSConnected() func() {
	m.WSConnections.Inc()
	return m.WSConnections.Dec
}

// ElementRendered implements render.Observer
func (m *Metrics) ElementRendered(componentType string) {
	m.ElementsRendered.WithLabelValues(componentType).Inc()
}

// ComponentNotFound implements render.Observer
func (m *Metrics) ComponentNotFound(err *render.ComponentNotFoundError) {
	m.ComponentsNotFound.WithLabelValues(err.Type).Inc()
}

// DepthLimitHit implements render.Observer
func (m *Metrics) DepthLimitHit(int) { m.DepthLimitHits.Inc() }

// Publish implements session.Sink
func (m *Metrics) Publish(e session.Event) {
	m.Events.WithLabelValues(e.Kind.String(), e.Target.String()).Inc()
	if e.Blocked() {
		m.mu.Lock()
		m.snapshot.EventsBlocked++
		m.mu.Unlock()
	}
}

// Snapshot returns running totals
func (m *Metrics) Snapshot() Snapshot {
	uptime := time.Since(m.startTime).Seconds()
	m.Uptime.Set(uptime)

	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = uptime
	if s.TotalRequests > 0 {
		s.AvgDurationMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	return s
}

var (
	_ render.Observer = (*Metrics)(nil)
	_ session.Sink    = (*Metrics)(nil)
)
