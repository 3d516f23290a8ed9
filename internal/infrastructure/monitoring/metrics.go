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

// Metrics holds all Prometheus metrics. Each instance owns its registry so
// several runtimes (and tests) can coexist in one process. All Record
// methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Acquisition metrics
	PollCycles    *prometheus.CounterVec
	PollDuration  prometheus.Histogram
	TableFetches  *prometheus.CounterVec
	TableDuration *prometheus.HistogramVec
	ValueUpdates  *prometheus.CounterVec

	// Dispatch metrics
	Notifications *prometheus.CounterVec
	HookFailures  *prometheus.CounterVec

	// Resource metrics
	ResourceLoads    *prometheus.CounterVec
	ResourceDuration *prometheus.HistogramVec

	// Application metrics
	AppsRegistered prometheus.Gauge
	AppTransitions *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals for the JSON stats API.
type Snapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	PollCycles    int64   `json:"poll_cycles"`
	FailedTables  int64   `json:"failed_tables"`
	Notifications int64   `json:"notifications"`
	HookFailures  int64   `json:"hook_failures"`
	AvgRequestMS  float64 `json:"avg_request_ms"`
	UptimeSeconds float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a new metrics collector backed by a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(reg)
	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casdk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casdk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		PollCycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casdk_poll_cycles_total",
				Help: "Acquisition cycles by outcome",
			},
			[]string{"result"},
		),
		PollDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "casdk_poll_duration_seconds",
				Help:    "Duration of a full acquisition cycle",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		TableFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casdk_table_fetches_total",
				Help: "Table fetches by table and status",
			},
			[]string{"table", "status"},
		),
		TableDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casdk_table_fetch_duration_seconds",
				Help:    "Per-table fetch duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"table"},
		),
		ValueUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casdk_value_updates_total",
				Help: "Data registry writes, split by whether the value changed",
			},
			[]string{"changed"},
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casdk_notifications_total",
				Help: "Subscription callbacks fired",
			},
			[]string{"app", "trigger"},
		),
		HookFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casdk_hook_failures_total",
				Help: "Application hooks and callbacks that failed",
			},
			[]string{"app", "hook"},
		),

		ResourceLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casdk_resource_loads_total",
				Help: "Resource loads by kind and status",
			},
			[]string{"kind", "status"},
		),
		ResourceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casdk_resource_load_duration_seconds",
				Help:    "Resource load duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),

		AppsRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "casdk_apps_registered",
				Help: "Number of registered applications",
			},
		),
		AppTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casdk_app_transitions_total",
				Help: "Application lifecycle transitions",
			},
			[]string{"app", "state"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "casdk_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "casdk_uptime_seconds",
			Help: "Runtime uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
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
	m.snapshot.totalDuration += duration.Seconds()
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordPollCycle records a finished acquisition cycle.
func (m *Metrics) RecordPollCycle(failed int, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if failed > 0 {
		result = "partial"
	}
	m.PollCycles.WithLabelValues(result).Inc()
	m.PollDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.PollCycles++
	m.snapshot.FailedTables += int64(failed)
	m.mu.Unlock()
}

// RecordPollSkipped records a tick that did not fetch anything.
func (m *Metrics) RecordPollSkipped(reason string) {
	if m == nil {
		return
	}
	m.PollCycles.WithLabelValues(reason).Inc()
}

// RecordTableFetch records a single table fetch.
func (m *Metrics) RecordTableFetch(table, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TableFetches.WithLabelValues(table, status).Inc()
	m.TableDuration.WithLabelValues(table).Observe(duration.Seconds())
}

// RecordValueUpdate records a registry write.
func (m *Metrics) RecordValueUpdate(changed bool) {
	if m == nil {
		return
	}
	label := "false"
	if changed {
		label = "true"
	}
	m.ValueUpdates.WithLabelValues(label).Inc()
}

// RecordNotification records a fired subscription callback.
func (m *Metrics) RecordNotification(app, trigger string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(app, trigger).Inc()
	m.mu.Lock()
	m.snapshot.Notifications++
	m.mu.Unlock()
}

// RecordHookFailure records a failed hook or callback.
func (m *Metrics) RecordHookFailure(app, hook string) {
	if m == nil {
		return
	}
	m.HookFailures.WithLabelValues(app, hook).Inc()
	m.mu.Lock()
	m.snapshot.HookFailures++
	m.mu.Unlock()
}

// RecordResourceLoad records a loaded (or failed) resource.
func (m *Metrics) RecordResourceLoad(kind string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.ResourceLoads.WithLabelValues(kind, status).Inc()
	m.ResourceDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// SetAppsRegistered sets the number of registered applications.
func (m *Metrics) SetAppsRegistered(count int) {
	if m == nil {
		return
	}
	m.AppsRegistered.Set(float64(count))
}

// RecordAppTransition records an application entering a state.
func (m *Metrics) RecordAppTransition(app, state string) {
	if m == nil {
		return
	}
	m.AppTransitions.WithLabelValues(app, state).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// GetSnapshot returns a copy of the running totals.
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	if snap.TotalRequests > 0 {
		snap.AvgRequestMS = snap.totalDuration / float64(snap.TotalRequests) * 1000
	}
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
