package acquisition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/casdk/internal/domain/telemetry"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/casdk/internal/shared/id"
	"github.com/GriffinCanCode/casdk/internal/shared/tasks"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"go.uber.org/zap"
)

// ActiveChecker reports whether an application is in the foreground. The
// loop only fetches while one is.
type ActiveChecker interface {
	HasActive() bool
}

// ActiveFunc adapts a function to ActiveChecker.
type ActiveFunc func() bool

// HasActive implements ActiveChecker.
func (f ActiveFunc) HasActive() bool { return f() }

// TableStatus is the per-cycle outcome of one table.
type TableStatus string

const (
	TableOK          TableStatus = "ok"
	TableFailed      TableStatus = "failed"
	TableUnsupported TableStatus = "unsupported"
)

// TableReport describes one table in a cycle.
type TableReport struct {
	Name     string        `json:"table"`
	Status   TableStatus   `json:"status"`
	Lines    int           `json:"lines"`
	Values   int           `json:"values"`
	Skipped  int           `json:"skipped"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report describes one acquisition cycle. Loaded always reaches ToLoad:
// failed and unsupported tables count as loaded.
type Report struct {
	ID        id.CycleID    `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Tables    []TableReport `json:"tables"`
	Loaded    int           `json:"loaded"`
	ToLoad    int           `json:"to_load"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// pending is a value collected during the fan-out, applied after the
// barrier.
type pending struct {
	entry telemetry.Entry
	set   bool
}

type collected struct {
	values []pending
	stats  telemetry.ParseStats
}

// Loop periodically acquires every enabled table and applies the values
// to the registry.
type Loop struct {
	registry *telemetry.Registry
	source   SnapshotSource
	active   ActiveChecker
	tables   []TableDescriptor

	interval     time.Duration
	tableTimeout time.Duration
	guards       *resilience.Group
	onCycle      func(Report)

	logger  *zap.Logger
	metrics *monitoring.Metrics

	pollMu sync.Mutex

	mu      sync.Mutex
	paused  bool
	running bool
	last    *Report
	wake    chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithInterval sets the delay between cycles.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) { l.interval = d }
}

// WithTableTimeout bounds each table fetch.
func WithTableTimeout(d time.Duration) Option {
	return func(l *Loop) { l.tableTimeout = d }
}

// WithTables replaces the default table list.
func WithTables(tables []TableDescriptor) Option {
	return func(l *Loop) { l.tables = tables }
}

// WithBreaker overrides the per-table circuit breaker settings.
func WithBreaker(settings resilience.Settings) Option {
	return func(l *Loop) { l.guards = resilience.NewGroup(settings) }
}

// OnCycle installs a callback invoked once at the end of every cycle.
func OnCycle(fn func(Report)) Option {
	return func(l *Loop) { l.onCycle = fn }
}

// WithLogger sets the loop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) { l.logger = logging.OrNop(logger) }
}

// WithMetrics records cycles and fetches.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// New creates a loop writing into registry.
func New(registry *telemetry.Registry, source SnapshotSource, active ActiveChecker, opts ...Option) *Loop {
	l := &Loop{
		registry:     registry,
		source:       source,
		active:       active,
		tables:       DefaultTables(),
		interval:     time.Second,
		tableTimeout: 5 * time.Second,
		guards: resilience.NewGroup(resilience.Settings{
			Timeout: 10 * time.Second,
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
		logger: zap.NewNop(),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tables returns a copy of the table list.
func (l *Loop) Tables() []TableDescriptor {
	out := make([]TableDescriptor, len(l.tables))
	copy(out, l.tables)
	return out
}

// Interval returns the delay between cycles.
func (l *Loop) Interval() time.Duration { return l.interval }

// Run schedules cycles until ctx is done. Each tick either polls, or, when
// no application is active, just schedules the next tick. A paused loop
// stops scheduling until Unpause.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("acquisition loop already running")
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	l.logger.Info("Acquisition loop started",
		zap.Duration("interval", l.interval),
		zap.Int("tables", len(l.tables)))

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Acquisition loop stopped")
			return ctx.Err()

		case <-l.wake:
			timer.Reset(l.interval)

		case <-timer.C:
			if l.tick(ctx) {
				timer.Reset(l.interval)
			}
		}
	}
}

// tick runs one scheduled slot and reports whether to schedule another.
func (l *Loop) tick(ctx context.Context) bool {
	if l.Paused() {
		l.metrics.RecordPollSkipped("paused")
		return false
	}
	if l.active != nil && !l.active.HasActive() {
		l.metrics.RecordPollSkipped("idle")
		return true
	}
	l.Poll(ctx)
	return true
}

// Pause stops scheduling further cycles. A cycle in flight completes.
func (l *Loop) Pause() {
	l.mu.Lock()
	l.paused = true
	l.mu.Unlock()
	l.logger.Debug("Acquisition paused")
}

// Unpause resumes scheduling; the next cycle runs one interval from now.
func (l *Loop) Unpause() {
	l.mu.Lock()
	l.paused = false
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	l.logger.Debug("Acquisition resumed")
}

// Paused reports whether the loop is paused.
func (l *Loop) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// LastReport returns the report of the most recent cycle.
func (l *Loop) LastReport() (Report, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return Report{}, false
	}
	return *l.last, true
}

// BreakerStates reports the circuit state of every external table fetched
// so far.
func (l *Loop) BreakerStates() map[string]string {
	out := make(map[string]string)
	for name, st := range l.guards.States() {
		out[name] = st.String()
	}
	return out
}

// Poll runs one cycle now: every enabled table is acquired concurrently,
// then, once all have finished or timed out, their values are applied to
// the registry in table order. Concurrent calls are serialized.
func (l *Loop) Poll(ctx context.Context) Report {
	l.pollMu.Lock()
	defer l.pollMu.Unlock()

	start := time.Now()
	report := Report{ID: id.NewCycleID(), StartedAt: start}

	var enabled []TableDescriptor
	for _, t := range l.tables {
		if t.Enabled {
			enabled = append(enabled, t)
		}
	}
	report.ToLoad = len(enabled)

	l.logger.Debug("Retrieving data tables",
		zap.String("cycle", report.ID.String()),
		zap.Int("to_load", report.ToLoad))

	tracker := tasks.NewTracker[collected](ctx, l.tableTimeout)
	for _, t := range enabled {
		tracker.Go(t.Name, func(ctx context.Context) (collected, error) {
			return l.collect(ctx, t)
		})
	}
	outcomes := tracker.Wait()

	for i, o := range outcomes {
		tr := l.apply(ctx, enabled[i], o)
		report.Loaded++
		if tr.Status != TableOK {
			report.Failed++
		}
		report.Tables = append(report.Tables, tr)
	}
	report.Duration = time.Since(start)

	l.metrics.RecordPollCycle(report.Failed, report.Duration)
	l.logger.Debug("Data tables retrieved",
		zap.String("cycle", report.ID.String()),
		zap.Int("loaded", report.Loaded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))

	l.mu.Lock()
	l.last = &report
	l.mu.Unlock()

	if l.onCycle != nil {
		l.onCycle(report)
	}
	return report
}

func (l *Loop) collect(ctx context.Context, t TableDescriptor) (collected, error) {
	switch t.Source {
	case SourceInline:
		var out collected
		for _, name := range t.inlineNames() {
			v := t.Data[name]
			raw := ""
			if v.Value != nil {
				raw = fmt.Sprint(v.Value)
			}
			out.values = append(out.values, pending{
				entry: telemetry.Entry{Name: name, Type: v.Type, Raw: raw},
				set:   truthy(v.Value),
			})
		}
		out.stats = telemetry.ParseStats{Lines: len(out.values), Entries: len(out.values)}
		return out, nil

	case SourceExternal:
		filter, err := telemetry.LookupFilter(t.Filter)
		if err != nil {
			return collected{}, err
		}
		text, err := resilience.Call(ctx, l.guards.Get(t.Name), func(ctx context.Context) (string, error) {
			return l.source.Snapshot(ctx, t)
		})
		if err != nil {
			return collected{}, err
		}
		entries, stats := telemetry.ParseSnapshot(text, filter)
		out := collected{stats: stats, values: make([]pending, 0, len(entries))}
		for _, e := range entries {
			out.values = append(out.values, pending{entry: e, set: true})
		}
		return out, nil

	default:
		return collected{}, fmt.Errorf("%w: %q on table %s", types.ErrUnsupportedTable, t.Source, t.Name)
	}
}

func (l *Loop) apply(ctx context.Context, t TableDescriptor, o tasks.Outcome[collected]) TableReport {
	tr := TableReport{Name: t.Name, Status: TableOK, Duration: o.Duration}

	if o.Err != nil {
		tr.Status = TableFailed
		if errors.Is(o.Err, types.ErrUnsupportedTable) {
			tr.Status = TableUnsupported
		}
		tr.Error = o.Err.Error()
		l.metrics.RecordTableFetch(t.Name, string(tr.Status), o.Duration)
		l.logger.Error("Table acquisition failed",
			zap.String("table", t.Name),
			zap.String("status", string(tr.Status)),
			zap.Error(o.Err))
		return tr
	}

	tr.Lines = o.Value.stats.Lines
	tr.Skipped = o.Value.stats.Skipped + o.Value.stats.Binary
	for _, p := range o.Value.values {
		key := l.registry.Register(t.Prefix, p.entry.Name, p.entry.Type)
		if key == "" || !p.set {
			continue
		}
		if _, ok := l.registry.Set(ctx, key, p.entry.Raw); ok {
			tr.Values++
		}
	}

	l.metrics.RecordTableFetch(t.Name, string(tr.Status), o.Duration)
	l.logger.Debug("Table data loaded",
		zap.String("table", t.Name),
		zap.Int("values", tr.Values),
		zap.Int("skipped", tr.Skipped))
	return tr
}
