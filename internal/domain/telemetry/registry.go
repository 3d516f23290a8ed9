package telemetry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/casdk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"go.uber.org/zap"
)

// DataPoint is one named value tracked by the registry.
type DataPoint struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Prefix    string      `json:"prefix"`
	Type      string      `json:"type"`
	Value     types.Value `json:"value"`
	Previous  types.Value `json:"previous"`
	Changed   bool        `json:"changed"`
	UpdatedAt time.Time   `json:"updated_at,omitempty"`
}

// Event converts the point into a change notification.
func (p DataPoint) Event() types.Event {
	return types.Event{
		ID:        p.ID,
		Prefix:    p.Prefix,
		Type:      p.Type,
		Value:     p.Value,
		Previous:  p.Previous,
		Changed:   p.Changed,
		UpdatedAt: p.UpdatedAt,
	}
}

// Listener receives every registry update.
type Listener interface {
	OnValueChange(ctx context.Context, ev types.Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, ev types.Event)

// OnValueChange implements Listener.
func (f ListenerFunc) OnValueChange(ctx context.Context, ev types.Event) {
	f(ctx, ev)
}

// Registry holds every data point seen so far. Points are created lazily on
// first registration and never removed.
type Registry struct {
	mu         sync.RWMutex
	points     map[string]*DataPoint
	processors map[string]Processor
	listeners  []Listener

	logger  *zap.Logger
	metrics *monitoring.Metrics
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = logging.OrNop(l) }
}

// WithMetrics records writes.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithProcessors replaces the default post-processors.
func WithProcessors(p map[string]Processor) Option {
	return func(r *Registry) {
		r.processors = make(map[string]Processor, len(p))
		for id, fn := range p {
			r.processors[CanonicalID("", id)] = fn
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry with the default post-processors.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		points:     make(map[string]*DataPoint),
		processors: DefaultProcessors(),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CanonicalID builds the case-insensitive id of a value.
func CanonicalID(prefix, name string) string {
	return strings.ToLower(prefix + name)
}

// Register declares a value and returns its id. The first registration
// wins; later calls leave the metadata untouched. An empty name is ignored
// and yields "".
func (r *Registry) Register(prefix, name, typ string) string {
	if name == "" {
		return ""
	}
	id := CanonicalID(prefix, name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.points[id]; !ok {
		r.points[id] = &DataPoint{
			ID:     id,
			Name:   name,
			Prefix: prefix,
			Type:   typ,
		}
	}
	return id
}

// RegisterProcessor installs a post-processor for id.
func (r *Registry) RegisterProcessor(id string, p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[CanonicalID("", id)] = p
}

// AddListener subscribes l to every update.
func (r *Registry) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Set coerces raw text and stores it under id. See SetValue.
func (r *Registry) Set(ctx context.Context, id, raw string) (types.Event, bool) {
	return r.SetValue(ctx, id, types.Coerce(raw))
}

// SetValue runs the post-processor for id, shifts the current value into
// previous and stores v. Every write notifies listeners, changed or not.
// Unregistered ids are ignored and report false.
func (r *Registry) SetValue(ctx context.Context, id string, v types.Value) (types.Event, bool) {
	id = strings.ToLower(id)

	r.mu.Lock()
	p, ok := r.points[id]
	if !ok {
		r.mu.Unlock()
		r.logger.Debug("Ignoring value for unregistered id", zap.String("id", id))
		return types.Event{}, false
	}

	if proc := r.processors[id]; proc != nil {
		v = proc(v)
	}

	p.Changed = !p.Value.Equal(v)
	p.Previous = p.Value
	p.Value = v
	p.UpdatedAt = r.now()

	ev := p.Event()
	listeners := r.listeners
	r.mu.Unlock()

	r.metrics.RecordValueUpdate(ev.Changed)
	for _, l := range listeners {
		l.OnValueChange(ctx, ev)
	}
	return ev, true
}

// Update registers and sets a value in one step.
func (r *Registry) Update(ctx context.Context, prefix, name, typ, raw string) (types.Event, bool) {
	id := r.Register(prefix, name, typ)
	if id == "" {
		return types.Event{}, false
	}
	return r.Set(ctx, id, raw)
}

// Get returns a copy of the point for id.
func (r *Registry) Get(id string) (DataPoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.points[strings.ToLower(id)]
	if !ok {
		return DataPoint{}, false
	}
	return *p, true
}

// Value returns the current value for id, or def when the id is unknown
// or has not been set yet.
func (r *Registry) Value(id string, def types.Value) types.Value {
	p, ok := r.Get(id)
	if !ok || p.Value.IsNull() {
		return def
	}
	return p.Value
}

// Snapshot returns copies of all points sorted by id.
func (r *Registry) Snapshot() []DataPoint {
	r.mu.RLock()
	out := make([]DataPoint, 0, len(r.points))
	for _, p := range r.points {
		out = append(out, *p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered points.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points)
}
