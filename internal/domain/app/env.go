package app

import (
	"context"
	"time"

	"github.com/GriffinCanCode/casdk/internal/domain/resource"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/GriffinCanCode/casdk/internal/shell"
	"go.uber.org/zap"
)

// RegionID is the data id carrying the head unit's region.
const RegionID = "sysregion"

// DefaultAppsPath is where installed applications live.
const DefaultAppsPath = "apps/system/custom/apps/"

// ValueSource reads current data values.
type ValueSource interface {
	Value(id string, def types.Value) types.Value
}

// Surface is where focused application views are mounted.
type Surface interface {
	Attach(appID string) error
	Detach(appID string) error
}

// ScriptEngine binds loaded scripts to an instance and returns the hooks
// the scripts define.
type ScriptEngine interface {
	Bind(ctx context.Context, a *Instance, scripts []resource.Script) (Hooks, error)
}

type env struct {
	loader      *resource.Loader
	values      ValueSource
	engine      ScriptEngine
	router      shell.Router
	surface     Surface
	logger      *zap.Logger
	metrics     *monitoring.Metrics
	appsPath    string
	initTimeout time.Duration
}

func newEnv(opts []Option) *env {
	e := &env{
		router:      shell.NopRouter{},
		logger:      zap.NewNop(),
		appsPath:    DefaultAppsPath,
		initTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Option configures instances and the manager.
type Option func(*env)

// WithLoader sets the resource loader. Without one, manifests are ignored.
func WithLoader(l *resource.Loader) Option {
	return func(e *env) { e.loader = l }
}

// WithValues sets where the region is read from on initialization.
func WithValues(v ValueSource) Option {
	return func(e *env) { e.values = v }
}

// WithScriptEngine sets the engine loaded scripts are bound with.
func WithScriptEngine(s ScriptEngine) Option {
	return func(e *env) { e.engine = s }
}

// WithRouter sets the host framework router.
func WithRouter(r shell.Router) Option {
	return func(e *env) {
		if r != nil {
			e.router = r
		}
	}
}

// WithSurface sets the surface views are mounted on.
func WithSurface(s Surface) Option {
	return func(e *env) { e.surface = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *env) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(e *env) { e.metrics = m }
}

// WithAppsPath sets the directory applications are installed under.
func WithAppsPath(path string) Option {
	return func(e *env) {
		if path != "" {
			e.appsPath = path
		}
	}
}

// WithInitTimeout bounds background initialization after Register.
func WithInitTimeout(d time.Duration) Option {
	return func(e *env) {
		if d > 0 {
			e.initTimeout = d
		}
	}
}
