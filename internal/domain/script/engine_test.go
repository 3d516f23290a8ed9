package script

import (
	"context"
	"testing"
	"time"

	"github.com/GriffinCanCode/casdk/internal/domain/app"
	"github.com/GriffinCanCode/casdk/internal/domain/resource"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/transport"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const speedoScript = `
function created() {
  app.subscribe({id: "VDTVehicleSpeed", unit: "kmh"}, function (value, ev) {
    log.info("speed", value, ev.changed, ev.unit);
  }, GREATER);
}

function focused() {
  log.info("settings", app.getSetting("units", "kmh"), app.getSetting("missing", "x"), app.getRegion(), app.id, ANY, EQUAL);
}

function onControllerEvent(ev) {
  if (ev === "bad") {
    throw new Error("unsupported event");
  }
  log.debug("controller", ev);
}
`

func newInstance(t *testing.T, opts ...app.Option) (*app.Instance, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	opts = append(opts, app.WithLogger(zap.New(core)))
	inst := app.NewInstance("speedo", "apps/speedo/", app.Definition{
		Settings: map[string]any{"units": "mph"},
	}, opts...)
	return inst, logs
}

func TestBindExposesHooks(t *testing.T) {
	inst, logs := newInstance(t)
	ctx := context.Background()

	hooks, err := NewEngine(DefaultConfig()).Bind(ctx, inst, []resource.Script{{Path: "app.js", Source: speedoScript}})
	require.NoError(t, err)
	require.NotNil(t, hooks.Created)
	require.NotNil(t, hooks.Focused)
	require.NotNil(t, hooks.ControllerEvent)
	assert.Nil(t, hooks.Lost)
	assert.Nil(t, hooks.RegionChange)

	require.NoError(t, hooks.Created(ctx, inst))
	require.NoError(t, hooks.Focused(ctx, inst))
	assert.Equal(t, 1, logs.FilterMessage("settings mph x na speedo 0 4").Len())

	ev := types.Event{ID: "vdtvehiclespeed", Value: types.IntValue(60), Previous: types.IntValue(50), Changed: true}
	assert.True(t, inst.Notify(ctx, "vdtvehiclespeed", ev))
	assert.Equal(t, 1, logs.FilterMessage("speed 60 true kmh").Len())

	slower := types.Event{ID: "vdtvehiclespeed", Value: types.IntValue(40), Previous: types.IntValue(60), Changed: true}
	assert.False(t, inst.Notify(ctx, "vdtvehiclespeed", slower))

	require.NoError(t, hooks.ControllerEvent(ctx, inst, "cw"))
	assert.Equal(t, 1, logs.FilterMessage("controller cw").Len())
	assert.Error(t, hooks.ControllerEvent(ctx, inst, "bad"))
}

func TestTransformHelpers(t *testing.T) {
	inst, logs := newInstance(t)
	ctx := context.Background()

	hooks, err := NewEngine(DefaultConfig()).Bind(ctx, inst, []resource.Script{{Path: "app.js", Source: `
function created() {
  var t = app.transform;
  log.info("units", t.toMPH(100), t.scaleValue(50, [0, 100], [0, 1]), t.scaleValue(3, [1, 1], [0, 1]), t.scaleValue(3, "x", [0, 1]));
}
`}})
	require.NoError(t, err)
	require.NoError(t, hooks.Created(ctx, inst))
	assert.Equal(t, 1, logs.FilterMessage("units 62 0.5 NaN NaN").Len())
}

func TestBindSkipsFailingScripts(t *testing.T) {
	inst, _ := newInstance(t)
	engine := NewEngine(Config{Timeout: 50 * time.Millisecond})

	hooks, err := engine.Bind(context.Background(), inst, []resource.Script{
		{Path: "spin.js", Source: "while (true) {}"},
		{Path: "syntax.js", Source: "function ("},
		{Path: "lost.js", Source: "function lost() {}"},
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotNil(t, hooks.Lost)
}

func TestHookTimeout(t *testing.T) {
	inst, _ := newInstance(t)
	engine := NewEngine(Config{Timeout: 50 * time.Millisecond})

	hooks, err := engine.Bind(context.Background(), inst, []resource.Script{
		{Path: "app.js", Source: "function focused() { for (;;) {} }"},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, hooks.Focused(context.Background(), inst), ErrTimeout)
}

func TestRuntimeHidesHostGlobals(t *testing.T) {
	rt := NewRuntime(DefaultConfig())
	defer rt.Close()

	ctx := context.Background()
	require.NoError(t, rt.Run(ctx, "check.js", `
if (typeof require !== "undefined" || typeof process !== "undefined") {
  throw new Error("host globals leaked");
}
function answer(x) { return x * 2; }
`))

	fn, ok := rt.Function("answer")
	require.True(t, ok)
	v, err := rt.Call(ctx, fn, nil, 21)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, ok = rt.Function("missing")
	assert.False(t, ok)

	require.NoError(t, rt.Close())
	assert.ErrorIs(t, rt.Run(ctx, "late.js", "1"), ErrClosed)
}

func TestRuntimeCanceledContext(t *testing.T) {
	rt := NewRuntime(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, rt.Run(ctx, "app.js", "1"), context.Canceled)
}

func TestInstanceRunsScriptHooks(t *testing.T) {
	files := map[string][]byte{"apps/speedo/app.js": []byte(speedoScript)}
	loader := resource.NewLoader(transport.FetcherFunc(func(_ context.Context, path string) ([]byte, error) {
		if data, ok := files[path]; ok {
			return data, nil
		}
		return nil, transport.ErrNotFound
	}))

	core, logs := observer.New(zap.DebugLevel)
	inst := app.NewInstance("speedo", "apps/speedo/", app.Definition{
		Require: app.Requirements{JS: resource.List("app.js")},
	}, app.WithLoader(loader), app.WithScriptEngine(NewEngine(DefaultConfig())), app.WithLogger(zap.New(core)))

	ctx := context.Background()
	require.NoError(t, inst.Wakeup(ctx, nil))
	assert.Equal(t, 1, logs.FilterMessage("settings kmh x na speedo 0 4").Len())
	assert.True(t, inst.HandleControllerEvent(ctx, "cw"))
	assert.False(t, inst.HandleControllerEvent(ctx, "bad"))
}
