package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/casdk/internal/domain/app"
	"github.com/GriffinCanCode/casdk/internal/domain/dispatch"
	"github.com/GriffinCanCode/casdk/internal/domain/resource"
	"github.com/GriffinCanCode/casdk/internal/domain/telemetry"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Global function names scripts define to receive lifecycle calls.
const (
	GlobalCreated         = "created"
	GlobalFocused         = "focused"
	GlobalLost            = "lost"
	GlobalRegionChange    = "onRegionChange"
	GlobalControllerEvent = "onControllerEvent"
)

// Engine evaluates application scripts, one VM per instance.
type Engine struct {
	config Config
}

// NewEngine creates an engine with the given limits.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Bind evaluates scripts in order in a fresh VM exposing the app API and
// returns hooks for the lifecycle functions they define. A script that
// fails to evaluate is skipped; the first such error is returned along
// with the hooks of the scripts that did evaluate.
func (e *Engine) Bind(ctx context.Context, a *app.Instance, scripts []resource.Script) (app.Hooks, error) {
	rt := NewRuntime(e.config)
	b := &binding{rt: rt, inst: a}
	if err := b.install(); err != nil {
		return app.Hooks{}, fmt.Errorf("install api: %w", err)
	}

	var firstErr error
	for _, s := range scripts {
		if err := rt.Run(ctx, s.Path, s.Source); err != nil {
			a.Logger().Error("Script failed", zap.String("path", s.Path), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return b.hooks(), firstErr
}

// binding connects one VM to one instance.
type binding struct {
	rt   *Runtime
	inst *app.Instance
	self goja.Value
}

func (b *binding) install() error {
	vm := b.rt.VM()

	obj := vm.NewObject()
	set := func(name string, v any) error { return obj.Set(name, v) }
	if err := set("id", b.inst.ID()); err != nil {
		return err
	}
	if err := set("location", b.inst.Location()); err != nil {
		return err
	}
	if err := set("subscribe", b.subscribe); err != nil {
		return err
	}
	if err := set("unsubscribe", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.inst.Unsubscribe(call.Argument(0).String()))
	}); err != nil {
		return err
	}
	if err := set("getSetting", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(b.inst.GetSetting(call.Argument(0).String(), export(call.Argument(1))))
	}); err != nil {
		return err
	}
	if err := set("getRegion", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(string(b.inst.Region()))
	}); err != nil {
		return err
	}
	if err := set("getTitle", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(b.inst.Title())
	}); err != nil {
		return err
	}
	if err := set("transform", b.transform()); err != nil {
		return err
	}
	b.self = obj

	if err := vm.Set("app", obj); err != nil {
		return err
	}

	for _, t := range []types.Trigger{
		types.TriggerAny, types.TriggerChanged, types.TriggerGreater, types.TriggerLesser, types.TriggerEqual,
	} {
		if err := vm.Set(strings.ToUpper(t.String()), int(t)); err != nil {
			return err
		}
	}

	logger := b.inst.Logger()
	log := vm.NewObject()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": logger.Debug,
		"info":  logger.Info,
		"error": logger.Error,
	} {
		fn := fn
		if err := log.Set(name, func(call goja.FunctionCall) goja.Value {
			fn(joinArgs(call.Arguments))
			return goja.Undefined()
		}); err != nil {
			return err
		}
	}
	return vm.Set("log", log)
}

// transform exposes the unit helpers as app.transform.toMPH(kmh) and
// app.transform.scaleValue(v, [fromLo, fromHi], [toLo, toHi]).
func (b *binding) transform() *goja.Object {
	vm := b.rt.VM()
	obj := vm.NewObject()
	_ = obj.Set("toMPH", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(telemetry.ToMPH(call.Argument(0).ToFloat()))
	})
	_ = obj.Set("scaleValue", func(call goja.FunctionCall) goja.Value {
		from, okFrom := rangeArg(call.Argument(1))
		to, okTo := rangeArg(call.Argument(2))
		if !okFrom || !okTo || from[0] == from[1] {
			return goja.NaN()
		}
		return vm.ToValue(telemetry.ScaleValue(call.Argument(0).ToFloat(), from, to))
	})
	return obj
}

// rangeArg reads a two element numeric array.
func rangeArg(v goja.Value) ([2]float64, bool) {
	var r [2]float64
	list, ok := export(v).([]any)
	if !ok || len(list) != 2 {
		return r, false
	}
	for i, x := range list {
		switch n := x.(type) {
		case int64:
			r[i] = float64(n)
		case float64:
			r[i] = n
		default:
			return r, false
		}
	}
	return r, true
}

// subscribe implements app.subscribe(id | {id, ...meta}, fn, trigger).
// Runs inside the VM with the runtime lock held.
func (b *binding) subscribe(call goja.FunctionCall) goja.Value {
	vm := b.rt.VM()

	fn, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		b.inst.Logger().Error("subscribe needs a callback function")
		return vm.ToValue(false)
	}

	var (
		id   string
		opts []dispatch.Option
	)
	switch target := export(call.Argument(0)).(type) {
	case string:
		id = target
	case map[string]any:
		meta := make(map[string]any, len(target))
		for k, v := range target {
			if k == "id" {
				id, _ = v.(string)
				continue
			}
			meta[k] = v
		}
		opts = append(opts, dispatch.WithMeta(meta))
	}

	if trigger, ok := parseTrigger(export(call.Argument(2))); ok {
		opts = append(opts, dispatch.WithTrigger(trigger))
	}

	cb := func(ctx context.Context, value types.Value, ev types.Event) error {
		_, err := b.rt.Call(ctx, fn, b.self, value.Interface(), eventObject(ev))
		return err
	}
	return vm.ToValue(b.inst.Subscribe(id, cb, opts...))
}

func (b *binding) hooks() app.Hooks {
	var h app.Hooks

	if fn, ok := b.rt.Function(GlobalCreated); ok {
		h.Created = b.lifecycle(fn)
	}
	if fn, ok := b.rt.Function(GlobalFocused); ok {
		h.Focused = b.lifecycle(fn)
	}
	if fn, ok := b.rt.Function(GlobalLost); ok {
		h.Lost = b.lifecycle(fn)
	}
	if fn, ok := b.rt.Function(GlobalRegionChange); ok {
		h.RegionChange = func(ctx context.Context, _ *app.Instance, r types.Region) error {
			_, err := b.rt.Call(ctx, fn, b.self, string(r))
			return err
		}
	}
	if fn, ok := b.rt.Function(GlobalControllerEvent); ok {
		h.ControllerEvent = func(ctx context.Context, _ *app.Instance, event string) error {
			_, err := b.rt.Call(ctx, fn, b.self, event)
			return err
		}
	}
	return h
}

func (b *binding) lifecycle(fn goja.Callable) func(context.Context, *app.Instance) error {
	return func(ctx context.Context, _ *app.Instance) error {
		_, err := b.rt.Call(ctx, fn, b.self)
		return err
	}
}

func parseTrigger(v any) (types.Trigger, bool) {
	switch t := v.(type) {
	case int64:
		return types.Trigger(t), true
	case float64:
		return types.Trigger(int(t)), true
	case string:
		return types.ParseTrigger(t)
	}
	return 0, false
}

func eventObject(ev types.Event) map[string]any {
	out := map[string]any{
		"id":       ev.ID,
		"prefix":   ev.Prefix,
		"type":     ev.Type,
		"value":    ev.Value.Interface(),
		"previous": ev.Previous.Interface(),
		"changed":  ev.Changed,
		"trigger":  int(ev.Trigger),
	}
	for k, v := range ev.Meta {
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return out
}

func joinArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}
