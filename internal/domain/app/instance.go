package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/GriffinCanCode/casdk/internal/domain/dispatch"
	"github.com/GriffinCanCode/casdk/internal/domain/resource"
	"github.com/GriffinCanCode/casdk/internal/shared/tasks"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"go.uber.org/zap"
)

type initKey struct{ a *Instance }

// Instance is one installed application and its lifecycle state.
type Instance struct {
	id       string
	location string
	settings map[string]any
	require  Requirements
	hooks    Hooks
	env      *env
	logger   *zap.Logger
	subs     *dispatch.Set

	mu          sync.RWMutex
	state       types.State   // Protected by mu
	region      types.Region  // Protected by mu
	initialized bool          // Protected by mu
	initDone    chan struct{} // Protected by mu, non-nil while initializing
	loaded      bool          // Protected by mu
	bound       Hooks         // Protected by mu
	scripts     []resource.Script
	styles      []resource.Style
	images      map[string]resource.Image
	view        *view // Protected by mu
}

// view is the instance's drawing surface. It exists from initialization
// until termination and is attached to a parent Surface while focused.
type view struct {
	parent Surface
}

// NewInstance creates an uninitialized instance. location is the directory
// resources are resolved against.
func NewInstance(id, location string, def Definition, opts ...Option) *Instance {
	return newInstance(id, location, def, newEnv(opts))
}

func newInstance(id, location string, def Definition, e *env) *Instance {
	logger := e.logger.Named(id)
	return &Instance{
		id:       id,
		location: location,
		settings: mergeSettings(def.Settings),
		require:  def.Require,
		hooks:    HooksFrom(def.Hooks),
		env:      e,
		logger:   logger,
		subs:     dispatch.NewSet(id, logger, e.metrics),
		state:    types.StateUninitialized,
		region:   types.DefaultRegion,
	}
}

// Initialize subscribes to region changes, loads the required resources,
// creates the view and runs the created hook. It is idempotent; concurrent
// callers wait for the first one to finish.
func (a *Instance) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		return nil
	}
	if done := a.initDone; done != nil {
		a.mu.Unlock()
		// Hooks of the running initialization may call back in.
		if ctx.Value(initKey{a}) != nil {
			return nil
		}
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	done := make(chan struct{})
	a.initDone = done
	a.state = types.StateInitializing
	loaded := a.loaded
	a.mu.Unlock()

	ctx = context.WithValue(ctx, initKey{a}, true)
	a.logger.Info("Initializing application", zap.String("location", a.location))

	a.subs.Reset()
	a.subs.Subscribe(RegionID, a.regionChanged, dispatch.WithTrigger(types.TriggerChanged))

	region := a.currentRegion()
	if !loaded {
		a.loadResources(ctx)
	}

	a.mu.Lock()
	a.region = region
	a.view = &view{}
	a.state = types.StateCreated
	a.mu.Unlock()
	a.env.metrics.RecordAppTransition(a.id, string(types.StateCreated))

	if h := a.effectiveHooks().Created; h != nil {
		_ = a.runHook(ctx, HookCreated, func(ctx context.Context) error { return h(ctx, a) })
	}

	a.mu.Lock()
	a.initialized = true
	a.initDone = nil
	a.mu.Unlock()
	close(done)
	return nil
}

func (a *Instance) currentRegion() types.Region {
	if a.env.values == nil {
		return types.DefaultRegion
	}
	v := a.env.values.Value(RegionID, types.StringValue(string(types.DefaultRegion)))
	if r, ok := types.ParseRegion(v.String()); ok {
		return r
	}
	return types.DefaultRegion
}

func (a *Instance) loadResources(ctx context.Context) {
	loader := a.env.loader
	if loader == nil {
		a.mu.Lock()
		a.loaded = true
		a.mu.Unlock()
		return
	}

	tracker := tasks.NewTracker[resource.Result](ctx, 0)
	jobs := []struct {
		kind     resource.Kind
		manifest resource.Manifest
	}{
		{resource.KindScript, a.require.JS},
		{resource.KindStyle, a.require.CSS},
		{resource.KindImage, a.require.Images},
	}
	for _, job := range jobs {
		if job.manifest.Len() == 0 {
			continue
		}
		tracker.Go(string(job.kind), func(ctx context.Context) (resource.Result, error) {
			return loader.Load(ctx, job.kind, job.manifest, a.location), nil
		})
	}

	var (
		scripts []resource.Script
		styles  []resource.Style
		images  = make(map[string]resource.Image)
	)
	for _, o := range tracker.Wait() {
		for _, item := range o.Value.Items {
			if !item.OK() {
				a.logger.Error("Resource failed to load",
					zap.String("kind", string(item.Kind)),
					zap.String("path", item.Path),
					zap.Error(item.Err))
				continue
			}
			switch h := item.Handle.(type) {
			case resource.Script:
				scripts = append(scripts, h)
			case resource.Style:
				styles = append(styles, h)
			case resource.Image:
				key := item.ID
				if key == "" {
					key = item.Filename
				}
				images[key] = h
			}
		}
	}

	var bound Hooks
	if len(scripts) > 0 && a.env.engine != nil {
		h, err := a.env.engine.Bind(ctx, a, scripts)
		if err != nil {
			a.logger.Error("Script evaluation failed", zap.Error(err))
			a.env.metrics.RecordHookFailure(a.id, "script")
		}
		bound = h
	}

	a.mu.Lock()
	a.scripts = scripts
	a.styles = styles
	a.images = images
	a.bound = bound
	a.loaded = true
	a.mu.Unlock()
}

// Wakeup initializes the instance if needed, runs the focused hook and
// attaches the view to parent.
func (a *Instance) Wakeup(ctx context.Context, parent Surface) error {
	if err := a.Initialize(ctx); err != nil {
		return err
	}

	a.setState(types.StateFocused)
	if h := a.effectiveHooks().Focused; h != nil {
		_ = a.runHook(ctx, HookFocused, func(ctx context.Context) error { return h(ctx, a) })
	}

	a.mu.Lock()
	v := a.view
	if v != nil {
		v.parent = parent
	}
	a.mu.Unlock()

	if v != nil && parent != nil {
		if err := parent.Attach(a.id); err != nil {
			return fmt.Errorf("attach %s: %w", a.id, err)
		}
	}
	return nil
}

// Sleep detaches the view and runs the lost hook. With terminateOnLost set
// the instance is terminated afterwards.
func (a *Instance) Sleep(ctx context.Context) error {
	a.mu.Lock()
	if !a.initialized && a.initDone == nil {
		a.mu.Unlock()
		return nil
	}
	var parent Surface
	if a.view != nil {
		parent, a.view.parent = a.view.parent, nil
	}
	a.state = types.StateLost
	a.mu.Unlock()
	a.env.metrics.RecordAppTransition(a.id, string(types.StateLost))

	if parent != nil {
		if err := parent.Detach(a.id); err != nil {
			a.logger.Error("Failed to detach view", zap.Error(err))
		}
	}

	if h := a.effectiveHooks().Lost; h != nil {
		_ = a.runHook(ctx, HookLost, func(ctx context.Context) error { return h(ctx, a) })
	}

	if a.TerminateOnLost() {
		return a.Terminate(ctx)
	}
	return nil
}

// Terminate destroys the view and marks the instance uninitialized; the
// next Wakeup initializes it again and reloads its resources.
func (a *Instance) Terminate(ctx context.Context) error {
	a.mu.Lock()
	var parent Surface
	if a.view != nil {
		parent = a.view.parent
	}
	a.view = nil
	a.initialized = false
	a.loaded = false
	a.bound = Hooks{}
	a.scripts, a.styles, a.images = nil, nil, nil
	a.state = types.StateTerminated
	a.mu.Unlock()
	a.env.metrics.RecordAppTransition(a.id, string(types.StateTerminated))

	if parent != nil {
		if err := parent.Detach(a.id); err != nil {
			a.logger.Error("Failed to detach view", zap.Error(err))
		}
	}
	a.logger.Info("Application terminated")
	return nil
}

// HandleControllerEvent passes a controller event to the application. It
// reports whether a handler consumed it without failing.
func (a *Instance) HandleControllerEvent(ctx context.Context, event string) bool {
	a.logger.Info("Controller event", zap.String("event", event))

	h := a.effectiveHooks().ControllerEvent
	if h == nil {
		return false
	}
	return a.runHook(ctx, HookControllerEvent, func(ctx context.Context) error { return h(ctx, a, event) }) == nil
}

// Notify delivers a data update to the instance's subscriptions.
func (a *Instance) Notify(ctx context.Context, id string, ev types.Event) bool {
	return a.subs.Notify(ctx, id, ev)
}

// Subscribe registers cb for updates of the data id.
func (a *Instance) Subscribe(id string, cb dispatch.Callback, opts ...dispatch.Option) bool {
	return a.subs.Subscribe(id, cb, opts...)
}

// Unsubscribe removes the subscription for id.
func (a *Instance) Unsubscribe(id string) bool {
	return a.subs.Unsubscribe(id)
}

// Subscriptions lists the active subscriptions.
func (a *Instance) Subscriptions() []dispatch.Subscription {
	return a.subs.List()
}

func (a *Instance) regionChanged(ctx context.Context, v types.Value, _ types.Event) error {
	a.SetRegion(ctx, v.String())
	return nil
}

// SetRegion changes the region and runs the region hook. Unknown codes and
// unchanged regions are ignored.
func (a *Instance) SetRegion(ctx context.Context, code string) bool {
	r, ok := types.ParseRegion(code)
	if !ok {
		a.logger.Warn("Ignoring unknown region", zap.String("region", code))
		return false
	}

	a.mu.Lock()
	if a.region == r {
		a.mu.Unlock()
		return false
	}
	a.region = r
	a.mu.Unlock()

	if h := a.effectiveHooks().RegionChange; h != nil {
		_ = a.runHook(ctx, HookRegionChange, func(ctx context.Context) error { return h(ctx, a, r) })
	}
	return true
}

// runHook executes a developer callback, converting errors and panics into
// a logged ErrHookFailure.
func (a *Instance) runHook(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	a.logger.Info("Executing lifecycle", zap.String("hook", name))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", types.ErrHookFailure, name, r)
		}
		if err != nil {
			a.logger.Error("Lifecycle hook failed", zap.String("hook", name), zap.Error(err))
			a.env.metrics.RecordHookFailure(a.id, name)
		}
	}()

	if hookErr := fn(ctx); hookErr != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrHookFailure, name, hookErr)
	}
	return nil
}

func (a *Instance) effectiveHooks() Hooks {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.hooks.Or(a.bound)
}

func (a *Instance) setState(s types.State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
	a.env.metrics.RecordAppTransition(a.id, string(s))
}

// ID returns the application id.
func (a *Instance) ID() string { return a.id }

// Location returns the directory resources are resolved against.
func (a *Instance) Location() string { return a.location }

// Logger returns the instance's logger, named after its id.
func (a *Instance) Logger() *zap.Logger { return a.logger }

// State returns the lifecycle state.
func (a *Instance) State() types.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Region returns the current region.
func (a *Instance) Region() types.Region {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.region == "" {
		return types.DefaultRegion
	}
	return a.region
}

// Initialized reports whether initialization has completed.
func (a *Instance) Initialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

// Styles returns the loaded stylesheets.
func (a *Instance) Styles() []resource.Style {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]resource.Style(nil), a.styles...)
}

// Scripts returns the loaded scripts.
func (a *Instance) Scripts() []resource.Script {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]resource.Script(nil), a.scripts...)
}

// Images returns the loaded images by id, or by filename for list
// manifests.
func (a *Instance) Images() map[string]resource.Image {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]resource.Image, len(a.images))
	for k, v := range a.images {
		out[k] = v
	}
	return out
}

// GetSetting returns the setting name if it is truthy, else def if that
// is truthy, else false.
func (a *Instance) GetSetting(name string, def any) any {
	if v, ok := a.settings[name]; ok && truthy(v) {
		return v
	}
	if truthy(def) {
		return def
	}
	return false
}

// Settings returns a copy of the merged settings.
func (a *Instance) Settings() map[string]any {
	out := make(map[string]any, len(a.settings))
	for k, v := range a.settings {
		out[k] = v
	}
	return out
}

// Title returns the title setting, falling back to the id.
func (a *Instance) Title() string {
	if s, ok := a.GetSetting(types.SettingTitle, nil).(string); ok {
		return s
	}
	return a.id
}

// Statusbar reports whether the status bar is shown.
func (a *Instance) Statusbar() bool {
	return a.GetSetting(types.SettingStatusbar, nil) == true
}

// StatusbarTitle returns the status bar title, falling back to Title.
func (a *Instance) StatusbarTitle() string {
	if s, ok := a.GetSetting(types.SettingStatusbarTitle, nil).(string); ok {
		return s
	}
	return a.Title()
}

// StatusbarIcon returns the icon path. A statusbarIcon of true means the
// app.png in the application's location.
func (a *Instance) StatusbarIcon() string {
	switch v := a.GetSetting(types.SettingStatusbarIcon, nil).(type) {
	case bool:
		if v {
			return a.location + "app.png"
		}
	case string:
		return v
	}
	return ""
}

// StatusbarHomeButton reports whether the home button is shown.
func (a *Instance) StatusbarHomeButton() bool {
	return a.GetSetting(types.SettingStatusbarHideHomeButton, nil) != true
}

// LeftButton returns the leftButton setting, or false.
func (a *Instance) LeftButton() any {
	return a.GetSetting(types.SettingLeftButton, nil)
}

// TerminateOnLost reports whether losing focus terminates the instance.
func (a *Instance) TerminateOnLost() bool {
	return a.GetSetting(types.SettingTerminateOnLost, nil) == true
}

// Info returns a read-only view of the instance.
func (a *Instance) Info() types.AppInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return types.AppInfo{
		ID:          a.id,
		Title:       a.Title(),
		Location:    a.location,
		State:       a.state,
		Region:      a.region,
		Initialized: a.initialized,
	}
}

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}
