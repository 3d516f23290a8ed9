package app

import (
	"context"
	"sort"
	"sync"

	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/GriffinCanCode/casdk/internal/shell"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Manager owns the installed applications and which one is active.
type Manager struct {
	env       *env
	logger    *zap.Logger
	sanitizer *bluemonday.Policy

	mu         sync.RWMutex
	apps       map[string]*Instance // Protected by mu
	order      []string             // Protected by mu, registration order
	active     string               // Protected by mu
	generation uint64               // Protected by mu, bumped by every Run
}

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	e := newEnv(opts)
	return &Manager{
		env:       e,
		logger:    e.logger.Named("ApplicationsHandler"),
		sanitizer: bluemonday.StrictPolicy(),
		apps:      make(map[string]*Instance),
	}
}

// Register installs an application under id and starts initializing it in
// the background. Registering an id again replaces the earlier instance.
func (m *Manager) Register(id string, def Definition) *Instance {
	id = normalizeID(id)
	inst := newInstance(id, m.env.appsPath+id+"/", def, m.env)

	m.mu.Lock()
	if _, exists := m.apps[id]; exists {
		m.logger.Warn("Replacing registered application", zap.String("app", id))
	} else {
		m.order = append(m.order, id)
	}
	m.apps[id] = inst
	count := len(m.apps)
	m.mu.Unlock()

	m.env.metrics.SetAppsRegistered(count)
	m.logger.Info("Registered application", zap.String("app", id), zap.String("location", inst.location))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.env.initTimeout)
		defer cancel()
		if err := inst.Initialize(ctx); err != nil {
			inst.logger.Error("Initialization failed", zap.Error(err))
		}
	}()
	return inst
}

// Run makes id the active application: the previous one is put to sleep,
// the host is switched to the application surface and the instance is
// woken onto it. It returns false for unknown ids.
func (m *Manager) Run(ctx context.Context, id string) bool {
	id = normalizeID(id)

	m.mu.Lock()
	inst, ok := m.apps[id]
	if !ok {
		m.mu.Unlock()
		m.logger.Error("Application was not registered", zap.String("app", id))
		return false
	}
	prevID := m.active
	prev := m.apps[prevID]
	m.active = id
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.logger.Info("Running application", zap.String("app", id))

	if prev != nil && prevID != id {
		if err := prev.Sleep(ctx); err != nil {
			prev.logger.Error("Sleep failed", zap.Error(err))
		}
	}

	var stack []string
	if fs, ok := m.env.router.(shell.FocusStacker); ok {
		stack = fs.FocusStack()
	}
	for _, msg := range shell.LaunchMessages(stack) {
		if err := m.env.router.Route(ctx, msg); err != nil {
			m.logger.Error("Failed to route framework message",
				zap.Any("msgType", msg["msgType"]), zap.Error(err))
			break
		}
	}

	// A later Run owns the surface now.
	if !m.isCurrent(id, gen) {
		return true
	}
	if err := inst.Wakeup(ctx, m.env.surface); err != nil {
		inst.logger.Error("Wakeup failed", zap.Error(err))
	}
	return true
}

func (m *Manager) isCurrent(id string, gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active == id && m.generation == gen
}

// Sleep puts id to sleep, clearing it as the active application if it was.
func (m *Manager) Sleep(ctx context.Context, id string) bool {
	inst, ok := m.release(normalizeID(id))
	if !ok {
		return false
	}
	if err := inst.Sleep(ctx); err != nil {
		inst.logger.Error("Sleep failed", zap.Error(err))
	}
	return true
}

// Terminate destroys the instance's view, clearing it as the active
// application if it was.
func (m *Manager) Terminate(ctx context.Context, id string) bool {
	inst, ok := m.release(normalizeID(id))
	if !ok {
		return false
	}
	if err := inst.Terminate(ctx); err != nil {
		inst.logger.Error("Terminate failed", zap.Error(err))
	}
	return true
}

func (m *Manager) release(id string) (*Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.apps[id]
	if !ok {
		return nil, false
	}
	if m.active == id {
		m.active = ""
		m.generation++
	}
	return inst, true
}

// Current returns the active instance.
func (m *Manager) Current() (*Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == "" {
		return nil, types.ErrNoActiveApp
	}
	inst, ok := m.apps[m.active]
	if !ok {
		return nil, types.ErrAppNotFound
	}
	return inst, nil
}

// ActiveID returns the active application id, or "".
func (m *Manager) ActiveID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// HasActive reports whether an application is active.
func (m *Manager) HasActive() bool {
	return m.ActiveID() != ""
}

// Get retrieves an instance by id.
func (m *Manager) Get(id string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.apps[normalizeID(id)]
	return inst, ok
}

// List returns every instance in registration order.
func (m *Manager) List() []types.AppInfo {
	m.mu.RLock()
	insts := m.instances()
	active := m.active
	m.mu.RUnlock()

	out := make([]types.AppInfo, 0, len(insts))
	for _, inst := range insts {
		info := inst.Info()
		info.Active = inst.id == active
		out = append(out, info)
	}
	return out
}

func (m *Manager) instances() []*Instance {
	out := make([]*Instance, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.apps[id])
	}
	return out
}

// OnValueChange forwards data updates to the active application.
func (m *Manager) OnValueChange(ctx context.Context, ev types.Event) {
	m.NotifyDataChange(ctx, ev.ID, ev)
}

// NotifyDataChange delivers an update to the active application only. It
// reports whether a callback fired.
func (m *Manager) NotifyDataChange(ctx context.Context, id string, ev types.Event) bool {
	inst, err := m.Current()
	if err != nil {
		return false
	}
	return inst.Notify(ctx, id, ev)
}

// HandleControllerEvent passes a controller event to the active
// application.
func (m *Manager) HandleControllerEvent(ctx context.Context, event string) bool {
	inst, err := m.Current()
	if err != nil {
		m.logger.Info("Controller event without active application", zap.String("event", event))
		return false
	}
	return inst.HandleControllerEvent(ctx, event)
}

// MenuItems returns one host menu entry per application, in registration
// order. Titles are stripped of markup.
func (m *Manager) MenuItems() []types.MenuItem {
	m.mu.RLock()
	insts := m.instances()
	m.mu.RUnlock()

	items := make([]types.MenuItem, 0, len(insts))
	for _, inst := range insts {
		title := m.sanitizer.Sanitize(inst.Title())
		items = append(items, types.MenuItem{
			AppData: types.MenuAppData{
				AppName:   "custom_" + inst.id,
				IsVisible: true,
				MmuiEvent: "ExecuteCustomApplication",
				AppID:     inst.id,
			},
			Title:     title,
			Text1ID:   title,
			Disabled:  false,
			ItemStyle: "style01",
			HasCaret:  false,
		})
	}
	return items
}

// Stats returns manager statistics.
func (m *Manager) Stats() types.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := types.Stats{TotalApps: len(m.apps)}
	for _, inst := range m.apps {
		if inst.Initialized() {
			stats.InitializedApps++
		}
	}
	if m.active != "" {
		active := m.active
		stats.ActiveAppID = &active
	}
	return stats
}

// IDs returns the registered ids sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.apps))
	for id := range m.apps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
