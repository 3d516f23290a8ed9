package app

import (
	"context"

	"github.com/GriffinCanCode/casdk/internal/shared/types"
)

// Lifecycle hook names, as reported in logs and metrics.
const (
	HookCreated         = "created"
	HookFocused         = "focused"
	HookLost            = "lost"
	HookRegionChange    = "onRegionChange"
	HookControllerEvent = "onControllerEvent"
)

// Hooks holds the optional lifecycle callbacks of an application.
// Any of them may be nil.
type Hooks struct {
	Created         func(ctx context.Context, a *Instance) error
	Focused         func(ctx context.Context, a *Instance) error
	Lost            func(ctx context.Context, a *Instance) error
	RegionChange    func(ctx context.Context, a *Instance, region types.Region) error
	ControllerEvent func(ctx context.Context, a *Instance, event string) error
}

// Optional interfaces a Definition's Hooks value may implement instead of
// being a Hooks struct.
type (
	Creator interface {
		Created(ctx context.Context, a *Instance) error
	}
	Focuser interface {
		Focused(ctx context.Context, a *Instance) error
	}
	Loser interface {
		Lost(ctx context.Context, a *Instance) error
	}
	RegionChangeHandler interface {
		OnRegionChange(ctx context.Context, a *Instance, region types.Region) error
	}
	ControllerEventHandler interface {
		OnControllerEvent(ctx context.Context, a *Instance, event string) error
	}
)

// HooksFrom resolves v into Hooks. v may be Hooks, *Hooks or any value
// implementing some of the optional interfaces.
func HooksFrom(v any) Hooks {
	switch h := v.(type) {
	case nil:
		return Hooks{}
	case Hooks:
		return h
	case *Hooks:
		if h == nil {
			return Hooks{}
		}
		return *h
	}

	var h Hooks
	if c, ok := v.(Creator); ok {
		h.Created = c.Created
	}
	if f, ok := v.(Focuser); ok {
		h.Focused = f.Focused
	}
	if l, ok := v.(Loser); ok {
		h.Lost = l.Lost
	}
	if r, ok := v.(RegionChangeHandler); ok {
		h.RegionChange = r.OnRegionChange
	}
	if c, ok := v.(ControllerEventHandler); ok {
		h.ControllerEvent = c.OnControllerEvent
	}
	return h
}

// Or fills the nil hooks of h from fallback.
func (h Hooks) Or(fallback Hooks) Hooks {
	if h.Created == nil {
		h.Created = fallback.Created
	}
	if h.Focused == nil {
		h.Focused = fallback.Focused
	}
	if h.Lost == nil {
		h.Lost = fallback.Lost
	}
	if h.RegionChange == nil {
		h.RegionChange = fallback.RegionChange
	}
	if h.ControllerEvent == nil {
		h.ControllerEvent = fallback.ControllerEvent
	}
	return h
}
