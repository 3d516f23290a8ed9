package shell

import "context"

// Message is one host framework message, sent as a JSON object.
type Message map[string]any

// SurfaceContext is the host context that displays application views.
const SurfaceContext = "CustomApplicationSurface"

// SystemApp is always at the bottom of the focus stack.
const SystemApp = "system"

// Router delivers messages to the host framework.
type Router interface {
	Route(ctx context.Context, msg Message) error
}

// RouterFunc adapts a function to the Router interface.
type RouterFunc func(ctx context.Context, msg Message) error

// Route implements Router.
func (f RouterFunc) Route(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// FocusStacker is implemented by routers that know the host's current
// focus stack.
type FocusStacker interface {
	FocusStack() []string
}

// NopRouter drops every message.
type NopRouter struct{}

// Route implements Router.
func (NopRouter) Route(context.Context, Message) error { return nil }

// LaunchMessages returns the sequence that brings the application surface
// to the front: transition on, context change, focus stack with the
// system app prepended, transition off.
func LaunchMessages(stack []string) []Message {
	apps := make([]map[string]any, 0, len(stack)+1)
	apps = append(apps, map[string]any{"id": SystemApp})
	for _, id := range stack {
		apps = append(apps, map[string]any{"id": id})
	}

	return []Message{
		{"msgType": "transition", "enabled": true},
		{"msgType": "ctxtChg", "ctxtId": SurfaceContext, "uiaId": SystemApp, "contextSeq": 2},
		{"msgType": "focusStack", "appIdList": apps},
		{"msgType": "transition", "enabled": false},
	}
}
