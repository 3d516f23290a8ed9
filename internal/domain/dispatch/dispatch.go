// Package dispatch holds an application's data subscriptions and decides,
// per update, which callbacks fire.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/casdk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"go.uber.org/zap"
)

// Callback receives the new value and the merged event.
type Callback func(ctx context.Context, value types.Value, ev types.Event) error

// Subscription is one slot in a Set, keyed by canonical data id.
type Subscription struct {
	ID      string         `json:"id"`
	Trigger types.Trigger  `json:"trigger"`
	Meta    map[string]any `json:"meta,omitempty"`
	Active  bool           `json:"active"`

	callback Callback
}

// Option customises a subscription.
type Option func(*Subscription)

// WithTrigger sets the firing condition.
func WithTrigger(t types.Trigger) Option {
	return func(s *Subscription) { s.Trigger = t }
}

// WithMeta attaches data handed back on every delivery.
func WithMeta(meta map[string]any) Option {
	return func(s *Subscription) { s.Meta = meta }
}

// Set is the subscription table of one application.
type Set struct {
	owner   string
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewSet creates an empty set owned by the application owner.
func NewSet(owner string, logger *zap.Logger, metrics *monitoring.Metrics) *Set {
	return &Set{
		owner:   owner,
		logger:  logging.OrNop(logger),
		metrics: metrics,
		subs:    make(map[string]*Subscription),
	}
}

// normalize folds an id to its slot key.
func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Subscribe stores a subscription for id, replacing any earlier one.
// The trigger defaults to CHANGED.
func (s *Set) Subscribe(id string, cb Callback, opts ...Option) bool {
	id = normalize(id)
	if id == "" || cb == nil {
		return false
	}

	sub := &Subscription{
		ID:       id,
		Trigger:  types.DefaultTrigger,
		Active:   true,
		callback: cb,
	}
	for _, opt := range opts {
		opt(sub)
	}

	s.mu.Lock()
	s.subs[id] = sub
	s.mu.Unlock()
	return true
}

// Unsubscribe deactivates the slot for id. The slot stays in place so a
// later Subscribe reuses it.
func (s *Set) Unsubscribe(id string) bool {
	id = normalize(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok || !sub.Active {
		return false
	}
	sub.Active = false
	return true
}

// Reset drops every slot.
func (s *Set) Reset() {
	s.mu.Lock()
	s.subs = make(map[string]*Subscription)
	s.mu.Unlock()
}

// Subscribed reports whether id has an active slot.
func (s *Set) Subscribed(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[normalize(id)]
	return ok && sub.Active
}

// List returns copies of all slots, tombstoned ones included, sorted by id.
func (s *Set) List() []Subscription {
	s.mu.RLock()
	out := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		cp := *sub
		cp.callback = nil
		out = append(out, cp)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Notify delivers ev to the slot for id when its trigger matches and
// reports whether a callback ran. The callback is called without any lock
// held, so it may subscribe or unsubscribe.
func (s *Set) Notify(ctx context.Context, id string, ev types.Event) bool {
	id = normalize(id)

	s.mu.RLock()
	sub, ok := s.subs[id]
	if !ok || !sub.Active || !Matches(sub.Trigger, ev) {
		s.mu.RUnlock()
		return false
	}
	cb := sub.callback
	merged := merge(*sub, ev)
	s.mu.RUnlock()

	s.metrics.RecordNotification(s.owner, merged.Trigger.String())
	if err := s.invoke(ctx, cb, merged); err != nil {
		s.metrics.RecordHookFailure(s.owner, "subscription")
		s.logger.Error("Subscription callback failed",
			zap.String("app", s.owner),
			zap.String("id", id),
			zap.Error(err))
	}
	return true
}

func (s *Set) invoke(ctx context.Context, cb Callback, ev types.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", types.ErrHookFailure, r)
		}
	}()
	return cb(ctx, ev.Value, ev)
}

// Matches evaluates a trigger against an update. Triggers outside the
// known set always fire.
func Matches(t types.Trigger, ev types.Event) bool {
	switch t {
	case types.TriggerAny:
		return true
	case types.TriggerChanged:
		return ev.Changed
	case types.TriggerGreater:
		cmp, ok := ev.Value.Compare(ev.Previous)
		return ok && cmp > 0
	case types.TriggerLesser:
		cmp, ok := ev.Value.Compare(ev.Previous)
		return ok && cmp < 0
	case types.TriggerEqual:
		return ev.Value.Equal(ev.Previous)
	default:
		return true
	}
}

// merge overlays the event on the slot: the slot contributes its trigger
// and metadata, the event wins wherever both carry a field.
func merge(sub Subscription, ev types.Event) types.Event {
	out := ev
	out.Trigger = sub.Trigger
	if len(sub.Meta) == 0 {
		return out
	}

	meta := make(map[string]any, len(sub.Meta)+len(ev.Meta))
	for k, v := range sub.Meta {
		meta[k] = v
	}
	for k, v := range ev.Meta {
		meta[k] = v
	}
	out.Meta = meta
	return out
}
