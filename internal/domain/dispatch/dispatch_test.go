package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/GriffinCanCode/casdk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(id string, value, previous types.Value) types.Event {
	return types.Event{
		ID:       id,
		Value:    value,
		Previous: previous,
		Changed:  !value.Equal(previous),
	}
}

func TestMatches(t *testing.T) {
	up := event("vdtspeed", types.IntValue(10), types.IntValue(5))
	down := event("vdtspeed", types.IntValue(5), types.IntValue(10))
	same := event("vdtspeed", types.IntValue(5), types.IntValue(5))
	first := event("vdtspeed", types.IntValue(5), types.Null())
	text := event("sysregion", types.StringValue("eu"), types.StringValue("na"))

	tests := []struct {
		trigger types.Trigger
		ev      types.Event
		want    bool
	}{
		{types.TriggerAny, same, true},
		{types.TriggerAny, up, true},
		{types.TriggerChanged, up, true},
		{types.TriggerChanged, same, false},
		{types.TriggerChanged, first, true},
		{types.TriggerGreater, up, true},
		{types.TriggerGreater, down, false},
		{types.TriggerGreater, same, false},
		{types.TriggerGreater, first, true},
		{types.TriggerLesser, down, true},
		{types.TriggerLesser, up, false},
		{types.TriggerEqual, same, true},
		{types.TriggerEqual, up, false},
		{types.TriggerEqual, first, false},
		{types.TriggerLesser, text, true},
		{types.Trigger(42), same, true},
	}

	for _, tt := range tests {
		t.Run(tt.trigger.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.trigger, tt.ev))
		})
	}
}

func TestSubscribeDefaultsToChanged(t *testing.T) {
	s := NewSet("speedo", nil, nil)
	calls := 0
	require.True(t, s.Subscribe("VDTSpeed", func(ctx context.Context, v types.Value, ev types.Event) error {
		calls++
		return nil
	}))

	assert.False(t, s.Notify(context.Background(), "vdtspeed", event("vdtspeed", types.IntValue(1), types.IntValue(1))))
	assert.True(t, s.Notify(context.Background(), "VDTSPEED", event("vdtspeed", types.IntValue(2), types.IntValue(1))))
	assert.Equal(t, 1, calls)

	subs := s.List()
	require.Len(t, subs, 1)
	assert.Equal(t, types.TriggerChanged, subs[0].Trigger)
}

func TestSubscribeRejectsInvalid(t *testing.T) {
	s := NewSet("speedo", nil, nil)
	assert.False(t, s.Subscribe("", func(context.Context, types.Value, types.Event) error { return nil }))
	assert.False(t, s.Subscribe("vdtspeed", nil))
}

func TestMergedEventCarriesSlotFields(t *testing.T) {
	s := NewSet("speedo", nil, nil)

	var got types.Event
	var gotValue types.Value
	s.Subscribe("vdtspeed", func(ctx context.Context, v types.Value, ev types.Event) error {
		gotValue, got = v, ev
		return nil
	}, WithTrigger(types.TriggerAny), WithMeta(map[string]any{"unit": "kmh", "gauge": "main"}))

	ev := event("vdtspeed", types.IntValue(88), types.IntValue(80))
	ev.Meta = map[string]any{"unit": "mph"}
	require.True(t, s.Notify(context.Background(), "vdtspeed", ev))

	assert.Equal(t, int64(88), gotValue.Int())
	assert.Equal(t, types.TriggerAny, got.Trigger)
	assert.Equal(t, "mph", got.Meta["unit"])
	assert.Equal(t, "main", got.Meta["gauge"])
	assert.True(t, got.Changed)
}

func TestUnsubscribeTombstones(t *testing.T) {
	s := NewSet("speedo", nil, nil)
	cb := func(context.Context, types.Value, types.Event) error { return nil }
	s.Subscribe("vdtspeed", cb, WithTrigger(types.TriggerAny))

	assert.True(t, s.Unsubscribe("VDTSpeed"))
	assert.False(t, s.Unsubscribe("vdtspeed"))
	assert.False(t, s.Unsubscribe("unknown"))
	assert.False(t, s.Subscribed("vdtspeed"))
	assert.False(t, s.Notify(context.Background(), "vdtspeed", event("vdtspeed", types.IntValue(1), types.Null())))

	subs := s.List()
	require.Len(t, subs, 1)
	assert.False(t, subs[0].Active)

	s.Subscribe("vdtspeed", cb)
	assert.True(t, s.Subscribed("vdtspeed"))

	s.Reset()
	assert.Empty(t, s.List())
}

func TestIDsNormalizedAlike(t *testing.T) {
	s := NewSet("speedo", nil, nil)
	cb := func(context.Context, types.Value, types.Event) error { return nil }
	require.True(t, s.Subscribe("  VDTSpeed ", cb, WithTrigger(types.TriggerAny)))

	assert.True(t, s.Subscribed(" vdtspeed"))
	assert.True(t, s.Unsubscribe(" vdtspeed  "))
	assert.False(t, s.Subscribed("vdtspeed"))
	assert.False(t, s.Notify(context.Background(), "vdtspeed", event("vdtspeed", types.IntValue(1), types.Null())))
}

func TestCallbackFailuresAreContained(t *testing.T) {
	metrics := monitoring.NewMetrics()
	s := NewSet("speedo", nil, metrics)

	s.Subscribe("a", func(context.Context, types.Value, types.Event) error { return errors.New("bad") }, WithTrigger(types.TriggerAny))
	s.Subscribe("b", func(context.Context, types.Value, types.Event) error { panic("worse") }, WithTrigger(types.TriggerAny))

	assert.NotPanics(t, func() {
		assert.True(t, s.Notify(context.Background(), "a", event("a", types.IntValue(1), types.Null())))
		assert.True(t, s.Notify(context.Background(), "b", event("b", types.IntValue(1), types.Null())))
	})
	assert.Equal(t, int64(2), metrics.GetSnapshot().HookFailures)
}

func TestCallbackMaySubscribe(t *testing.T) {
	s := NewSet("speedo", nil, nil)
	s.Subscribe("a", func(ctx context.Context, v types.Value, ev types.Event) error {
		s.Unsubscribe("a")
		s.Subscribe("b", func(context.Context, types.Value, types.Event) error { return nil })
		return nil
	}, WithTrigger(types.TriggerAny))

	s.Notify(context.Background(), "a", event("a", types.IntValue(1), types.Null()))
	assert.False(t, s.Subscribed("a"))
	assert.True(t, s.Subscribed("b"))
}
