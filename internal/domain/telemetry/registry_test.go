package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []types.Event
}

func (r *recorder) OnValueChange(_ context.Context, ev types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestRegisterIsCaseInsensitiveAndIdempotent(t *testing.T) {
	r := NewRegistry()

	id := r.Register("VDT", "VehicleSpeed", "int")
	assert.Equal(t, "vdtvehiclespeed", id)

	again := r.Register("vdt", "VEHICLESPEED", "double")
	assert.Equal(t, id, again)

	p, ok := r.Get("VDTVehicleSpeed")
	require.True(t, ok)
	assert.Equal(t, "int", p.Type)
	assert.Equal(t, "VDT", p.Prefix)
	assert.True(t, p.Value.IsNull())
	assert.True(t, p.Previous.IsNull())
	assert.False(t, p.Changed)

	assert.Empty(t, r.Register("VDT", "", "int"))
	assert.Equal(t, 1, r.Len())
}

func TestSetTracksChanges(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRegistry(WithClock(func() time.Time { return now }))
	rec := &recorder{}
	r.AddListener(rec)
	ctx := context.Background()

	id := r.Register("SYS", "region", "string")

	ev, ok := r.Set(ctx, id, " na ")
	require.True(t, ok)
	assert.True(t, ev.Changed)
	assert.Equal(t, types.StringValue("na"), ev.Value)
	assert.True(t, ev.Previous.IsNull())
	assert.Equal(t, now, ev.UpdatedAt)

	ev, _ = r.Set(ctx, id, "na")
	assert.False(t, ev.Changed)
	assert.Equal(t, types.StringValue("na"), ev.Previous)

	ev, _ = r.Set(ctx, id, "eu")
	assert.True(t, ev.Changed)
	assert.Equal(t, "na", ev.Previous.String())
	assert.Equal(t, "eu", ev.Value.String())

	require.Len(t, rec.events, 3)
	assert.Equal(t, "sysregion", rec.events[2].ID)
}

func TestSetCoercesAndProcesses(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	tests := []struct {
		prefix, name, raw string
		want              types.Value
	}{
		{"VDT", "VehicleSpeed", "6000", types.IntValue(60)},
		{"VDT", "EngineSpeed", "1000", types.IntValue(2250)},
		{"VDT", "Odometer", "1234.5", types.FloatValue(1234.5)},
		{"VDT", "Gear", "3", types.IntValue(3)},
		{"VDT", "Status", "  OK ", types.StringValue("OK")},
		{"VDT", "VehicleSpeed", "fast", types.StringValue("fast")},
	}
	for _, tt := range tests {
		t.Run(tt.name+"="+tt.raw, func(t *testing.T) {
			ev, ok := r.Update(ctx, tt.prefix, tt.name, "int", tt.raw)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(ev.Value), "got %v", ev.Value)
		})
	}
}

func TestSetUnregisteredIsIgnored(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}
	r.AddListener(rec)

	_, ok := r.Set(context.Background(), "nothing", "1")
	assert.False(t, ok)
	assert.Empty(t, rec.events)
}

func TestCustomProcessors(t *testing.T) {
	r := NewRegistry(WithProcessors(map[string]Processor{
		"VDTVehicleSpeed": func(v types.Value) types.Value { return types.IntValue(mphInt(v)) },
	}))
	ctx := context.Background()

	ev, _ := r.Update(ctx, "VDT", "VehicleSpeed", "int", "100")
	assert.Equal(t, int64(62), ev.Value.Int())

	ev, _ = r.Update(ctx, "VDT", "EngineSpeed", "int", "1000")
	assert.Equal(t, int64(1000), ev.Value.Int(), "defaults are replaced")

	r.RegisterProcessor("vdtenginespeed", Scale(2))
	ev, _ = r.Set(ctx, "vdtenginespeed", "1000")
	assert.Equal(t, int64(2000), ev.Value.Int())
}

func mphInt(v types.Value) int64 {
	return int64(ToMPH(v.Float()))
}

func TestValueAndSnapshot(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	r.Update(ctx, "VDT", "Speed", "int", "10")
	r.Update(ctx, "GPS", "Latitude", "double", "37.5")
	r.Register("SYS", "Region", "string")

	assert.Equal(t, int64(10), r.Value("vdtspeed", types.Null()).Int())
	assert.Equal(t, "na", r.Value("sysregion", types.StringValue("na")).String())
	assert.Equal(t, "x", r.Value("missing", types.StringValue("x")).String())

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"gpslatitude", "sysregion", "vdtspeed"},
		[]string{snap[0].ID, snap[1].ID, snap[2].ID})
}

func TestListenerMayReadRegistry(t *testing.T) {
	r := NewRegistry()
	done := make(chan struct{})
	r.AddListener(ListenerFunc(func(ctx context.Context, ev types.Event) {
		p, ok := r.Get(ev.ID)
		assert.True(t, ok)
		assert.Equal(t, ev.Value, p.Value)
		close(done)
	}))

	r.Update(context.Background(), "VDT", "Speed", "int", "1")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener not called")
	}
}

func TestTransforms(t *testing.T) {
	assert.Equal(t, 62.0, ToMPH(100))
	assert.Equal(t, 0.0, ToMPH(0))
	assert.Equal(t, 50.0, ScaleValue(5, [2]float64{0, 10}, [2]float64{0, 100}))
	assert.Equal(t, 0.5, ScaleValue(120, [2]float64{0, 240}, [2]float64{0, 1}))

	assert.Equal(t, types.IntValue(3), Scale(0.01)(types.IntValue(250)))
	assert.Equal(t, types.StringValue("n/a"), Scale(0.01)(types.StringValue("n/a")))
}

func TestCatalogue(t *testing.T) {
	d, ok := Describe("vdtvehiclespeed")
	require.True(t, ok)
	assert.Equal(t, 0.01, d.Factor)
	assert.Equal(t, 240.0, d.Max)

	brand, ok := Describe("VDTSBrand")
	require.True(t, ok)
	assert.Equal(t, "Mazda", brand.Label(types.IntValue(7)))
	assert.Equal(t, "8", brand.Label(types.IntValue(8)))

	region, _ := Describe("sysregion")
	assert.Equal(t, "Europe", region.Label(types.StringValue("eu")))

	all := Catalogue()
	assert.Len(t, all, 11)
	assert.Equal(t, "general", all[0].Group)
}
