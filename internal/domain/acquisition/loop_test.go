package acquisition

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/casdk/internal/domain/telemetry"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gpsDump = "GPS\nheader\nint 1467312345\ndouble 37.774929\ndouble -122.419418\nint 16\ndouble 45.5\nint 0\n"

type fakeSource struct {
	mu     sync.Mutex
	tables map[string]string
	errs   map[string]error
	delay  map[string]time.Duration
	calls  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		tables: map[string]string{
			"vdt": "VehicleSpeed (int, 4): 6000\nEngineSpeed (int, 4): 1000\nBlob (binary, 4): 00\n",
			"gps": gpsDump,
		},
		errs:  map[string]error{},
		delay: map[string]time.Duration{},
		calls: map[string]int{},
	}
}

func (s *fakeSource) Snapshot(ctx context.Context, t TableDescriptor) (string, error) {
	s.mu.Lock()
	s.calls[t.Name]++
	delay := s.delay[t.Name]
	err := s.errs[t.Name]
	text := s.tables[t.Name]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, err
}

func (s *fakeSource) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func TestPollAppliesAllEnabledTables(t *testing.T) {
	reg := telemetry.NewRegistry()
	src := newFakeSource()

	var cycles []Report
	loop := New(reg, src, nil, OnCycle(func(r Report) { cycles = append(cycles, r) }))

	report := loop.Poll(context.Background())

	assert.Equal(t, 3, report.ToLoad)
	assert.Equal(t, 3, report.Loaded)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Tables, 3)
	assert.Equal(t, []string{"sys", "gps", "vdt"},
		[]string{report.Tables[0].Name, report.Tables[1].Name, report.Tables[2].Name})
	assert.Equal(t, 1, report.Tables[2].Skipped)
	require.Len(t, cycles, 1)
	assert.Equal(t, report.ID, cycles[0].ID)

	assert.Equal(t, "na", reg.Value("sysregion", types.Null()).String())
	assert.Equal(t, int64(60), reg.Value("vdtvehiclespeed", types.Null()).Int())
	assert.Equal(t, int64(2250), reg.Value("VDTEngineSpeed", types.Null()).Int())
	assert.Equal(t, 37.774929, reg.Value("gpslatitude", types.Null()).Float())
	assert.Equal(t, int64(1467312345), reg.Value("gpstimestamp", types.Null()).Int())

	_, ok := reg.Get("vdtblob")
	assert.False(t, ok, "binary entries are dropped")
	assert.Zero(t, src.count("idm"), "disabled tables are not fetched")

	last, ok := loop.LastReport()
	require.True(t, ok)
	assert.Equal(t, report.ID, last.ID)
}

func TestPollAppliesInTableOrderAfterBarrier(t *testing.T) {
	reg := telemetry.NewRegistry()
	src := newFakeSource()
	src.tables["a"] = "Speed (int, 4): 1"
	src.tables["b"] = "Speed (int, 4): 2"
	src.delay["a"] = 30 * time.Millisecond

	var order []string
	reg.AddListener(telemetry.ListenerFunc(func(_ context.Context, ev types.Event) {
		order = append(order, ev.ID+"="+ev.Value.String())
	}))

	loop := New(reg, src, nil, WithTables([]TableDescriptor{
		{Name: "a", Prefix: "X", Enabled: true, Source: SourceExternal},
		{Name: "b", Prefix: "X", Enabled: true, Source: SourceExternal},
	}))
	loop.Poll(context.Background())

	assert.Equal(t, []string{"xspeed=1", "xspeed=2"}, order)
	p, _ := reg.Get("xspeed")
	assert.Equal(t, int64(1), p.Previous.Int())
	assert.True(t, p.Changed)
}

func TestPollFailuresCountAsLoaded(t *testing.T) {
	reg := telemetry.NewRegistry()
	src := newFakeSource()
	src.errs["vdt"] = errors.New("disk gone")
	src.delay["slow"] = time.Second

	loop := New(reg, src, nil,
		WithTableTimeout(20*time.Millisecond),
		WithTables([]TableDescriptor{
			{Name: "vdt", Prefix: "VDT", Enabled: true, Source: SourceExternal},
			{Name: "slow", Prefix: "S", Enabled: true, Source: SourceExternal},
			{Name: "can", Prefix: "C", Enabled: true, Source: SourceExternal, Filter: "canbus"},
			{Name: "odd", Prefix: "O", Enabled: true, Source: Source("socket")},
		}))

	report := loop.Poll(context.Background())
	assert.Equal(t, 4, report.Loaded)
	assert.Equal(t, 4, report.ToLoad)
	assert.Equal(t, 4, report.Failed)

	assert.Equal(t, TableFailed, report.Tables[0].Status)
	assert.Contains(t, report.Tables[0].Error, "disk gone")
	assert.Equal(t, TableFailed, report.Tables[1].Status)
	assert.Equal(t, TableFailed, report.Tables[2].Status)
	assert.Contains(t, report.Tables[2].Error, types.ErrUnknownFilter.Error())
	assert.Equal(t, TableUnsupported, report.Tables[3].Status)
	assert.Zero(t, src.count("can"), "unknown filter fails before fetching")
}

func TestInlineFalsyValuesOnlyRegister(t *testing.T) {
	reg := telemetry.NewRegistry()
	loop := New(reg, newFakeSource(), nil, WithTables([]TableDescriptor{
		{Name: "sys", Prefix: "SYS", Enabled: true, Source: SourceInline, Data: map[string]InlineValue{
			"region": {Type: "string", Value: "eu"},
			"unit":   {Type: "string", Value: ""},
			"gear":   {Type: "int", Value: 0},
		}},
	}))

	report := loop.Poll(context.Background())
	assert.Equal(t, 1, report.Tables[0].Values)

	gear, ok := reg.Get("sysgear")
	require.True(t, ok)
	assert.True(t, gear.Value.IsNull())
	assert.Equal(t, "eu", reg.Value("sysregion", types.Null()).String())
}

func TestBreakerOpensForFailingTable(t *testing.T) {
	src := newFakeSource()
	src.errs["vdt"] = errors.New("unreachable")

	loop := New(telemetry.NewRegistry(), src, nil,
		WithTables([]TableDescriptor{{Name: "vdt", Prefix: "VDT", Enabled: true, Source: SourceExternal}}),
		WithBreaker(resilience.Settings{
			Timeout:     time.Minute,
			ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 2 },
		}))

	for i := 0; i < 3; i++ {
		loop.Poll(context.Background())
	}

	assert.Equal(t, 2, src.count("vdt"))
	assert.Equal(t, "open", loop.BreakerStates()["vdt"])

	report, _ := loop.LastReport()
	assert.Contains(t, report.Tables[0].Error, resilience.ErrCircuitOpen.Error())
}

func TestRunSkipsFetchWithoutActiveApp(t *testing.T) {
	src := newFakeSource()
	var active atomic.Bool

	loop := New(telemetry.NewRegistry(), src, ActiveFunc(active.Load), WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, src.count("vdt"))

	active.Store(true)
	assert.Eventually(t, func() bool { return src.count("vdt") >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPauseAndUnpause(t *testing.T) {
	src := newFakeSource()
	loop := New(telemetry.NewRegistry(), src, ActiveFunc(func() bool { return true }), WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	assert.Eventually(t, func() bool { return src.count("vdt") >= 1 }, time.Second, time.Millisecond)

	loop.Pause()
	assert.True(t, loop.Paused())
	time.Sleep(20 * time.Millisecond)
	frozen := src.count("vdt")
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, frozen, src.count("vdt"))

	loop.Unpause()
	assert.False(t, loop.Paused())
	assert.Eventually(t, func() bool { return src.count("vdt") > frozen }, time.Second, time.Millisecond)
}

func TestRunRejectsSecondRunner(t *testing.T) {
	loop := New(telemetry.NewRegistry(), newFakeSource(), nil, WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	require.Eventually(t, loop.Running, time.Second, time.Millisecond)
	assert.Error(t, loop.Run(ctx))
}

func TestParseTables(t *testing.T) {
	tables, err := ParseTables([]byte(`
tables:
  - table: sys
    prefix: SYS
    enabled: true
    data:
      region:
        type: string
        value: jp
  - table: vdt
    prefix: VDT
    enabled: true
  - table: gps
    prefix: GPS
    enabled: false
    filter: gps
`))
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.Equal(t, SourceInline, tables[0].Source)
	assert.Equal(t, "jp", tables[0].Data["region"].Value)
	assert.Equal(t, SourceExternal, tables[1].Source)
	assert.False(t, tables[2].Enabled)
	assert.Equal(t, "gps", tables[2].Filter)

	_, err = ParseTables([]byte("tables:\n  - prefix: X\n"))
	assert.Error(t, err)

	_, err = ParseTables([]byte("tables:\n  - table: a\n  - table: a\n"))
	assert.Error(t, err)
}

func TestDefaultTables(t *testing.T) {
	var enabled []string
	for _, tb := range DefaultTables() {
		if tb.Enabled {
			enabled = append(enabled, tb.Name)
		}
	}
	assert.Equal(t, []string{"sys", "gps", "vdt"}, enabled)
	assert.Len(t, DefaultTables(), 11)
}

func TestPollTimeoutReleasesBarrierWhenSourceIgnoresContext(t *testing.T) {
	reg := telemetry.NewRegistry()

	stuck := make(chan struct{})
	defer close(stuck)
	src := SnapshotFunc(func(_ context.Context, table TableDescriptor) (string, error) {
		if table.Name == "hung" {
			<-stuck
		}
		return "Speed (int, 4): 5\n", nil
	})

	loop := New(reg, src, nil,
		WithTableTimeout(50*time.Millisecond),
		WithTables([]TableDescriptor{
			{Name: "hung", Prefix: "H", Enabled: true, Source: SourceExternal},
			{Name: "live", Prefix: "L", Enabled: true, Source: SourceExternal},
		}))

	done := make(chan Report, 1)
	go func() { done <- loop.Poll(context.Background()) }()

	select {
	case report := <-done:
		assert.Equal(t, 2, report.Loaded)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, TableFailed, report.Tables[0].Status)
		assert.Contains(t, report.Tables[0].Error, "deadline")
		assert.Equal(t, TableOK, report.Tables[1].Status)
		assert.Equal(t, int64(5), reg.Value("lspeed", types.Null()).Int())
	case <-time.After(2 * time.Second):
		t.Fatal("Poll blocked past the table timeout")
	}
}
