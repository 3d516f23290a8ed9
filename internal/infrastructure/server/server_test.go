package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/casdk/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	appsDir := filepath.Join(root, "apps")
	require.NoError(t, os.MkdirAll(filepath.Join(appsDir, "speedo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(appsDir, "speedo", "app.yaml"),
		[]byte("title: Speedometer\nsettings:\n  statusbar: true\n"), 0o644))

	dataDir := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "casdk-vdt"),
		[]byte("VehicleSpeed (int, 4): 6000\nGear (string, 1): D\n"), 0o644))

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Logging.Level = "error"
	cfg.RateLimit.Enabled = false
	cfg.Apps.Path = appsDir + "/"
	cfg.Telemetry.DataPath = filepath.Join(dataDir, "casdk-")
	cfg.Telemetry.PollInterval = time.Hour
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestNewServerInstallsApps(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, []string{"speedo"}, srv.Apps().IDs())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Speedometer")
}

func TestServerRunApp(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/apps/speedo/run", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "speedo", srv.Stage().Mounted())
	assert.True(t, srv.Apps().HasActive())

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/apps/missing/run", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerPollFeedsRegistry(t *testing.T) {
	srv := newTestServer(t)

	report := srv.Loop().Poll(context.Background())
	assert.Equal(t, report.ToLoad, report.Loaded)

	point, ok := srv.Registry().Get("vdtvehiclespeed")
	require.True(t, ok)
	// vdtvehiclespeed is scaled by its processor.
	assert.Equal(t, int64(60), point.Value.Int())

	region, ok := srv.Registry().Get("sysregion")
	require.True(t, ok)
	assert.Equal(t, "na", region.Value.String())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/data/VDTGear", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"D"`)
}

func TestServerHealth(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestServerRunStopsOnCancel(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, srv.Loop().Running, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewServerRejectsBadTables(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.TablesFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewServer(cfg)
	assert.Error(t, err)
}

func TestServerTracesRequests(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/apps", nil)
	req.Header.Set("X-Trace-ID", "trc_shell")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trc_shell", w.Header().Get("X-Trace-ID"))

	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/traces", nil))
		return strings.Contains(w.Body.String(), "trc_shell")
	}, time.Second, 10*time.Millisecond)
}
