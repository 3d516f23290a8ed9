package http

import (
	"net/http"
	"time"

	"github.com/GriffinCanCode/casdk/internal/domain/acquisition"
	"github.com/GriffinCanCode/casdk/internal/domain/app"
	"github.com/GriffinCanCode/casdk/internal/domain/telemetry"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/casdk/internal/infrastructure/monitoring"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint.
const Version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	apps     *app.Manager
	registry *telemetry.Registry
	loop     *acquisition.Loop
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	started  time.Time
}

// NewHandlers creates a new handler set. loop and metrics may be nil.
func NewHandlers(
	apps *app.Manager,
	registry *telemetry.Registry,
	loop *acquisition.Loop,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		apps:     apps,
		registry: registry,
		loop:     loop,
		metrics:  metrics,
		logger:   logging.OrNop(logger),
		started:  time.Now(),
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	// Applications
	r.GET("/apps", h.ListApps)
	r.GET("/apps/current", h.CurrentApp)
	r.GET("/menu", h.Menu)
	r.POST("/apps/:id/run", h.RunApp)
	r.POST("/apps/:id/sleep", h.SleepApp)
	r.POST("/apps/:id/terminate", h.TerminateApp)
	r.POST("/controller", h.ControllerEvent)

	// Data
	r.GET("/data", h.ListData)
	r.GET("/data/:id", h.GetData)
	r.POST("/data/pause", h.PauseData)
	r.POST("/data/unpause", h.UnpauseData)
	r.POST("/data/refresh", h.RefreshData)

	// Host console
	r.POST("/logs", h.StreamLogs)

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
		r.GET("/metrics/json", h.MetricsSnapshot)
	}
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "casdk",
		"version": Version,
	})
}

// Health reports the state of every component
func (h *Handlers) Health(c *gin.Context) {
	data := gin.H{"points": h.registry.Len()}
	if h.loop != nil {
		data["running"] = h.loop.Running()
		data["paused"] = h.loop.Paused()
		data["interval"] = h.loop.Interval().String()
		data["breakers"] = h.loop.BreakerStates()
		if report, ok := h.loop.LastReport(); ok {
			data["last_cycle"] = gin.H{
				"id":         report.ID,
				"started_at": report.StartedAt,
				"loaded":     report.Loaded,
				"failed":     report.Failed,
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"uptime": time.Since(h.started).Round(time.Second).String(),
		"apps":   h.apps.Stats(),
		"data":   data,
	})
}

// MetricsSnapshot returns the metrics as JSON
func (h *Handlers) MetricsSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}
