package http

import (
	"net/http"
	"strings"

	"github.com/GriffinCanCode/casdk/internal/domain/telemetry"
	"github.com/GriffinCanCode/casdk/internal/shared/utils"
	"github.com/gin-gonic/gin"
)

// ListData returns the registry snapshot, optionally filtered by prefix
func (h *Handlers) ListData(c *gin.Context) {
	prefix := c.Query("prefix")
	changedOnly := c.Query("changed") == "true"

	points := h.registry.Snapshot()
	out := make([]telemetry.DataPoint, 0, len(points))
	for _, p := range points {
		if prefix != "" && !strings.EqualFold(p.Prefix, prefix) {
			continue
		}
		if changedOnly && !p.Changed {
			continue
		}
		out = append(out, p)
	}

	c.JSON(http.StatusOK, gin.H{
		"points": out,
		"count":  len(out),
	})
}

// GetData returns one data point
func (h *Handlers) GetData(c *gin.Context) {
	id := strings.ToLower(c.Param("id"))
	if err := utils.ValidateDataID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, ok := h.registry.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "data id not registered", "id": id})
		return
	}
	c.JSON(http.StatusOK, p)
}

// PauseData suspends polling
func (h *Handlers) PauseData(c *gin.Context) {
	if !h.requireLoop(c) {
		return
	}
	h.loop.Pause()
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

// UnpauseData resumes polling
func (h *Handlers) UnpauseData(c *gin.Context) {
	if !h.requireLoop(c) {
		return
	}
	h.loop.Unpause()
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

// RefreshData runs one poll cycle immediately and returns its report
func (h *Handlers) RefreshData(c *gin.Context) {
	if !h.requireLoop(c) {
		return
	}
	c.JSON(http.StatusOK, h.loop.Poll(c.Request.Context()))
}

func (h *Handlers) requireLoop(c *gin.Context) bool {
	if h.loop == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "data acquisition is disabled"})
		return false
	}
	return true
}
