package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/GriffinCanCode/casdk/internal/shared/types"
	"github.com/GriffinCanCode/casdk/internal/shared/utils"
	"github.com/gin-gonic/gin"
)

// ControllerRequest carries one controller event
type ControllerRequest struct {
	Event string `json:"event" binding:"required"`
}

// ListApps lists every registered application
func (h *Handlers) ListApps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"apps":  h.apps.List(),
		"stats": h.apps.Stats(),
	})
}

// CurrentApp describes the active application
func (h *Handlers) CurrentApp(c *gin.Context) {
	inst, err := h.apps.Current()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, types.ErrNoActiveApp) || errors.Is(err, types.ErrAppNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	info := inst.Info()
	info.Active = true
	c.JSON(http.StatusOK, gin.H{
		"app": info,
		"statusbar": gin.H{
			"visible":     inst.Statusbar(),
			"title":       inst.StatusbarTitle(),
			"icon":        inst.StatusbarIcon(),
			"home_button": inst.StatusbarHomeButton(),
		},
		"left_button":   inst.LeftButton(),
		"subscriptions": inst.Subscriptions(),
	})
}

// Menu returns the host menu entries
func (h *Handlers) Menu(c *gin.Context) {
	items := h.apps.MenuItems()
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// RunApp makes an application active
func (h *Handlers) RunApp(c *gin.Context) {
	h.appAction(c, "run", h.apps.Run)
}

// SleepApp puts an application to sleep
func (h *Handlers) SleepApp(c *gin.Context) {
	h.appAction(c, "sleep", h.apps.Sleep)
}

// TerminateApp terminates an application
func (h *Handlers) TerminateApp(c *gin.Context) {
	h.appAction(c, "terminate", h.apps.Terminate)
}

func (h *Handlers) appAction(c *gin.Context, action string, fn func(context.Context, string) bool) {
	appID := c.Param("id")
	if err := utils.ValidateID(appID, "app_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !fn(c.Request.Context(), appID) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"app_id":  appID,
			"error":   types.ErrAppNotFound.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"action":  action,
		"app_id":  appID,
	})
}

// ControllerEvent forwards a controller event to the active application
func (h *Handlers) ControllerEvent(c *gin.Context) {
	var req ControllerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := utils.ValidateEvent(req.Event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event":   req.Event,
		"handled": h.apps.HandleControllerEvent(c.Request.Context(), req.Event),
	})
}
