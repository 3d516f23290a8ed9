package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxLogEntries bounds one log batch
const MaxLogEntries = 200

// HostLogEntry is one log line written by host-side code
type HostLogEntry struct {
	Level   string         `json:"level"`
	Subject string         `json:"subject"`
	Message string         `json:"message"`
	Context map[string]any `json:"context"`
}

// HostLogRequest is a batch of host log lines
type HostLogRequest struct {
	Entries []HostLogEntry `json:"entries"`
}

// StreamLogs writes host log lines into the runtime log
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req HostLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log request format"})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No log entries provided"})
		return
	}
	if len(req.Entries) > MaxLogEntries {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Too many log entries"})
		return
	}

	for _, entry := range req.Entries {
		h.writeHostLog(entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"entries_processed": len(req.Entries),
		"timestamp":         time.Now().Unix(),
	})
}

func (h *Handlers) writeHostLog(entry HostLogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+1)
	fields = append(fields, zap.String("source", "host"))
	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	logger := h.logger
	if entry.Subject != "" {
		logger = logger.Named(entry.Subject)
	}

	switch strings.ToLower(entry.Level) {
	case "error":
		logger.Error(entry.Message, fields...)
	case "warn":
		logger.Warn(entry.Message, fields...)
	case "debug":
		logger.Debug(entry.Message, fields...)
	default:
		logger.Info(entry.Message, fields...)
	}
}
