// Package http provides the control API the head unit's host shell talks
// to, built on Gin.
//
// Endpoints:
//   - Health: / and /health
//   - Apps: /apps, /apps/current, /menu, /apps/:id/{run,sleep,terminate}
//   - Controller: /controller
//   - Data: /data, /data/:id, /data/{pause,unpause,refresh}
//   - Host console: /logs
//   - Metrics: /metrics (Prometheus) and /metrics/json
//
// Example Usage:
//
//	handlers := http.NewHandlers(manager, registry, loop, metrics, logger)
//	handlers.Register(router)
package http
