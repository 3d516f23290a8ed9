/*
Package monitoring provides metrics collection for the runtime.

# Overview

Metrics are Prometheus collectors registered on a per-instance registry.
They cover the HTTP surface, the acquisition loop (cycles, per-table
fetches, registry writes), subscription dispatch, resource loading and
application lifecycle transitions.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.RequestID(), monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

A nil *Metrics is valid and records nothing, so domain packages take it as
an optional dependency.
*/
package monitoring
