// Package acquisition runs the telemetry polling loop.
//
// Every interval the loop checks whether an application is in the
// foreground. If so it acquires every enabled table at once: inline tables
// yield their declared values, external tables are fetched and parsed.
// Each table has its own deadline and circuit breaker; a table that fails
// or times out still counts as loaded so the cycle always completes. Only
// after all tables have finished are the values written to the registry,
// in table order, from the loop goroutine.
package acquisition
