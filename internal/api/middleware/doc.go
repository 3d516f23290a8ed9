// Package middleware provides the Gin middleware of the control API:
// CORS for the host shell and per-client rate limiting.
package middleware
