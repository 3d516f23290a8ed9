// Package server wires the runtime together: data registry, acquisition
// loop, application manager, shell router and the HTTP/WebSocket API.
package server
