// Package ws streams data updates to WebSocket clients.
//
// Message Types (Client → Server):
//   - subscribe: restrict the stream to ids; "all" also sends unchanged writes
//   - unsubscribe: drop ids from the filter
//   - controller: forward a controller event to the active application
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - system: welcome with the client id
//   - data: one data update
//   - subscribed: the current filter
//   - controller: whether the event was handled
//   - pong, error
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, metrics, logger)
//	registry.AddListener(handler)
//	router.GET("/stream", handler.HandleConnection)
package ws
