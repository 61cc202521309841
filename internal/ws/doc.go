// Package ws carries browsing surfaces and shell listeners over WebSocket.
//
// Two endpoints share one Handler:
//
//	/bridge?label=<label>   a live webview attaches as a content surface
//	/events                 a shell window listens for forwarded tab events
//
// Message Types (Server → bridge client):
//   - system: attached acknowledgement carrying the label
//   - eval: script to run in the page, fire and forget
//   - pong: reply to ping
//   - error: the last frame was not understood
//
// Message Types (bridge client → Server):
//   - event: page event {event, payload} published on the bus with the
//     connection's label as source
//   - ping: keep-alive
//
// Listeners on /events receive {type: "event", event, payload, label} for
// every broadcast. A newer /bridge connection with the same label replaces
// the older one.
//
// Example Usage:
//
//	handler := ws.NewHandler(registry, bus, metrics, logger)
//	router.GET("/bridge", handler.HandleBridge)
//	router.GET("/events", handler.HandleEvents)
package ws
