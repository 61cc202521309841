// Package http provides the HTTP surface of the bridge backend.
//
// Routes:
//
//	GET    /                          service banner
//	GET    /health                    liveness with surface and metric summaries
//	GET    /commands                  command catalog
//	POST   /invoke/:command           run a command, JSON object body as arguments
//	GET    /surfaces                  attached surfaces
//	POST   /surfaces/headless         open a headless window
//	DELETE /surfaces/headless/:label  close a headless window
//	GET    /surfaces/headless/:label/console
//	POST   /surfaces/cdp              open a DevTools page (when configured)
//	DELETE /surfaces/cdp/:label
//	POST   /events/:topic             publish an event on the bus
//	POST   /logs                      page console batches from the shell
//	GET    /metrics/json              metric snapshot and breaker states
//
// Invocation replies are {"ok": true, "value": "..."} or
// {"ok": false, "error": "..."}.
package http
