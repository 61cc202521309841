// Package server wires the bridge backend together and serves it.
//
// Server Lifecycle:
//  1. Load configuration from environment, file and flags
//  2. Initialize logger, metrics and tracing
//  3. Build the event bus, pending table and surface registry
//  4. Start the response relay and the tab event forwarder
//  5. Create the fallback fetch client and the headless host
//  6. Optionally attach to Chrome over the DevTools protocol
//  7. Register the bridge commands and mount routes and middleware
//  8. Serve until shutdown, then drain connections and close surfaces
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go srv.Run()
//	defer srv.Close()
package server
