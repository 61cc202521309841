// Package main is the entry point for the defcomm browser bridge backend.
//
// The backend sits between the browser shell and its browsing surfaces:
//
//	Shell (HTTP /invoke, /events) → Backend → Content webviews (/bridge)
//	                                       → Headless windows (goja)
//	                                       → Chrome pages (DevTools)
//
// The server provides:
//   - Correlated script evaluation with timeouts
//   - Page metadata from the live page or an HTTP fallback
//   - Tab event forwarding to shell listeners
//   - Prometheus metrics and rate limiting
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional YAML or TOML file (-config), below the environment
//   - CLI flags (override everything)
//
// Usage:
//
//	./server -port 8000 -log-level debug
//	./server -config defcomm.yaml -cdp ws://127.0.0.1:9222/devtools/browser/<id>
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
