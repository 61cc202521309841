// Package config provides 12-factor configuration management for the
// browser backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional flat YAML or TOML file (LoadFile) fills in anything the
// environment leaves unset, and CLI flags in cmd/server override both.
//
// Configuration Sections:
//   - Server: HTTP listener (port, host)
//   - Bridge: evaluation timeout and event queue depth
//   - Fetch: metadata fallback client (user agent, redirects, timeout, rate)
//   - Headless: embedded JavaScript surface script timeout
//   - CDP: DevTools protocol surface endpoint
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Bridge timeout %s\n", cfg.Bridge.EvalTimeout)
//
// Environment Variables:
//   - PORT, HOST
//   - BRIDGE_EVAL_TIMEOUT, BRIDGE_EVENT_BUFFER
//   - FETCH_USER_AGENT, FETCH_MAX_REDIRECTS, FETCH_TIMEOUT, FETCH_RATE_LIMIT, FETCH_RETRIES
//   - HEADLESS_SCRIPT_TIMEOUT
//   - CDP_URL, CDP_ENABLED
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
