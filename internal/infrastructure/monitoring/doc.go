/*
Package monitoring provides Prometheus metrics for the backend.

# Overview

Each Metrics value owns its own prometheus.Registry, so tests can build as
many collectors as they like without tripping duplicate registration.

Tracked:

  - HTTP requests by route template and status
  - Correlated evaluations by outcome (ok, script_error, timeout, ...)
  - Pending request table size
  - Relay responses that matched nothing or did not parse
  - Event bus publishes and drops per topic
  - Metadata resolutions by path (in_page, http_fallback, empty, no_url)
  - Attached browsing surfaces by kind
  - Command invocations

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

A nil *Metrics records nothing.
*/
package monitoring
