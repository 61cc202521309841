// Package middleware provides the gin middleware stack of the bridge API.
//
//   - CORS: the shell's webview origins may call the API directly
//   - RateLimit: per-IP token buckets, idle clients forgotten
//   - GlobalRateLimit: one bucket for every caller
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
