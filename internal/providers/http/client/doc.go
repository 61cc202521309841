// Package client provides the shared HTTP client used for metadata fallback
// fetches and for loading documents into headless surfaces.
//
// Built on go-resty/resty over a hashicorp/go-retryablehttp transport:
//   - Fixed User-Agent and a redirect cap (final URL is reported)
//   - Transport retries with short backoff
//   - Rate limiting with golang.org/x/time/rate
//   - One circuit breaker per host
//   - gzip, deflate and zstd bodies decoded with klauspost/compress
//   - Charset normalisation to UTF-8 (x/net/html/charset, chardet)
//
// Example Usage:
//
//	c := client.New(client.DefaultOptions(), logger)
//	page, err := c.Fetch(ctx, "https://example.com")
//	html := page.UTF8()
package client
