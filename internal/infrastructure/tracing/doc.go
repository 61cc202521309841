/*
Package tracing provides lightweight request tracing written to the log.

Spans carry prefixed ULID identifiers (trace_..., span_...) and flow through
context.Context. Inbound HTTP requests may supply X-Trace-ID / X-Span-ID; the
fallback fetcher propagates the same headers on outbound requests.

# Usage

	tracer := tracing.New("defcomm-browser", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "get_page_metadata")
	span.SetTag("label", label)
	defer tracer.Finish(span)

Finished spans are logged at debug level, or warn when they carry an error.
*/
package tracing
