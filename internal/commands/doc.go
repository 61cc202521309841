// Package commands exposes the bridge to the shell as named commands.
//
// The dispatcher keeps a catalog of command definitions and routes an
// invocation by name to its handler. Every invocation is traced and timed.
//
// Commands:
//   - eval_in_webview(label, script): fire-and-forget injection
//   - get_page_properties(label, script): correlated evaluation, JSON result
//   - get_page_metadata(label, url?): in-page metadata with HTTP fallback
//   - get_page_metadata_simple(url): HTTP metadata only
//
// Example Usage:
//
//	d := commands.NewDispatcher(tracer, metrics, logger)
//	commands.NewService(registry, evaluator, pipeline).Register(d)
//	out, err := d.Execute(ctx, "get_page_properties", commands.Args{"label": "tab-1", "script": "document.title"})
package commands
