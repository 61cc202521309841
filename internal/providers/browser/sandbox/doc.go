/*
Package sandbox provides headless browsing surfaces backed by the goja
JavaScript engine.

# Overview

A Window binds a goja runtime to a static document parsed with goquery. It
offers the slice of the browser environment page scripts in this project
rely on:

  - window, self, document (title, baseURI, documentElement, head, body,
    querySelector, querySelectorAll, getElementById, getElementsByTagName)
  - elements with getAttribute, hasAttribute, textContent, and reflected
    href/src resolved against the base URI
  - location and a URL constructor
  - console, captured and logged
  - window.__TAURI__.event.emit, published on the event bus with the window
    label as source

Timers never fire and there is no network access from scripts.

# Execution

Each window owns one goroutine. Eval only queues the script, so it behaves
like a webview's fire-and-forget eval. Every script runs under a timeout
enforced with goja's Interrupt.

# Usage Example

	host := sandbox.NewHost(sandbox.DefaultConfig(), registry, bus, fetchClient, logger)

	w, err := host.Open(ctx, "reader", "https://example.com")
	if err != nil {
		return err
	}
	_ = registry.Inject(ctx, "reader", `window.__TAURI__.event.emit("tab-metadata", {title: document.title})`)
*/
package sandbox
