/*
Package cdp drives Chrome pages over the DevTools protocol as window
surfaces.

Each Page installs a Runtime binding and a window.__TAURI__.event.emit shim
that forwards to it, so the evaluation harness and page scripts emit onto
the event bus exactly as a desktop webview does. Scripts are submitted with
Runtime.evaluate and never awaited by the caller.

	b, err := cdp.Connect(ctx, "ws://127.0.0.1:9222/devtools/browser/...", registry, bus, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if _, err := b.Open(ctx, "preview", "https://example.com"); err != nil {
		return err
	}
*/
package cdp
