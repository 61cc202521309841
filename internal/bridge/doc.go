/*
Package bridge evaluates JavaScript in browsing surfaces and returns the
result to Go.

Surfaces only offer fire-and-forget execution. The Evaluator makes that
awaitable: it registers a fresh correlation ID in the pending table, wraps
the user script in a harness that emits a script-response event carrying the
ID, injects it, and waits (bounded) for the Relay to resolve the ID.

	caller -> Evaluator -> pending.Table.Register
	       -> surface.Registry.Inject -> [page runs harness, emits event]
	       -> events.Bus -> Relay -> pending.Table.Resolve -> caller

Wire format of the event payload:

	{"id": "<uuid>", "status": "ok", "value": "<json text>"}
	{"id": "<uuid>", "status": "error", "error": "<message>"}

Payloads without status are accepted; a string error field marks failure.
*/
package bridge
