/*
Package resilience provides a circuit breaker for outbound calls.

The metadata fallback keeps one breaker per host in a Group, so a dead
origin stops costing a full fetch timeout on every tab refresh.

# Usage

	hosts := resilience.NewGroup(resilience.DefaultSettings())

	page, err := resilience.Do(hosts.Get(u.Host), func() (*Page, error) {
		return client.Fetch(ctx, u.String())
	})

# States

	Closed --[Trip]-> Open --[Cooldown]-> Half-Open --[MaxProbes successes]-> Closed
	                                          |
	                                      [failure]
	                                          v
	                                         Open
*/
package resilience
