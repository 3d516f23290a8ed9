/*
Package resilience provides a circuit breaker for flaky dependencies.

A Breaker has three states:

	Closed --[ReadyToTrip]-> Open --[Timeout]-> Half-Open --[MaxRequests successes]-> Closed
	                                               |
	                                           [failure]
	                                               v
	                                             Open

While open, Do fails fast with ErrCircuitOpen. Errors caused by the
caller's own context being cancelled are not counted against the
dependency.

Usage:

	guard := resilience.New("vdt", resilience.Settings{Timeout: 10 * time.Second})
	body, err := resilience.Call(ctx, guard, func(ctx context.Context) ([]byte, error) {
		return fetcher.Fetch(ctx, path)
	})

Group lazily creates one breaker per name with shared settings.
*/
package resilience
