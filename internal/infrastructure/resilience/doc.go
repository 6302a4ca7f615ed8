/*
Package resilience guards slow or failing backends with a circuit breaker.

The breaker sits in front of the location backend: once the backend keeps
failing, calls fail fast with ErrOpen for a cooldown period instead of each
waiting out its own timeout.

	breaker := resilience.New("location", resilience.Settings{
		Cooldown: 30 * time.Second,
		Trip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})

	fix, err := resilience.Call(breaker, func() (location.Fix, error) {
		return backend.CurrentFix(ctx)
	})

States:

	Closed --[Trip]--> Open --[Cooldown]--> Half-Open --[Probes succeed]--> Closed
	                    ^                      |
	                    +------[failure]-------+
*/
package resilience
