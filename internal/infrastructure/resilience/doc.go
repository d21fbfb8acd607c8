// Package resilience provides the circuit breaker used by every REST-backed
// integration.
//
// A breaker starts closed. After ReadyToTrip approves a failure it opens and
// rejects calls with ErrCircuitOpen until Timeout passes, then lets
// MaxRequests trial calls through half-open. Any trial failure reopens it;
// MaxRequests consecutive successes close it.
//
//	Closed --[ReadyToTrip]--> Open --[Timeout]--> Half-Open --[successes]--> Closed
//	                           ^                      |
//	                           +------[failure]-------+
//
// IsSuccessful decides what counts as a failure. The REST client treats
// caller mistakes (INVALID_PARAMS) as successes so bad input cannot trip a
// healthy backend.
//
// Usage:
//
//	breaker := resilience.New("github", resilience.Settings{
//		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
//	})
//	err := breaker.Do(ctx, func(ctx context.Context) error {
//		return call(ctx)
//	})
package resilience
