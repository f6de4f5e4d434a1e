// Package resilience provides a circuit breaker for outbound calls.
//
// The webhook forwarder wraps every delivery in a Breaker so a dead
// endpoint is probed occasionally instead of hammered on every event.
//
// States:
//   - Closed: requests flow; failures are counted
//   - Open: requests fail fast with ErrCircuitOpen until Timeout passes
//   - Half-open: up to MaxRequests probes; one failure reopens
//
// Example Usage:
//
//	b := resilience.New("webhook", resilience.Settings{Timeout: 10 * time.Second})
//	err := b.Do(ctx, func(ctx context.Context) error {
//		return deliver(ctx, event)
//	})
package resilience
