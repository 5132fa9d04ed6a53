// Package governor enforces the crawl's global request pacing.
//
// A crawl has exactly one Governor shared by all workers: the minimum
// interval applies between any two requests in the crawl, not per
// worker. Five workers with a one second interval still produce about
// one request per second in aggregate.
package governor

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Governor is the shared gate workers pass through before each fetch.
//
// Design decision: built on rate.Limiter with burst 1, which gives
// exactly the "minimum interval since the previous grant" semantics and
// context-aware blocking for free. The limiter's internal mutex is the
// single point of exclusion for the last-grant time.
type Governor struct {
	limiter *rate.Limiter
}

// New creates a Governor with the given minimum inter-request interval.
// A zero or negative interval disables pacing entirely.
func New(interval time.Duration) *Governor {
	if interval <= 0 {
		return &Governor{}
	}
	return &Governor{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Acquire blocks until the configured interval has elapsed since the
// previous grant anywhere in this crawl, then returns nil. If the
// context is cancelled while waiting, it returns the context's error
// immediately.
func (g *Governor) Acquire(ctx context.Context) error {
	if g.limiter == nil {
		// Pacing disabled; still honor cancellation.
		return ctx.Err()
	}
	return g.limiter.Wait(ctx)
}
