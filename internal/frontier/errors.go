package frontier

import "errors"

var (
	// ErrFrontierEmpty is returned by Next when no pending URL remains.
	// URLs may still be in flight; callers should check InFlight before
	// treating the crawl as finished.
	ErrFrontierEmpty = errors.New("frontier: no pending URLs")

	// ErrNotInFlight is returned by Complete for a URL that was never
	// dequeued. It indicates a bookkeeping bug in the caller.
	ErrNotInFlight = errors.New("frontier: URL is not in flight")
)
