package state

import "errors"

var (
	// ErrNoState is returned by Load when no crawl state has been
	// saved for the domain yet.
	ErrNoState = errors.New("state: no saved crawl state")

	// ErrCorruptState is returned by Load when a saved state exists
	// but cannot be parsed or fails structural validation. Callers
	// must treat this as absent state and start fresh.
	ErrCorruptState = errors.New("state: saved crawl state is corrupt")
)
