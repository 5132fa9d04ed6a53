package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoSeedURL is returned when no seed URL is provided.
	ErrNoSeedURL = errors.New("no seed URL specified: provide a URL to audit")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	// A zero or negative timeout would cause immediate navigation failures.
	ErrInvalidTimeout = errors.New("invalid fetch timeout: must be positive")

	// ErrConflictingReportFormats is returned when more than one of
	// --json, --csv, and --markdown is specified. Only one output
	// format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: choose at most one of --json, --csv, --markdown")
)
