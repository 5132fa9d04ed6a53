package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to match the behavior of a polite production
// crawl: bounded concurrency, a global request interval, and page/depth
// budgets that keep audits of large sites finite.
const (
	// DefaultConcurrency is the number of concurrent fetch workers.
	// Each worker drives a headless browser page, so higher values cost
	// significant memory. 3 balances throughput against resource usage.
	DefaultConcurrency = 3

	// MaxConcurrency is the upper bound accepted for the concurrency
	// setting. Values above this are corrected down with a warning
	// because a headless browser session per worker exhausts memory
	// quickly beyond this point.
	MaxConcurrency = 20

	// DefaultRateInterval is the minimum time between any two requests
	// in a crawl, shared across all workers. 1 second is conservative
	// and respectful of server resources.
	DefaultRateInterval = 1 * time.Second

	// DefaultMaxDepth is the maximum link distance from the seed URL.
	DefaultMaxDepth = 3

	// DefaultMaxPages limits the total pages fetched per crawl.
	// This prevents runaway crawling on large or infinitely-generating
	// sites. Users can override via the --max-pages CLI flag.
	DefaultMaxPages = 500

	// DefaultFetchTimeout bounds a single rendered navigation. Headless
	// rendering is slower than a raw GET, so this is generous.
	DefaultFetchTimeout = 45 * time.Second

	// DefaultMaxRetries is the number of retries after a failed fetch.
	// With 2 retries a URL gets 3 attempts total before being recorded
	// as failed.
	DefaultMaxRetries = 2

	// DefaultRetryBackoff is the initial delay before the first retry.
	// The delay doubles for each subsequent retry.
	DefaultRetryBackoff = 500 * time.Millisecond

	// DefaultFlushThreshold is the number of page records held in
	// memory before the result buffer flushes to disk.
	DefaultFlushThreshold = 50

	// DefaultCheckpointEvery is the number of completed pages between
	// periodic crawl state saves.
	DefaultCheckpointEvery = 25

	// DefaultUserAgent identifies ChoopScoop in HTTP requests.
	// A descriptive User-Agent lets site operators identify audit
	// traffic in their logs.
	DefaultUserAgent = "ChoopScoop/2.1 (+https://github.com/JerushaGray/ChoopScoop)"

	// AppName is the application name used for XDG directory paths.
	AppName = "choopscoop"
)

// Config holds all configuration options for a crawl.
// It is populated from CLI flags and the optional config file, then
// passed through the application via dependency injection rather than
// global state.
//
// Design decision: a single flat struct instead of nested sub-structs.
// The number of options is manageable, and nesting would add complexity
// without significant benefit.
type Config struct {
	// SeedURL is the URL the crawl starts from.
	SeedURL string

	// Concurrency is the number of concurrent fetch workers.
	Concurrency int

	// RateInterval is the minimum interval between any two requests in
	// this crawl, enforced globally across workers.
	RateInterval time.Duration

	// MaxDepth is the maximum link distance from the seed URL.
	// Depth 0 means only the seed page.
	MaxDepth int

	// MaxPages is the page budget for the crawl. Once this many pages
	// have been fetched successfully, the crawl drains and stops.
	MaxPages int

	// FetchTimeout bounds each rendered navigation.
	FetchTimeout time.Duration

	// MaxRetries is the number of retries after a failed fetch.
	MaxRetries int

	// RetryBackoff is the initial retry delay; it doubles per attempt.
	RetryBackoff time.Duration

	// FlushThreshold is the in-memory page record count that triggers
	// a durable flush of the result buffer.
	FlushThreshold int

	// CheckpointEvery is the number of completed pages between
	// periodic state saves. The state is always saved at shutdown
	// regardless of this setting.
	CheckpointEvery int

	// IncludePatterns restricts crawling to URL paths matching at
	// least one glob pattern. Empty means all in-scope paths.
	IncludePatterns []string

	// ExcludePatterns skips URL paths matching any glob pattern.
	ExcludePatterns []string

	// UserAgent is sent with every rendered navigation.
	UserAgent string

	// Fresh discards any saved crawl state instead of resuming.
	Fresh bool

	// RespectRobots consults robots.txt before admitting URLs.
	RespectRobots bool

	// Verbose enables debug-level logging.
	Verbose bool

	// OutputJSON writes the final report as JSON.
	OutputJSON bool

	// OutputCSV writes the final report as CSV.
	OutputCSV bool

	// OutputMarkdown writes the final report as Markdown.
	OutputMarkdown bool

	// ReportFile is the output path for the report. Empty means stdout.
	ReportFile string

	// StateDir is the directory holding per-domain state databases and
	// partial result files. Defaults to the XDG data directory.
	StateDir string

	// ConfigFilePath is an explicit config file path. If empty, the
	// tool searches for .choopscoop in the current and home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File
}

// NewConfig creates a Config with default values.
//
// Design decision: a constructor instead of relying on zero values
// because most defaults are non-zero. It also documents what the
// defaults are.
func NewConfig() *Config {
	return &Config{
		Concurrency:     DefaultConcurrency,
		RateInterval:    DefaultRateInterval,
		MaxDepth:        DefaultMaxDepth,
		MaxPages:        DefaultMaxPages,
		FetchTimeout:    DefaultFetchTimeout,
		MaxRetries:      DefaultMaxRetries,
		RetryBackoff:    DefaultRetryBackoff,
		FlushThreshold:  DefaultFlushThreshold,
		CheckpointEvery: DefaultCheckpointEvery,
		UserAgent:       DefaultUserAgent,
		StateDir:        XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for ChoopScoop.
// On Linux: ~/.local/share/choopscoop
// On macOS: ~/Library/Application Support/choopscoop
// On Windows: %LOCALAPPDATA%\choopscoop
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ChoopScoop.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks settings that cannot be corrected automatically.
// It returns the first error found; fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if c.SeedURL == "" {
		return ErrNoSeedURL
	}

	if c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}

	// The report formats are mutually exclusive
	formats := 0
	for _, enabled := range []bool{c.OutputJSON, c.OutputCSV, c.OutputMarkdown} {
		if enabled {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	return nil
}

// Sanitize corrects out-of-range tuning values to safe defaults,
// logging a warning for each correction. Invalid concurrency or rate
// settings must never abort a crawl; they fall back to defaults.
func (c *Config) Sanitize(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	if c.Concurrency <= 0 || c.Concurrency > MaxConcurrency {
		logger.Warn("invalid concurrency, using default",
			"requested", c.Concurrency,
			"default", DefaultConcurrency,
		)
		c.Concurrency = DefaultConcurrency
	}

	if c.RateInterval < 0 {
		logger.Warn("negative rate interval, using default",
			"requested", c.RateInterval,
			"default", DefaultRateInterval,
		)
		c.RateInterval = DefaultRateInterval
	}

	if c.MaxDepth < 0 {
		logger.Warn("negative max depth, using default",
			"requested", c.MaxDepth,
			"default", DefaultMaxDepth,
		)
		c.MaxDepth = DefaultMaxDepth
	}

	if c.MaxPages <= 0 {
		logger.Warn("invalid page budget, using default",
			"requested", c.MaxPages,
			"default", DefaultMaxPages,
		)
		c.MaxPages = DefaultMaxPages
	}

	if c.MaxRetries < 0 {
		logger.Warn("negative retry count, using default",
			"requested", c.MaxRetries,
			"default", DefaultMaxRetries,
		)
		c.MaxRetries = DefaultMaxRetries
	}

	if c.FlushThreshold <= 0 {
		logger.Warn("invalid flush threshold, using default",
			"requested", c.FlushThreshold,
			"default", DefaultFlushThreshold,
		)
		c.FlushThreshold = DefaultFlushThreshold
	}

	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = DefaultCheckpointEvery
	}

	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}

	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}
