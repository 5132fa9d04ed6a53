package model

import "time"

// PendingURL is one entry of the frontier's pending queue inside a
// persisted crawl state. Order in the slice is the dequeue order that a
// resumed crawl should preserve.
type PendingURL struct {
	// URL is the normalized absolute URL.
	URL string `json:"url"`

	// Depth is the discovery depth of the URL.
	Depth int `json:"depth"`
}

// CrawlState is a resumable snapshot of crawl progress for a single
// domain. One instance exists per crawl target, keyed by the normalized
// domain identifier so concurrent crawls of different domains never
// collide in storage.
//
// Design decision: the state carries plain slices and maps rather than
// frontier internals so the state store can persist it without knowing
// how the frontier organizes its queues.
type CrawlState struct {
	// DomainKey is the filesystem-safe identifier of the crawl target.
	DomainKey string `json:"domain_key"`

	// SeedURL is the URL the crawl started from.
	SeedURL string `json:"seed_url"`

	// Visited contains every URL that completed successfully.
	Visited []string `json:"visited"`

	// Failed contains every URL whose fetch attempts were exhausted.
	Failed []string `json:"failed"`

	// Pending contains URLs still awaiting a visit, in dequeue order.
	Pending []PendingURL `json:"pending"`

	// Depths maps visited and failed URLs to their discovery depth.
	Depths map[string]int `json:"depths,omitempty"`

	// CrawledCount is the number of pages fetched successfully.
	CrawledCount int `json:"crawled_count"`

	// FailedCount is the number of pages that exhausted their retries.
	FailedCount int `json:"failed_count"`

	// UpdatedAt records when this snapshot was taken.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmpty reports whether the state carries no progress worth resuming.
func (s *CrawlState) IsEmpty() bool {
	return s == nil || (len(s.Visited) == 0 && len(s.Pending) == 0 && len(s.Failed) == 0)
}
