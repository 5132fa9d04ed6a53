package model

import (
	"sort"
	"time"
)

// AuditReport is the final aggregated result of a crawl.
// It combines the per-page records with crawl-level statistics and a
// tag coverage summary.
//
// Design decision: We aggregate into a single struct rather than letting
// report writers walk the raw page slice because:
//  1. The coverage summary is computed once and shared by all formats
//  2. It can be serialized to JSON for tools wanting structured output
//  3. It separates presentation concerns from data collection
type AuditReport struct {
	// Domain is the registrable domain that was audited.
	Domain string `json:"domain"`

	// SeedURL is the URL the crawl started from.
	SeedURL string `json:"seed_url"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl terminated.
	FinishedAt time.Time `json:"finished_at"`

	// PagesCrawled is the number of pages fetched and classified.
	PagesCrawled int `json:"pages_crawled"`

	// PagesFailed is the number of URLs whose retries were exhausted.
	PagesFailed int `json:"pages_failed"`

	// Resumed indicates the crawl continued from a saved state.
	Resumed bool `json:"resumed"`

	// Interrupted indicates the crawl was stopped by a signal or
	// budget before the frontier drained.
	Interrupted bool `json:"interrupted"`

	// Pages contains every page record collected during the crawl.
	Pages []PageRecord `json:"pages"`

	// TagCoverage maps each detected tag identifier to the number of
	// pages it was found on.
	TagCoverage map[string]int `json:"tag_coverage"`

	// TechnologyCoverage maps each detected technology to the number
	// of pages it was found on.
	TechnologyCoverage map[string]int `json:"technology_coverage,omitempty"`
}

// NewAuditReport builds a report from collected page records and crawl
// counters, computing the coverage summaries.
func NewAuditReport(domain, seedURL string, pages []PageRecord) *AuditReport {
	r := &AuditReport{
		Domain:             domain,
		SeedURL:            seedURL,
		Pages:              pages,
		PagesCrawled:       len(pages),
		TagCoverage:        make(map[string]int),
		TechnologyCoverage: make(map[string]int),
	}

	for i := range pages {
		for _, tag := range pages[i].Tags {
			r.TagCoverage[tag]++
		}
		for _, tech := range pages[i].Technologies {
			r.TechnologyCoverage[tech]++
		}
	}

	return r
}

// TagsByCoverage returns the detected tag identifiers ordered by page
// count descending, then alphabetically for deterministic output.
func (r *AuditReport) TagsByCoverage() []string {
	tags := make([]string, 0, len(r.TagCoverage))
	for tag := range r.TagCoverage {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if r.TagCoverage[tags[i]] != r.TagCoverage[tags[j]] {
			return r.TagCoverage[tags[i]] > r.TagCoverage[tags[j]]
		}
		return tags[i] < tags[j]
	})
	return tags
}

// PagesMissingTag returns the URLs of pages where the given tag was not
// detected. Useful for spotting pages that dropped a required tag.
func (r *AuditReport) PagesMissingTag(tag string) []string {
	var missing []string
	for i := range r.Pages {
		if !r.Pages[i].HasTag(tag) {
			missing = append(missing, r.Pages[i].URL)
		}
	}
	return missing
}
