package model

import "time"

// URLStatus tracks the lifecycle of a discovered URL inside the frontier.
//
// Valid transitions:
//
//	pending -> in-flight -> visited
//	pending -> in-flight -> failed
//
// A URL never moves from visited back to pending. A failed URL may be
// re-offered explicitly, which starts a fresh pending entry.
type URLStatus string

// URL lifecycle states.
const (
	// StatusPending means the URL is queued and waiting for a worker.
	StatusPending URLStatus = "pending"

	// StatusInFlight means a worker is currently fetching the URL.
	StatusInFlight URLStatus = "in-flight"

	// StatusVisited means the URL was fetched and classified successfully.
	StatusVisited URLStatus = "visited"

	// StatusFailed means all fetch attempts for the URL were exhausted.
	StatusFailed URLStatus = "failed"
)

// PageRecord is the audit result for one successfully fetched page.
// It is owned exclusively by the result buffer until flushed to disk and
// is immutable once created.
type PageRecord struct {
	// URL is the normalized absolute URL of the page.
	URL string `json:"url"`

	// Depth is the link distance from the seed URL (seed = 0).
	Depth int `json:"depth"`

	// StatusCode is the HTTP status observed after navigation completed.
	StatusCode int `json:"status_code"`

	// Title is the rendered page title, if any.
	Title string `json:"title,omitempty"`

	// Tags contains the identifiers of detected tracking tags
	// (e.g., "google_tag_manager", "facebook_pixel").
	Tags []string `json:"tags"`

	// Technologies contains detected technology identifiers
	// (e.g., "react", "wordpress").
	Technologies []string `json:"technologies,omitempty"`

	// DataLayerEvents contains events parsed from dataLayer.push calls.
	DataLayerEvents []DataLayerEvent `json:"data_layer_events,omitempty"`

	// Metrics contains navigation performance timings.
	Metrics PageMetrics `json:"metrics"`

	// Links contains outbound links discovered on the page, after
	// resolution against the page URL but before scope filtering.
	Links []string `json:"links,omitempty"`

	// FetchedAt records when the page fetch completed.
	FetchedAt time.Time `json:"fetched_at"`
}

// DataLayerEvent is a single structured event extracted from a page's
// dataLayer. Parameters are kept as raw JSON-compatible values because
// event payload shapes vary per site.
type DataLayerEvent struct {
	// Event is the event name, e.g. "purchase" or "page_view".
	Event string `json:"event"`

	// Known reports whether the event name is part of the GA4
	// recommended event catalog.
	Known bool `json:"known"`

	// Parameters holds the remaining key/value pairs of the push.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// PageMetrics holds timing measurements for a rendered page load.
// All durations are measured by the rendering fetcher.
type PageMetrics struct {
	// NavigationTime is the time from navigation start until the
	// document finished loading.
	NavigationTime time.Duration `json:"navigation_time"`

	// RenderTime is the additional time spent waiting for the page to
	// settle after load (scripts, late DOM mutations).
	RenderTime time.Duration `json:"render_time"`
}

// TotalTime returns the combined navigation and render time.
func (m PageMetrics) TotalTime() time.Duration {
	return m.NavigationTime + m.RenderTime
}

// HasTag reports whether the record contains the given tag identifier.
func (p *PageRecord) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
