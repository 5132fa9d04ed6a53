package frontier

import (
	"sort"
	"sync"
	"time"

	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// Item is one dequeued unit of crawl work.
type Item struct {
	// URL is the normalized absolute URL to fetch.
	URL string

	// Depth is the link distance from the seed.
	Depth int
}

// Outcome is the terminal result of a fetch reported via Complete.
type Outcome int

// Completion outcomes.
const (
	// OutcomeVisited marks a URL as fetched and classified successfully.
	OutcomeVisited Outcome = iota

	// OutcomeFailed marks a URL whose fetch attempts were exhausted.
	// Failed URLs are not re-enqueued automatically but may be
	// re-offered explicitly.
	OutcomeFailed
)

// Frontier owns the visited/pending/in-flight bookkeeping for one crawl.
// URLs are admitted through Offer, handed out breadth-first through
// Next, and settled through Complete.
//
// Design decision: pending URLs live in per-depth FIFO buckets rather
// than a single priority queue. Depths are small consecutive integers,
// so bucket selection is a linear scan over a handful of keys, and FIFO
// within a depth gives deterministic test behavior.
type Frontier struct {
	mu sync.Mutex

	// scope filters offered URLs; nil means everything is in scope
	// (used by resume paths that re-admit already-filtered URLs).
	scope *Scope

	// maxDepth is the deepest admitted discovery depth.
	maxDepth int

	// status tracks every known URL's lifecycle state.
	status map[string]model.URLStatus

	// depths records the discovery depth of every known URL.
	depths map[string]int

	// buckets holds pending URLs grouped by depth, FIFO within each.
	buckets map[int][]string

	// inFlight counts URLs currently being fetched.
	inFlight int
}

// New creates a Frontier for the given scope and depth budget.
func New(scope *Scope, maxDepth int) *Frontier {
	return &Frontier{
		scope:    scope,
		maxDepth: maxDepth,
		status:   make(map[string]model.URLStatus),
		depths:   make(map[string]int),
		buckets:  make(map[int][]string),
	}
}

// Offer admits a URL to the pending queue if it is not already known,
// its depth fits the budget, and it is in scope. Scope rejections are
// silent: they are not failures, just URLs that don't belong to this
// crawl. Returns whether the URL was admitted.
//
// A URL whose previous fetch failed may be offered again; that resets
// it to pending. Visited, pending, and in-flight URLs are never
// re-admitted.
func (f *Frontier) Offer(rawURL string, depth int) bool {
	if depth < 0 || depth > f.maxDepth {
		return false
	}

	normalized, err := Normalize(rawURL)
	if err != nil {
		return false
	}

	if f.scope != nil && !f.scope.Contains(normalized) {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if st, known := f.status[normalized]; known && st != model.StatusFailed {
		return false
	}

	f.status[normalized] = model.StatusPending
	f.depths[normalized] = depth
	f.buckets[depth] = append(f.buckets[depth], normalized)
	return true
}

// Next removes and returns the next pending URL, marking it in-flight.
// URLs at shallower depths are preferred; within a depth, insertion
// order is preserved. Returns ErrFrontierEmpty when nothing is pending.
//
// The in-flight mark happens atomically with the dequeue, so two
// workers can never race on the same URL.
func (f *Frontier) Next() (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	depth, ok := f.shallowestBucket()
	if !ok {
		return Item{}, ErrFrontierEmpty
	}

	bucket := f.buckets[depth]
	u := bucket[0]
	if len(bucket) == 1 {
		delete(f.buckets, depth)
	} else {
		f.buckets[depth] = bucket[1:]
	}

	f.status[u] = model.StatusInFlight
	f.inFlight++
	return Item{URL: u, Depth: depth}, nil
}

// Complete marks an in-flight URL as visited or failed and releases its
// in-flight slot.
func (f *Frontier) Complete(rawURL string, outcome Outcome) error {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status[normalized] != model.StatusInFlight {
		return ErrNotInFlight
	}

	if outcome == OutcomeVisited {
		f.status[normalized] = model.StatusVisited
	} else {
		f.status[normalized] = model.StatusFailed
	}
	f.inFlight--
	return nil
}

// shallowestBucket returns the smallest depth with pending URLs.
// Caller must hold f.mu.
func (f *Frontier) shallowestBucket() (int, bool) {
	found := false
	best := 0
	for depth, bucket := range f.buckets {
		if len(bucket) == 0 {
			continue
		}
		if !found || depth < best {
			best = depth
			found = true
		}
	}
	return best, found
}

// InFlight returns the number of URLs currently being fetched.
func (f *Frontier) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// PendingCount returns the number of URLs awaiting a visit.
func (f *Frontier) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, bucket := range f.buckets {
		n += len(bucket)
	}
	return n
}

// Idle reports whether the frontier has no pending and no in-flight
// work, i.e. the crawl has drained.
func (f *Frontier) Idle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight > 0 {
		return false
	}
	for _, bucket := range f.buckets {
		if len(bucket) > 0 {
			return false
		}
	}
	return true
}

// Snapshot captures the frontier's current state for persistence.
// In-flight URLs are snapshotted back into the pending queue: if the
// process dies mid-fetch, those URLs must be fetched again on resume.
func (f *Frontier) Snapshot() *model.CrawlState {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := &model.CrawlState{
		Depths:    make(map[string]int),
		UpdatedAt: time.Now(),
	}

	for u, st := range f.status {
		switch st {
		case model.StatusVisited:
			state.Visited = append(state.Visited, u)
			state.Depths[u] = f.depths[u]
		case model.StatusFailed:
			state.Failed = append(state.Failed, u)
			state.Depths[u] = f.depths[u]
		case model.StatusInFlight:
			state.Pending = append(state.Pending, model.PendingURL{URL: u, Depth: f.depths[u]})
		case model.StatusPending:
			// Collected below from the buckets to preserve order.
		}
	}
	sort.Strings(state.Visited)
	sort.Strings(state.Failed)

	depths := make([]int, 0, len(f.buckets))
	for depth := range f.buckets {
		depths = append(depths, depth)
	}
	sort.Ints(depths)
	for _, depth := range depths {
		for _, u := range f.buckets[depth] {
			state.Pending = append(state.Pending, model.PendingURL{URL: u, Depth: depth})
		}
	}

	return state
}

// Restore loads a previously saved state into an empty frontier.
// Visited and failed URLs become known (so they are not admitted
// again); pending URLs are re-enqueued in their saved order without
// scope re-filtering, since they were filtered when first offered.
func (f *Frontier) Restore(state *model.CrawlState) {
	if state == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range state.Visited {
		f.status[u] = model.StatusVisited
		f.depths[u] = state.Depths[u]
	}
	for _, u := range state.Failed {
		f.status[u] = model.StatusFailed
		f.depths[u] = state.Depths[u]
	}
	for _, p := range state.Pending {
		if st, known := f.status[p.URL]; known && st != model.StatusFailed {
			continue
		}
		f.status[p.URL] = model.StatusPending
		f.depths[p.URL] = p.Depth
		f.buckets[p.Depth] = append(f.buckets[p.Depth], p.URL)
	}
}
