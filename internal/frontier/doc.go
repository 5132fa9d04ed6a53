// Package frontier manages the set of discovered URLs and the queue of
// URLs awaiting a visit.
//
// The frontier enforces the crawl's correctness invariants:
//   - a URL is never yielded twice unless it failed and was re-offered
//   - the visited set and pending queue are always disjoint
//   - URLs are delivered breadth-first by depth, FIFO within a depth
//   - scope filtering and normalization happen once at offer time, so
//     all later comparisons are pure string equality
//
// All methods are safe for concurrent use by multiple crawl workers.
package frontier
