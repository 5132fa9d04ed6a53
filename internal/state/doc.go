// Package state persists crawl progress so an interrupted crawl can
// resume instead of restarting.
//
// Each crawl target gets its own SQLite database file named by a
// filesystem-safe domain key, so two simultaneous crawls of different
// domains use disjoint storage and can never corrupt each other's
// state. A stored state that cannot be parsed is reported as corrupt;
// callers fall back to a fresh crawl rather than crash.
package state
