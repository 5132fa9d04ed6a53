// Package model defines the core data structures used throughout ChoopScoop.
//
// This package contains the following main types:
//   - PageRecord: The per-page audit result (tags, technologies, metrics)
//   - CrawlState: A resumable snapshot of crawl progress for one domain
//   - AuditReport: The final aggregated report for a crawl
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, classifier, buffer, state, report)
// need to use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
