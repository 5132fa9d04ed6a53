// Package crawler coordinates the audit: it drains the URL frontier
// through a bounded worker pool, paces fetches with the rate governor,
// classifies rendered pages, and checkpoints progress so an interrupted
// run can resume.
package crawler
