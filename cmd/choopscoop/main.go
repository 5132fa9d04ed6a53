// Package main provides the entry point for the ChoopScoop CLI.
//
// ChoopScoop audits websites for marketing and analytics tag coverage.
// It crawls a site with a headless browser, detects tag managers,
// analytics snippets and pixels on each rendered page, and reports
// which pages are missing them.
//
// Usage:
//
//	choopscoop audit https://example.com
//	choopscoop history example.com
//
// See --help for all available options.
package main

// main is the entry point for ChoopScoop.
func main() {
	Execute()
}
