// Package fetcher renders pages in headless Chrome and returns the
// post-JavaScript DOM. Tag managers and analytics snippets are routinely
// injected at runtime, so a plain HTTP fetch would miss most of what the
// classifier looks for.
package fetcher
