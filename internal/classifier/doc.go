// Package classifier maps rendered page content to detected marketing
// tags, technologies, and dataLayer events.
//
// Classification is a pure function of page content: the same HTML
// always produces the same result, which makes the crawl pipeline easy
// to test with canned fixtures. The built-in catalog covers the common
// tag management, analytics, advertising, and consent platforms; users
// can extend it with patterns from the configuration file.
package classifier
