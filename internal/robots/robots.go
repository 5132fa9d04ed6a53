// Package robots fetches and evaluates a site's robots.txt. An audit
// targets a single site, so the rules are fetched once before the crawl
// starts rather than cached per host.
package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

// Checker answers whether a path may be crawled under the site's
// robots.txt rules. The zero value permits everything.
type Checker struct {
	group *robotstxt.Group
}

// Allowed reports whether the given URL path is permitted. Checkers
// built from a missing or unreadable robots.txt fail open.
func (c *Checker) Allowed(path string) bool {
	if c == nil || c.group == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	return c.group.Test(path)
}

// Fetch retrieves robots.txt from the site hosting rawURL and returns a
// Checker scoped to userAgent. Network errors and 4xx/5xx responses
// yield a permit-all Checker, matching how crawlers conventionally
// treat an absent robots file.
func Fetch(ctx context.Context, client *http.Client, rawURL, userAgent string) (*Checker, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("robots: parse %q: %w", rawURL, err)
	}

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("robots: build request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &Checker{}, nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return &Checker{}, nil
	}

	group := data.FindGroup(userAgent)
	if group == nil {
		group = data.FindGroup("*")
	}
	return &Checker{group: group}, nil
}

// Parse builds a Checker from raw robots.txt content. Used by tests and
// by callers that already hold the file body.
func Parse(content []byte, userAgent string) (*Checker, error) {
	data, err := robotstxt.FromBytes(content)
	if err != nil {
		return nil, fmt.Errorf("robots: parse robots.txt: %w", err)
	}
	group := data.FindGroup(userAgent)
	if group == nil {
		group = data.FindGroup("*")
	}
	return &Checker{group: group}, nil
}
