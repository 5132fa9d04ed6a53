package frontier

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// RobotsPolicy answers whether a URL path may be crawled. It is
// satisfied by the robots package's Checker; the indirection keeps the
// frontier free of a robots.txt dependency.
type RobotsPolicy interface {
	Allowed(path string) bool
}

// Scope decides which URLs belong to a crawl. A URL is in scope when it
// shares the seed's registrable domain, its path passes the
// include/exclude glob filters, and the robots policy (if any) allows it.
type Scope struct {
	// domain is the registrable domain of the seed URL
	// (e.g., "example.co.uk" for "shop.example.co.uk").
	domain string

	// includePatterns restrict crawling to matching paths when non-empty.
	includePatterns []string

	// excludePatterns skip matching paths.
	excludePatterns []string

	// robots optionally vetoes paths disallowed by robots.txt.
	robots RobotsPolicy
}

// NewScope builds a Scope from the seed URL.
//
// Design decision: scope is the registrable domain rather than the exact
// host, so "www.example.com" and "example.com" (and other subdomains)
// are treated as one site. That matches how tag deployments span a
// site's hosts.
func NewScope(seedURL string, includePatterns, excludePatterns []string) (*Scope, error) {
	u, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}

	domain, err := RegistrableDomain(u.Hostname())
	if err != nil {
		return nil, err
	}

	return &Scope{
		domain:          domain,
		includePatterns: includePatterns,
		excludePatterns: excludePatterns,
	}, nil
}

// SetRobots installs a robots.txt policy consulted by Contains.
func (s *Scope) SetRobots(policy RobotsPolicy) {
	s.robots = policy
}

// Domain returns the registrable domain of the crawl target.
func (s *Scope) Domain() string {
	return s.domain
}

// Contains reports whether the (already normalized) URL is in scope.
func (s *Scope) Contains(normalizedURL string) bool {
	u, err := url.Parse(normalizedURL)
	if err != nil {
		return false
	}

	domain, err := RegistrableDomain(u.Hostname())
	if err != nil || domain != s.domain {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.excludePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.includePatterns) > 0 {
		matched := false
		for _, pattern := range s.includePatterns {
			if matchPattern(pattern, path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if s.robots != nil && !s.robots.Allowed(path) {
		return false
	}

	return true
}

// RegistrableDomain returns the eTLD+1 of a hostname, lowercased.
// Hosts without a public suffix (e.g., "localhost" or raw IPs) are
// returned as-is so local test servers stay crawlable.
func RegistrableDomain(hostname string) (string, error) {
	hostname = strings.ToLower(hostname)
	if hostname == "" {
		return "", fmt.Errorf("empty hostname")
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		// localhost, bare IPs, and single-label hosts have no eTLD+1
		return hostname, nil
	}
	return domain, nil
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	// "/admin/*" should match "/admin" and anything below it
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	// Extension patterns like "*.pdf" match anywhere in the path
	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Also try the filename alone for patterns without a separator
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
