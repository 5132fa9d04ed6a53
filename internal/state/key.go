package state

import (
	"path/filepath"
	"strings"
)

// DomainKey converts a registrable domain into a filesystem-safe
// identifier used to name that domain's state database and partial
// results file. Two different domains always map to different keys
// because only benign characters are replaced.
func DomainKey(domain string) string {
	key := strings.ToLower(strings.TrimSpace(domain))
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == ':':
			// Port separator, common for localhost targets.
			b.WriteByte('_')
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

// DatabasePath returns the state database file for a domain key.
func DatabasePath(dir, domainKey string) string {
	return filepath.Join(dir, domainKey+".db")
}

// PartialResultsPath returns the partial-results file for a domain key.
func PartialResultsPath(dir, domainKey string) string {
	return filepath.Join(dir, domainKey+".partial.json")
}
