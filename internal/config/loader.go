package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".choopscoop"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// SiteConfig holds per-host overrides for crawl behavior.
type SiteConfig struct {
	// Cookie is an HTTP cookie to set when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers for requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global max depth for this site.
	// Zero means use the global setting.
	Depth int `yaml:"depth,omitempty"`

	// ExcludePatterns are URL path glob patterns to skip.
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`

	// IncludePatterns restrict crawling to matching paths.
	IncludePatterns []string `yaml:"includePatterns,omitempty"`
}

// PatternConfig describes one user-supplied detection pattern.
// These extend the built-in tag catalog.
type PatternConfig struct {
	// Name is the tag identifier reported when the pattern matches.
	Name string `yaml:"name"`

	// Category groups the tag in reports (e.g., "Analytics").
	Category string `yaml:"category,omitempty"`

	// Patterns are regular expressions matched against page HTML.
	Patterns []string `yaml:"patterns,omitempty"`

	// URLs are substrings matched against script/resource URLs.
	URLs []string `yaml:"urls,omitempty"`
}

// File represents the structure of the .choopscoop configuration file.
type File struct {
	// Sites maps hostnames to site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains site configuration applied to all sites unless
	// overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// ExtraPatterns are user-defined detection patterns merged into
	// the built-in catalog.
	ExtraPatterns []PatternConfig `yaml:"extraPatterns,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merging the
// site-specific entry over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if siteConfig.Depth != 0 {
			result.Depth = siteConfig.Depth
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
		if len(siteConfig.ExcludePatterns) > 0 {
			result.ExcludePatterns = siteConfig.ExcludePatterns
		}
		if len(siteConfig.IncludePatterns) > 0 {
			result.IncludePatterns = siteConfig.IncludePatterns
		}
	}

	return result
}

// LoadConfigFile loads site configurations from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error based on whether the config file
// path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in order:
//  1. The explicit configPath, if specified
//  2. .choopscoop in the current directory
//  3. .choopscoop in the user's home directory
//
// Returns the path if found, or empty string if not.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
