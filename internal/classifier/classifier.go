package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JerushaGray/ChoopScoop/internal/config"
	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// Result is the outcome of classifying one page's content.
type Result struct {
	// Tags contains the identifiers of detected tracking tags, sorted
	// by catalog order, each at most once.
	Tags []string

	// Technologies contains detected technology identifiers.
	Technologies []string

	// DataLayerEvents contains events parsed from dataLayer pushes.
	DataLayerEvents []model.DataLayerEvent
}

// Classifier matches page content against its pattern catalog.
// Classify is a pure function of the content; a Classifier is safe for
// concurrent use by crawl workers once built.
type Classifier struct {
	tags  []TagPattern
	techs []TagPattern
}

// New creates a Classifier with the built-in catalog.
func New() *Classifier {
	return &Classifier{
		tags:  builtinTagPatterns,
		techs: builtinTechnologyPatterns,
	}
}

// NewWithExtras creates a Classifier with the built-in catalog plus
// user-defined patterns from the configuration file. An invalid regex
// in an extra pattern is a configuration error surfaced to the caller;
// the built-in catalog is compiled at init and cannot fail.
func NewWithExtras(extras []config.PatternConfig) (*Classifier, error) {
	c := New()

	for _, extra := range extras {
		if extra.Name == "" {
			return nil, fmt.Errorf("extra pattern without a name")
		}

		tp := TagPattern{
			Name:     extra.Name,
			Category: extra.Category,
			URLs:     extra.URLs,
		}
		for _, p := range extra.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("extra pattern %q: invalid regex %q: %w", extra.Name, p, err)
			}
			tp.Patterns = append(tp.Patterns, re)
		}

		c.tags = append(c.tags, tp)
	}

	return c, nil
}

// Classify detects tags, technologies, and dataLayer events in the
// rendered HTML of a page.
func (c *Classifier) Classify(content string) Result {
	result := Result{
		Tags: make([]string, 0),
	}

	for _, tp := range c.tags {
		if matchesPattern(tp, content) {
			result.Tags = append(result.Tags, tp.Name)
		}
	}

	for _, tp := range c.techs {
		if matchesPattern(tp, content) {
			result.Technologies = append(result.Technologies, tp.Name)
		}
	}

	result.DataLayerEvents = extractDataLayerEvents(content)
	return result
}

// Category returns the category of a tag identifier, or empty string
// for unknown tags.
func (c *Classifier) Category(tag string) string {
	for _, tp := range c.tags {
		if tp.Name == tag {
			return tp.Category
		}
	}
	for _, tp := range c.techs {
		if tp.Name == tag {
			return tp.Category
		}
	}
	return ""
}

// matchesPattern reports whether any of the pattern's regexes or URL
// substrings occur in the content.
func matchesPattern(tp TagPattern, content string) bool {
	for _, u := range tp.URLs {
		if strings.Contains(content, u) {
			return true
		}
	}
	for _, re := range tp.Patterns {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}
