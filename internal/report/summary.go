package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// SummaryWriter outputs a compact human-readable summary for terminal
// display. It is the default output format.
type SummaryWriter struct {
	baseWriter
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer) *SummaryWriter {
	return &SummaryWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report as plain text.
func (w *SummaryWriter) Write(report *model.AuditReport) (int, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Tag audit for %s\n", report.Domain)
	fmt.Fprintf(&b, "Seed URL:      %s\n", report.SeedURL)
	fmt.Fprintf(&b, "Pages crawled: %d\n", report.PagesCrawled)
	fmt.Fprintf(&b, "Pages failed:  %d\n", report.PagesFailed)
	if report.Resumed {
		fmt.Fprintln(&b, "Resumed from a previous run.")
	}
	if report.Interrupted {
		fmt.Fprintln(&b, "Interrupted: results are partial and the crawl can be resumed.")
	}
	fmt.Fprintln(&b)

	tags := report.TagsByCoverage()
	if len(tags) == 0 {
		fmt.Fprintln(&b, "No tracking tags detected.")
	} else {
		fmt.Fprintln(&b, "Tag coverage:")
		for _, tag := range tags {
			pages := report.TagCoverage[tag]
			pct := 0.0
			if report.PagesCrawled > 0 {
				pct = 100 * float64(pages) / float64(report.PagesCrawled)
			}
			fmt.Fprintf(&b, "  %-28s %4d pages (%3.0f%%)\n", tag, pages, pct)
		}
	}

	if len(report.TechnologyCoverage) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Technologies:")
		for _, tech := range sortedKeys(report.TechnologyCoverage) {
			fmt.Fprintf(&b, "  %-28s %4d pages\n", tech, report.TechnologyCoverage[tech])
		}
	}

	return fmt.Fprint(w.output, b.String())
}

// sortedKeys returns the map's keys in alphabetical order for
// deterministic output.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
