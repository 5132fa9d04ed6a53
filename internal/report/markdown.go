package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// MarkdownWriter outputs reports in Markdown format, designed for
// sharing audit results in documentation and review threads.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeTagCoverage(md, report)
	w.writeTechnologies(md, report)
	w.writeGaps(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with audit information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1("Tag Audit Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Domain", "`" + report.Domain + "`"},
			{"Seed URL", "`" + report.SeedURL + "`"},
			{"Audit Date", report.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages Crawled", strconv.Itoa(report.PagesCrawled)},
			{"Pages Failed", strconv.Itoa(report.PagesFailed)},
			{"Status", w.statusText(report)},
		},
	})
	md.PlainText("")
}

// statusText summarizes how the audit run ended.
func (w *MarkdownWriter) statusText(report *model.AuditReport) string {
	switch {
	case report.Interrupted:
		return "⚠️ Interrupted (partial results)"
	case report.Resumed:
		return "✅ Complete (resumed run)"
	default:
		return "✅ Complete"
	}
}

// writeTagCoverage writes the per-tag coverage table and distribution
// chart.
func (w *MarkdownWriter) writeTagCoverage(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Tag Coverage")
	md.PlainText("")

	tags := report.TagsByCoverage()
	if len(tags) == 0 {
		md.Caution("No tracking tags were detected on any crawled page.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(tags))
	for i, tag := range tags {
		pages := report.TagCoverage[tag]
		coverage := "-"
		if report.PagesCrawled > 0 {
			coverage = fmt.Sprintf("%.0f%%", 100*float64(pages)/float64(report.PagesCrawled))
		}
		rows[i] = []string{tag, strconv.Itoa(pages), coverage}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Tag", "Pages", "Coverage"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, report, tags)
}

// writePieChart writes a mermaid pie chart of the tag distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.AuditReport, tags []string) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Tag Page Coverage"),
		piechart.WithShowData(true),
	)
	for _, tag := range tags {
		chart.LabelAndIntValue(tag, uint64(report.TagCoverage[tag]))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeTechnologies writes the detected technologies section.
func (w *MarkdownWriter) writeTechnologies(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Detected Technologies")
	md.PlainText("")

	if len(report.TechnologyCoverage) == 0 {
		md.PlainText("No known technologies detected.")
		md.PlainText("")
		return
	}

	items := make([]string, 0, len(report.TechnologyCoverage))
	for _, tech := range sortedKeys(report.TechnologyCoverage) {
		items = append(items, fmt.Sprintf("%s (%d pages)", tech, report.TechnologyCoverage[tech]))
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeGaps highlights pages where the most widespread tag is missing.
// A tag present on most pages but absent from a few usually indicates a
// broken template or an untagged landing page.
func (w *MarkdownWriter) writeGaps(md *markdown.Markdown, report *model.AuditReport) {
	tags := report.TagsByCoverage()
	if len(tags) == 0 || report.PagesCrawled == 0 {
		return
	}

	top := tags[0]
	missing := report.PagesMissingTag(top)
	if len(missing) == 0 {
		md.Tip(fmt.Sprintf("`%s` is present on every crawled page.", top))
		md.PlainText("")
		return
	}

	md.H2("Coverage Gaps")
	md.PlainText("")
	md.Warningf("`%s` is missing on %d of %d pages:", top, len(missing), report.PagesCrawled)
	md.PlainText("")

	const maxListed = 25
	listed := missing
	if len(listed) > maxListed {
		listed = listed[:maxListed]
	}
	items := make([]string, len(listed))
	for i, u := range listed {
		items[i] = "`" + u + "`"
	}
	md.BulletList(items...)
	if len(missing) > maxListed {
		md.PlainTextf("... and %d more", len(missing)-maxListed)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [ChoopScoop](https://github.com/JerushaGray/ChoopScoop)*")
}
