// Package report renders audit results in different output formats.
//
// This package contains writers for the supported formats:
//   - SummaryWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - CSVWriter: Flat per-page rows for spreadsheet analysis
//   - MarkdownWriter: Shareable report for documentation and review
//
// Design decision: We separate report writing from report data
// structures (which live in the model package) so new output formats
// can be added without touching the data collection path. Writers
// implement the Writer interface and can be composed with MultiWriter
// for multi-format output.
package report
