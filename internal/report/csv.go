package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// CSVWriter outputs one row per audited page, for spreadsheet analysis
// and diffing between audit runs.
//
// Multi-valued columns (tags, technologies, events) are joined with
// semicolons so the row count stays one-per-page.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// csvHeader is the column order of the per-page rows.
var csvHeader = []string{
	"url",
	"depth",
	"status_code",
	"title",
	"tags",
	"technologies",
	"data_layer_events",
	"navigation_ms",
	"render_ms",
	"fetched_at",
}

// Write outputs the report's pages as CSV rows.
func (w *CSVWriter) Write(report *model.AuditReport) (int, error) {
	counter := &countingWriter{w: w.output}
	cw := csv.NewWriter(counter)

	if err := cw.Write(csvHeader); err != nil {
		return counter.n, err
	}

	for i := range report.Pages {
		p := &report.Pages[i]
		events := make([]string, len(p.DataLayerEvents))
		for j, ev := range p.DataLayerEvents {
			events[j] = ev.Event
		}

		row := []string{
			p.URL,
			strconv.Itoa(p.Depth),
			strconv.Itoa(p.StatusCode),
			p.Title,
			strings.Join(p.Tags, ";"),
			strings.Join(p.Technologies, ";"),
			strings.Join(events, ";"),
			strconv.FormatInt(p.Metrics.NavigationTime.Milliseconds(), 10),
			strconv.FormatInt(p.Metrics.RenderTime.Milliseconds(), 10),
			p.FetchedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return counter.n, err
		}
	}

	cw.Flush()
	return counter.n, cw.Error()
}

// countingWriter tracks bytes written through it so CSV output can
// satisfy the Writer interface's byte count.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
