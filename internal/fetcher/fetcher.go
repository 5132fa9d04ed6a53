package fetcher

import (
	"context"
	"errors"
	"os/exec"

	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// ErrNoBrowser is returned when no Chrome or Chromium binary can be
// found on the host.
var ErrNoBrowser = errors.New("fetcher: no chrome or chromium binary found in PATH")

// Result holds the outcome of rendering a single page.
type Result struct {
	// StatusCode is the HTTP status of the main document response.
	// Zero when the navigation produced no network response.
	StatusCode int
	// HTML is the serialized DOM after JavaScript execution settled.
	HTML string
	// Title is the document title after rendering.
	Title string
	// Metrics records how long navigation and rendering took.
	Metrics model.PageMetrics
}

// Renderer fetches a URL and returns its rendered DOM.
//
// Implementations must be safe for concurrent use; the crawl
// coordinator calls Render from multiple workers.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (*Result, error)
}

// browserBinaries lists the executable names probed by LookupBrowser,
// most common first.
var browserBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
}

// LookupBrowser reports the path of the first Chrome or Chromium binary
// found in PATH. It returns ErrNoBrowser when none is available, which
// lets the caller fail before any crawl state is touched.
func LookupBrowser() (string, error) {
	for _, name := range browserBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNoBrowser
}
