package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// Options configures the headless Chrome rendering pipeline.
type Options struct {
	// Timeout bounds a single render, navigation included.
	Timeout time.Duration
	// UserAgent overrides the browser default when non-empty.
	UserAgent string
	// Sessions caps how many Chrome sessions run at once.
	Sessions int
	// Cookie is sent verbatim as the Cookie request header.
	Cookie string
	// Headers holds extra request headers applied to every navigation.
	Headers map[string]string
	// SettleDelay is how long to wait after DOM ready before capturing
	// the page, giving late tag injections time to land.
	SettleDelay time.Duration
}

// ChromedpRenderer renders pages with headless Chrome via chromedp.
// A session semaphore bounds concurrent browser instances independently
// of the crawl worker count.
type ChromedpRenderer struct {
	opts      Options
	semaphore chan struct{}
	logger    *slog.Logger
}

// NewChromedpRenderer constructs a renderer with bounded concurrency.
func NewChromedpRenderer(opts Options, logger *slog.Logger) *ChromedpRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.Sessions <= 0 {
		opts.Sessions = 1
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 1500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromedpRenderer{
		opts:      opts,
		semaphore: make(chan struct{}, opts.Sessions),
		logger:    logger,
	}
}

// Render navigates to rawURL, waits for the document to settle, and
// returns the rendered DOM with timing metrics.
func (r *ChromedpRenderer) Render(parentCtx context.Context, rawURL string) (*Result, error) {
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-parentCtx.Done():
		return nil, parentCtx.Err()
	}

	ctx, cancel := context.WithTimeout(parentCtx, r.opts.Timeout)
	defer cancel()

	execOpts := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	}
	if ua := strings.TrimSpace(r.opts.UserAgent); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	defer allocCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	// Events arrive on chromedp's own goroutine; the mutex orders the
	// write against the read after Run returns.
	var statusMu sync.Mutex
	var statusCode int
	chromedp.ListenTarget(chromeCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		statusMu.Lock()
		if statusCode == 0 {
			statusCode = int(resp.Response.Status)
		}
		statusMu.Unlock()
	})

	start := time.Now()
	var navigated time.Time
	var html, title string

	actions := []chromedp.Action{network.Enable()}
	if headers := r.extraHeaders(); len(headers) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	actions = append(actions,
		chromedp.Navigate(rawURL),
		waitForDocumentReady(),
		chromedp.ActionFunc(func(context.Context) error {
			navigated = time.Now()
			return nil
		}),
		chromedp.Sleep(r.opts.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Title(&title),
	)

	if err := chromedp.Run(chromeCtx, actions...); err != nil {
		return nil, fmt.Errorf("fetcher: render %s: %w", rawURL, err)
	}

	statusMu.Lock()
	finalStatus := statusCode
	statusMu.Unlock()

	result := &Result{
		StatusCode: finalStatus,
		HTML:       html,
		Title:      strings.TrimSpace(title),
		Metrics: model.PageMetrics{
			NavigationTime: navigated.Sub(start),
			RenderTime:     time.Since(navigated),
		},
	}
	r.logger.Debug("page rendered",
		"url", rawURL,
		"status", finalStatus,
		"html_bytes", len(html),
		"total_ms", result.Metrics.TotalTime().Milliseconds(),
	)
	return result, nil
}

func (r *ChromedpRenderer) extraHeaders() network.Headers {
	headers := network.Headers{}
	for k, v := range r.opts.Headers {
		headers[k] = v
	}
	if cookie := strings.TrimSpace(r.opts.Cookie); cookie != "" {
		headers["Cookie"] = cookie
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// waitForDocumentReady polls document.readyState until the page has
// finished loading. chromedp has no built-in action for this.
func waitForDocumentReady() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			var readyState string
			if err := chromedp.Evaluate(`document.readyState`, &readyState).Do(ctx); err != nil {
				return err
			}
			if readyState == "complete" {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
