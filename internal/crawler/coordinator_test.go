package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/JerushaGray/ChoopScoop/internal/buffer"
	"github.com/JerushaGray/ChoopScoop/internal/config"
	"github.com/JerushaGray/ChoopScoop/internal/fetcher"
	"github.com/JerushaGray/ChoopScoop/internal/frontier"
	"github.com/JerushaGray/ChoopScoop/internal/governor"
	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// fakeRenderer serves canned HTML keyed by normalized URL and counts
// how often each URL is rendered.
type fakeRenderer struct {
	mu    sync.Mutex
	pages map[string]string
	// failures maps a URL to how many render calls fail before one
	// succeeds. A negative value fails forever.
	failures map[string]int
	calls    map[string]int
}

func newFakeRenderer(pages map[string]string) *fakeRenderer {
	return &fakeRenderer{
		pages:    pages,
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (f *fakeRenderer) Render(ctx context.Context, rawURL string) (*fetcher.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls[rawURL]++
	remaining := f.failures[rawURL]
	if remaining != 0 {
		if remaining > 0 {
			f.failures[rawURL] = remaining - 1
		}
		f.mu.Unlock()
		return nil, errors.New("render failed")
	}
	html, ok := f.pages[rawURL]
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no page for %s", rawURL)
	}
	return &fetcher.Result{
		StatusCode: 200,
		HTML:       html,
		Metrics:    model.PageMetrics{NavigationTime: time.Millisecond},
	}, nil
}

func (f *fakeRenderer) callCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[rawURL]
}

// fakeStore records the most recent saved state.
type fakeStore struct {
	mu    sync.Mutex
	last  *model.CrawlState
	saves int
}

func (s *fakeStore) Save(_ context.Context, st *model.CrawlState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = st
	s.saves++
	return nil
}

func (s *fakeStore) lastState() *model.CrawlState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func testConfig(t *testing.T, seed string) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.SeedURL = seed
	cfg.Concurrency = 2
	cfg.RateInterval = 0
	cfg.MaxDepth = 3
	cfg.MaxPages = 100
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond
	cfg.FlushThreshold = 100
	cfg.CheckpointEvery = 0
	cfg.StateDir = t.TempDir()
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// sitePages builds a four page site: the seed links to /b and /c, /b
// links back to the seed and on to /d, /c links to /b again.
func sitePages() map[string]string {
	return map[string]string{
		"https://example.com/": `<title>Home</title>
			<a href="/b">B</a><a href="/c">C</a>
			<script src="https://www.googletagmanager.com/gtm.js?id=GTM-TEST123"></script>`,
		"https://example.com/b": `<title>B</title><a href="/">Home</a><a href="/d">D</a>`,
		"https://example.com/c": `<title>C</title><a href="/b">B</a>`,
		"https://example.com/d": `<title>D</title>`,
	}
}

func TestCoordinatorCrawlsSiteOnce(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer(sitePages())
	cfg := testConfig(t, "https://example.com")

	c, err := New(cfg, renderer, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Crawled() != 4 {
		t.Errorf("crawled = %d, want 4", c.Crawled())
	}
	if c.Failed() != 0 {
		t.Errorf("failed = %d, want 0", c.Failed())
	}
	if c.Interrupted() {
		t.Error("crawl should not report interrupted")
	}

	for u := range sitePages() {
		if got := renderer.callCount(u); got != 1 {
			t.Errorf("%s rendered %d times, want exactly once", u, got)
		}
	}

	records, err := c.Buffer().DrainAll()
	if err != nil {
		t.Fatalf("DrainAll failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("records = %d, want 4", len(records))
	}

	var home *model.PageRecord
	for i := range records {
		if records[i].URL == "https://example.com/" {
			home = &records[i]
		}
	}
	if home == nil {
		t.Fatal("no record for the seed page")
	}
	if home.Depth != 0 {
		t.Errorf("seed depth = %d, want 0", home.Depth)
	}
	if !home.HasTag("google_tag_manager") {
		t.Errorf("seed tags = %v, want google_tag_manager", home.Tags)
	}
	if home.Title != "Home" {
		t.Errorf("seed title = %q, want Home", home.Title)
	}
}

func TestCoordinatorRespectsMaxDepth(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer(map[string]string{
		"https://example.com/":       `<a href="/level1">1</a>`,
		"https://example.com/level1": `<a href="/level2">2</a>`,
		"https://example.com/level2": `<a href="/level3">3</a>`,
		"https://example.com/level3": `deep`,
	})
	cfg := testConfig(t, "https://example.com")
	cfg.MaxDepth = 1

	c, err := New(cfg, renderer, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Crawled() != 2 {
		t.Errorf("crawled = %d, want seed plus one level", c.Crawled())
	}
	if renderer.callCount("https://example.com/level2") != 0 {
		t.Error("level2 should never be fetched at max depth 1")
	}
}

func TestCoordinatorScopeAndDepthEndToEnd(t *testing.T) {
	t.Parallel()

	// Seed links to /b and an excluded page; /b links to /d, which is
	// one level past the depth budget.
	renderer := newFakeRenderer(map[string]string{
		"https://example.com/":           `<a href="/b">B</a><a href="/private/c">C</a><a href="https://other-domain.com/cross">X</a>`,
		"https://example.com/b":          `<a href="/d">D</a>`,
		"https://example.com/private/c":  `hidden`,
		"https://example.com/d":          `deep`,
		"https://other-domain.com/cross": `off site`,
	})
	cfg := testConfig(t, "https://example.com")
	cfg.MaxDepth = 1
	cfg.ExcludePatterns = []string{"/private/*"}

	c, err := New(cfg, renderer, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Crawled() != 2 {
		t.Errorf("crawled = %d, want seed plus /b", c.Crawled())
	}
	if renderer.callCount("https://example.com/private/c") != 0 {
		t.Error("excluded page should never be fetched")
	}
	if renderer.callCount("https://example.com/d") != 0 {
		t.Error("page past the depth budget should never be fetched")
	}
	if renderer.callCount("https://other-domain.com/cross") != 0 {
		t.Error("off-domain link should never be fetched")
	}
	if !c.Frontier().Idle() {
		t.Error("frontier should be drained at crawl end")
	}
}

func TestCoordinatorRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer(map[string]string{
		"https://example.com/": `<title>Home</title>`,
	})
	renderer.failures["https://example.com/"] = 2

	cfg := testConfig(t, "https://example.com")
	c, err := New(cfg, renderer, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Crawled() != 1 || c.Failed() != 0 {
		t.Errorf("crawled=%d failed=%d, want success after retries", c.Crawled(), c.Failed())
	}
	if got := renderer.callCount("https://example.com/"); got != 3 {
		t.Errorf("render calls = %d, want 3", got)
	}
}

func TestCoordinatorExhaustedRetriesRecordFailure(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer(map[string]string{
		"https://example.com/":     `<a href="/gone">gone</a>`,
		"https://example.com/gone": ``,
	})
	renderer.failures["https://example.com/gone"] = -1

	cfg := testConfig(t, "https://example.com")
	c, err := New(cfg, renderer, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Crawled() != 1 {
		t.Errorf("crawled = %d, want 1", c.Crawled())
	}
	if c.Failed() != 1 {
		t.Errorf("failed = %d, want 1", c.Failed())
	}
	// MaxRetries 2 means 3 attempts total.
	if got := renderer.callCount("https://example.com/gone"); got != 3 {
		t.Errorf("render calls = %d, want 3", got)
	}

	records, err := c.Buffer().DrainAll()
	if err != nil {
		t.Fatalf("DrainAll failed: %v", err)
	}
	for _, r := range records {
		if r.URL == "https://example.com/gone" {
			t.Error("failed page must not produce a record")
		}
	}
}

func TestCoordinatorGlobalRatePacing(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"https://example.com/": `<a href="/p1">1</a><a href="/p2">2</a><a href="/p3">3</a><a href="/p4">4</a>`,
	}
	for i := 1; i <= 4; i++ {
		pages[fmt.Sprintf("https://example.com/p%d", i)] = "leaf"
	}
	renderer := newFakeRenderer(pages)

	const interval = 20 * time.Millisecond
	cfg := testConfig(t, "https://example.com")
	cfg.Concurrency = 3
	cfg.RateInterval = interval

	c, err := New(cfg, renderer,
		WithGovernor(governor.New(interval)),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	start := time.Now()
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	elapsed := time.Since(start)

	if c.Crawled() != 5 {
		t.Fatalf("crawled = %d, want 5", c.Crawled())
	}
	// Five fetches through a shared gate need at least four full
	// intervals regardless of worker count.
	if min := 4 * interval; elapsed < min {
		t.Errorf("elapsed = %v, want at least %v", elapsed, min)
	}
}

func TestCoordinatorPageBudget(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer(sitePages())
	cfg := testConfig(t, "https://example.com")
	cfg.Concurrency = 1
	cfg.MaxPages = 2

	c, err := New(cfg, renderer, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Crawled() != 2 {
		t.Errorf("crawled = %d, want exactly the page budget", c.Crawled())
	}
}

func TestCoordinatorSavesStateAndResumes(t *testing.T) {
	t.Parallel()

	pages := sitePages()
	store := &fakeStore{}

	firstRenderer := newFakeRenderer(pages)
	cfg := testConfig(t, "https://example.com")
	cfg.Concurrency = 1
	cfg.MaxPages = 2

	first, err := New(cfg, firstRenderer,
		WithCheckpointer(store),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := first.Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	saved := store.lastState()
	if saved == nil {
		t.Fatal("no state saved after first run")
	}
	if saved.CrawledCount != 2 {
		t.Fatalf("saved crawled count = %d, want 2", saved.CrawledCount)
	}
	if len(saved.Pending) == 0 {
		t.Fatal("expected pending URLs in the saved state")
	}

	// Second run restores the saved frontier and finishes the site.
	secondRenderer := newFakeRenderer(pages)
	cfg2 := testConfig(t, "https://example.com")
	cfg2.Concurrency = 1

	scope, err := frontier.NewScope(cfg2.SeedURL, nil, nil)
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}
	restored := frontier.New(scope, cfg2.MaxDepth)
	restored.Restore(saved)

	second, err := New(cfg2, secondRenderer,
		WithFrontier(restored),
		WithCheckpointer(store),
		WithResumedCounts(saved.CrawledCount, saved.FailedCount),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := second.Run(context.Background()); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if second.Crawled() != 4 {
		t.Errorf("total crawled after resume = %d, want 4", second.Crawled())
	}
	for u := range pages {
		total := firstRenderer.callCount(u) + secondRenderer.callCount(u)
		if total > 1 {
			t.Errorf("%s fetched %d times across both runs, want at most once", u, total)
		}
	}

	final := store.lastState()
	if len(final.Pending) != 0 {
		t.Errorf("final state pending = %v, want empty", final.Pending)
	}
	if len(final.Visited) != 4 {
		t.Errorf("final visited = %d, want 4", len(final.Visited))
	}
}

func TestCoordinatorCancellationIsGraceful(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer(sitePages())
	store := &fakeStore{}
	cfg := testConfig(t, "https://example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := New(cfg, renderer,
		WithCheckpointer(store),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run returned error on cancellation: %v", err)
	}

	if !c.Interrupted() {
		t.Error("cancelled crawl should report interrupted")
	}
	if store.lastState() == nil {
		t.Error("state must be saved even when cancelled")
	}
}

func TestCoordinatorBufferFlushesToPartialFile(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer(sitePages())
	cfg := testConfig(t, "https://example.com")

	partial := filepath.Join(cfg.StateDir, "example.com.partial.json")
	buf := buffer.New(partial, 2, quietLogger())

	c, err := New(cfg, renderer,
		WithBuffer(buf),
		WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Threshold 2 with 4 pages leaves at most one unflushed record in
	// memory before the drain.
	if buf.Len() > 1 {
		t.Errorf("in-memory records = %d, want threshold to have flushed", buf.Len())
	}
	records, err := buf.DrainAll()
	if err != nil {
		t.Fatalf("DrainAll failed: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("records = %d, want 4", len(records))
	}
}
