package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JerushaGray/ChoopScoop/internal/buffer"
	"github.com/JerushaGray/ChoopScoop/internal/classifier"
	"github.com/JerushaGray/ChoopScoop/internal/config"
	"github.com/JerushaGray/ChoopScoop/internal/fetcher"
	"github.com/JerushaGray/ChoopScoop/internal/frontier"
	"github.com/JerushaGray/ChoopScoop/internal/governor"
	"github.com/JerushaGray/ChoopScoop/internal/model"
	"github.com/JerushaGray/ChoopScoop/internal/state"
)

// pollInterval is how long an idle worker waits before re-checking the
// frontier when other workers still have URLs in flight.
const pollInterval = 25 * time.Millisecond

// finalSaveTimeout bounds the state save that runs after the worker
// pool has drained, including after cancellation.
const finalSaveTimeout = 10 * time.Second

// Checkpointer persists crawl snapshots. *state.Store satisfies it.
type Checkpointer interface {
	Save(ctx context.Context, st *model.CrawlState) error
}

// Coordinator drives one audit crawl: it owns the worker pool and wires
// the frontier, rate governor, renderer, classifier, and result buffer
// together.
//
// Design decision: workers pull from the shared frontier rather than
// being handed partitioned work. The frontier's atomic dequeue makes
// the pull loop trivially correct, and idle workers cost only a short
// poll while deeper pages are still being discovered.
type Coordinator struct {
	cfg      *config.Config
	renderer fetcher.Renderer

	frontier   *frontier.Frontier
	governor   *governor.Governor
	buffer     *buffer.Buffer
	classifier *classifier.Classifier
	store      Checkpointer

	domainKey string
	seedURL   string
	logger    *slog.Logger

	mu              sync.Mutex
	crawled         int
	failed          int
	sinceCheckpoint int
	interrupted     bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithFrontier replaces the frontier built from the configuration.
// Used by resume paths that restore a saved frontier, and by tests.
func WithFrontier(f *frontier.Frontier) Option {
	return func(c *Coordinator) { c.frontier = f }
}

// WithGovernor replaces the rate governor built from the configuration.
func WithGovernor(g *governor.Governor) Option {
	return func(c *Coordinator) { c.governor = g }
}

// WithBuffer replaces the result buffer built from the configuration.
func WithBuffer(b *buffer.Buffer) Option {
	return func(c *Coordinator) { c.buffer = b }
}

// WithClassifier replaces the default pattern classifier.
func WithClassifier(cl *classifier.Classifier) Option {
	return func(c *Coordinator) { c.classifier = cl }
}

// WithCheckpointer sets the store that receives periodic and final
// crawl snapshots. Without one the crawl runs without persistence.
func WithCheckpointer(s Checkpointer) Option {
	return func(c *Coordinator) { c.store = s }
}

// WithDomainKey overrides the domain key derived from the seed URL.
func WithDomainKey(key string) Option {
	return func(c *Coordinator) { c.domainKey = key }
}

// WithResumedCounts seeds the crawl counters from a restored state so
// the page budget and saved snapshots account for earlier runs.
func WithResumedCounts(crawled, failed int) Option {
	return func(c *Coordinator) {
		c.crawled = crawled
		c.failed = failed
	}
}

// WithLogger sets the coordinator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// New creates a Coordinator for the configured crawl. Components not
// supplied via options are built from the configuration.
func New(cfg *config.Config, renderer fetcher.Renderer, opts ...Option) (*Coordinator, error) {
	if cfg == nil {
		return nil, errors.New("crawler: nil config")
	}
	if renderer == nil {
		return nil, errors.New("crawler: nil renderer")
	}

	c := &Coordinator{
		cfg:      cfg,
		renderer: renderer,
		seedURL:  cfg.SeedURL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.frontier == nil {
		scope, err := frontier.NewScope(cfg.SeedURL, cfg.IncludePatterns, cfg.ExcludePatterns)
		if err != nil {
			return nil, fmt.Errorf("crawler: %w", err)
		}
		c.frontier = frontier.New(scope, cfg.MaxDepth)
		if c.domainKey == "" {
			c.domainKey = state.DomainKey(scope.Domain())
		}
	}
	if c.governor == nil {
		c.governor = governor.New(cfg.RateInterval)
	}
	if c.buffer == nil {
		path := state.PartialResultsPath(cfg.StateDir, c.domainKey)
		c.buffer = buffer.New(path, cfg.FlushThreshold, c.logger)
	}
	if c.classifier == nil {
		c.classifier = classifier.New()
	}

	return c, nil
}

// Run executes the crawl until the frontier drains, the page budget is
// reached, or the context is cancelled. Cancellation is a graceful
// stop, not an error: workers finish their current page, the state is
// saved, and Run returns nil with Interrupted reporting true.
//
// A final state snapshot is saved on every exit path so an interrupted
// or failed run can resume.
func (c *Coordinator) Run(ctx context.Context) error {
	c.frontier.Offer(c.seedURL, 0)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.cfg.Concurrency; i++ {
		g.Go(func() error {
			return c.worker(gctx)
		})
	}
	err := g.Wait()

	if c.store != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
		defer cancel()
		c.saveState(saveCtx)
	}

	c.logger.Info("crawl finished",
		"crawled", c.Crawled(),
		"failed", c.Failed(),
		"pending", c.frontier.PendingCount(),
		"interrupted", c.Interrupted(),
	)
	return err
}

// worker pulls URLs from the frontier until the crawl is done.
func (c *Coordinator) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.setInterrupted()
			return nil
		default:
		}

		if c.budgetReached() {
			return nil
		}

		item, err := c.frontier.Next()
		if err != nil {
			if c.frontier.Idle() {
				return nil
			}
			// Another worker may still discover links; wait briefly.
			select {
			case <-ctx.Done():
				c.setInterrupted()
				return nil
			case <-time.After(pollInterval):
			}
			continue
		}

		c.process(ctx, item)
	}
}

// process fetches, classifies, and records a single URL.
func (c *Coordinator) process(ctx context.Context, item frontier.Item) {
	res, err := c.fetchWithRetry(ctx, item.URL)
	if err != nil {
		if ctx.Err() != nil {
			// The URL stays in-flight; the final snapshot re-queues it
			// as pending for the next run.
			c.setInterrupted()
			return
		}
		c.logger.Warn("page failed", "url", item.URL, "depth", item.Depth, "error", err)
		if cerr := c.frontier.Complete(item.URL, frontier.OutcomeFailed); cerr != nil {
			c.logger.Warn("completion bookkeeping failed", "url", item.URL, "error", cerr)
		}
		c.noteCompletion(ctx, false)
		return
	}

	record := c.buildRecord(item, res)
	c.buffer.Push(record)

	for _, link := range record.Links {
		c.frontier.Offer(link, item.Depth+1)
	}

	if cerr := c.frontier.Complete(item.URL, frontier.OutcomeVisited); cerr != nil {
		c.logger.Warn("completion bookkeeping failed", "url", item.URL, "error", cerr)
	}
	c.logger.Debug("page audited",
		"url", item.URL,
		"depth", item.Depth,
		"status", record.StatusCode,
		"tags", len(record.Tags),
		"links", len(record.Links),
	)
	c.noteCompletion(ctx, true)
}

// fetchWithRetry renders a URL, retrying transient failures with a
// doubling backoff. Every attempt passes through the rate governor, so
// retries are paced like any other request.
func (c *Coordinator) fetchWithRetry(ctx context.Context, rawURL string) (*fetcher.Result, error) {
	backoff := c.cfg.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err := c.governor.Acquire(ctx); err != nil {
			return nil, err
		}

		res, err := c.renderer.Render(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		lastErr = err
		c.logger.Debug("fetch attempt failed",
			"url", rawURL,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return nil, lastErr
}

// buildRecord classifies the rendered HTML and assembles the page's
// audit record.
func (c *Coordinator) buildRecord(item frontier.Item, res *fetcher.Result) model.PageRecord {
	cls := c.classifier.Classify(res.HTML)

	record := model.PageRecord{
		URL:             item.URL,
		Depth:           item.Depth,
		StatusCode:      res.StatusCode,
		Title:           res.Title,
		Tags:            cls.Tags,
		Technologies:    cls.Technologies,
		DataLayerEvents: cls.DataLayerEvents,
		Metrics:         res.Metrics,
		FetchedAt:       time.Now(),
	}

	parser, err := NewParser(item.URL)
	if err != nil {
		return record
	}
	parsed, err := parser.Parse(res.HTML)
	if err != nil {
		c.logger.Debug("link extraction failed", "url", item.URL, "error", err)
		return record
	}
	if record.Title == "" {
		record.Title = parsed.Title
	}
	record.Links = parsed.Links
	return record
}

// noteCompletion updates the crawl counters and triggers a periodic
// checkpoint when enough pages have completed since the last one.
func (c *Coordinator) noteCompletion(ctx context.Context, success bool) {
	c.mu.Lock()
	if success {
		c.crawled++
	} else {
		c.failed++
	}
	c.sinceCheckpoint++
	checkpoint := c.store != nil &&
		c.cfg.CheckpointEvery > 0 &&
		c.sinceCheckpoint >= c.cfg.CheckpointEvery
	if checkpoint {
		c.sinceCheckpoint = 0
	}
	c.mu.Unlock()

	if checkpoint {
		c.saveState(ctx)
	}
}

// saveState snapshots the frontier and persists it with the current
// counters. Save failures are logged, not fatal: losing a checkpoint
// costs re-crawling at most CheckpointEvery pages.
func (c *Coordinator) saveState(ctx context.Context) {
	st := c.frontier.Snapshot()
	st.DomainKey = c.domainKey
	st.SeedURL = c.seedURL

	c.mu.Lock()
	st.CrawledCount = c.crawled
	st.FailedCount = c.failed
	c.mu.Unlock()

	if err := c.store.Save(ctx, st); err != nil {
		c.logger.Warn("state checkpoint failed", "domain_key", c.domainKey, "error", err)
	}
}

// budgetReached reports whether the page budget is exhausted. Only
// successful pages count against the budget.
func (c *Coordinator) budgetReached() bool {
	if c.cfg.MaxPages <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.crawled >= c.cfg.MaxPages
}

func (c *Coordinator) setInterrupted() {
	c.mu.Lock()
	c.interrupted = true
	c.mu.Unlock()
}

// Crawled returns the number of pages fetched successfully.
func (c *Coordinator) Crawled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.crawled
}

// Failed returns the number of pages that exhausted their retries.
func (c *Coordinator) Failed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// Interrupted reports whether the crawl was stopped by cancellation
// rather than running to completion.
func (c *Coordinator) Interrupted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interrupted
}

// Frontier exposes the coordinator's frontier for resume wiring.
func (c *Coordinator) Frontier() *frontier.Frontier {
	return c.frontier
}

// Buffer exposes the coordinator's result buffer for report assembly.
func (c *Coordinator) Buffer() *buffer.Buffer {
	return c.buffer
}
