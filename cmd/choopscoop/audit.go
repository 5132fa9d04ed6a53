package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JerushaGray/ChoopScoop/internal/classifier"
	"github.com/JerushaGray/ChoopScoop/internal/config"
	"github.com/JerushaGray/ChoopScoop/internal/crawler"
	"github.com/JerushaGray/ChoopScoop/internal/fetcher"
	"github.com/JerushaGray/ChoopScoop/internal/frontier"
	"github.com/JerushaGray/ChoopScoop/internal/log"
	"github.com/JerushaGray/ChoopScoop/internal/model"
	"github.com/JerushaGray/ChoopScoop/internal/report"
	"github.com/JerushaGray/ChoopScoop/internal/robots"
	"github.com/JerushaGray/ChoopScoop/internal/state"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <url>",
		Short: "Crawl a website and audit its tag coverage",
		Long: `Audit crawls a website with a headless Chrome browser and reports
which marketing and analytics tags are present on each page.

The crawl stays within the seed URL's registrable domain, renders each
page so dynamically injected tags are visible, and classifies the
rendered DOM against a catalog of tag managers, analytics snippets,
advertising pixels, and consent platforms.

Progress is checkpointed per domain. An interrupted audit resumes
automatically on the next run; use --fresh to discard saved progress.

Examples:
  # Audit a site with default settings
  choopscoop audit https://example.com

  # Deeper crawl with more workers and a faster request rate
  choopscoop audit -d 5 -w 6 -r 500ms https://example.com

  # Write a Markdown report to a file
  choopscoop audit --markdown -o report.md https://example.com

  # Discard saved progress and start over
  choopscoop audit --fresh https://example.com

Configuration file (.choopscoop) example:
  sites:
    app.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 5
      excludePatterns:
        - "/logout*"
  extraPatterns:
    - name: acme_beacon
      category: Analytics
      patterns:
        - "ACME-[0-9]{6}"`,
		Args: cobra.ExactArgs(1),
		RunE: runAuditCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seed URL")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl")
	cmd.Flags().IntP("workers", "w", config.DefaultConcurrency,
		"Number of concurrent fetch workers")
	cmd.Flags().DurationP("rate", "r", config.DefaultRateInterval,
		"Minimum interval between any two requests (0 disables pacing)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultFetchTimeout,
		"Timeout for rendering a single page")
	cmd.Flags().String("include", "",
		"Comma-separated URL path glob patterns to restrict the crawl to")
	cmd.Flags().String("exclude", "",
		"Comma-separated URL path glob patterns to skip")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Bool("ignore-robots", false,
		"Do not consult robots.txt before crawling")

	// Resume flags
	cmd.Flags().Bool("fresh", false,
		"Discard saved crawl progress and start over")
	cmd.Flags().String("state-dir", "",
		"Directory for per-domain crawl state (default: XDG data directory)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .choopscoop in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report")
	cmd.Flags().Bool("csv", false,
		"Output CSV report (one row per page)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildAuditConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	cfg.Sanitize(logger)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Graceful shutdown: first signal cancels the crawl and lets the
	// workers drain; a second signal kills the process the usual way.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, finishing in-flight pages...")
		cancel()
		signal.Stop(sigCh)
	}()

	return runAudit(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildAuditConfig creates a Config from cobra command flags.
func buildAuditConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.SeedURL = args[0]
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}
	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}
	cfg.Concurrency, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}
	cfg.RateInterval, err = cmd.Flags().GetDuration("rate")
	if err != nil {
		return nil, err
	}
	cfg.FetchTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	include, err := cmd.Flags().GetString("include")
	if err != nil {
		return nil, err
	}
	cfg.IncludePatterns = splitPatterns(include)

	exclude, err := cmd.Flags().GetString("exclude")
	if err != nil {
		return nil, err
	}
	cfg.ExcludePatterns = splitPatterns(exclude)

	ignoreRobots, err := cmd.Flags().GetBool("ignore-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !ignoreRobots

	cfg.Fresh, err = cmd.Flags().GetBool("fresh")
	if err != nil {
		return nil, err
	}

	stateDir, err := cmd.Flags().GetString("state-dir")
	if err != nil {
		return nil, err
	}
	if stateDir != "" {
		cfg.StateDir = stateDir
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}

	cfg.OutputJSON, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.OutputCSV, err = cmd.Flags().GetBool("csv")
	if err != nil {
		return nil, err
	}
	cfg.OutputMarkdown, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSiteConfigs loads the optional .choopscoop file. An explicitly
// given path must exist; the default search locations may be absent.
func loadSiteConfigs(cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)

	if path == "" {
		if explicit {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	cfg.SiteConfigs = file
	return nil
}

// splitPatterns splits a comma-separated flag value into patterns.
func splitPatterns(value string) []string {
	if value == "" {
		return nil
	}
	var patterns []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// runAudit executes the audit.
func runAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Fail before any state is touched if Chrome is unavailable.
	browserPath, err := fetcher.LookupBrowser()
	if err != nil {
		return fmt.Errorf("%w (install Chrome or Chromium to run audits)", err)
	}
	logger.Debug("browser found", "path", browserPath)

	seed, err := url.Parse(cfg.SeedURL)
	if err != nil {
		return fmt.Errorf("invalid seed URL %q: %w", cfg.SeedURL, err)
	}
	site := applySiteConfig(cfg, seed.Hostname())

	scope, err := frontier.NewScope(cfg.SeedURL, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return fmt.Errorf("invalid seed URL %q: %w", cfg.SeedURL, err)
	}

	if cfg.RespectRobots {
		checker, err := robots.Fetch(ctx, nil, cfg.SeedURL, cfg.UserAgent)
		if err != nil {
			return err
		}
		scope.SetRobots(checker)
	}

	domainKey := state.DomainKey(scope.Domain())
	store, err := openStateStore(cfg, domainKey, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	fr := frontier.New(scope, cfg.MaxDepth)
	resumed, crawled, failed, err := prepareState(ctx, cfg, store, fr, domainKey, logger)
	if err != nil {
		return err
	}

	cls, err := buildClassifier(cfg)
	if err != nil {
		return err
	}

	renderer := fetcher.NewChromedpRenderer(fetcher.Options{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
		Sessions:  cfg.Concurrency,
		Cookie:    site.Cookie,
		Headers:   site.Headers,
	}, logger)

	coord, err := crawler.New(cfg, renderer,
		crawler.WithFrontier(fr),
		crawler.WithDomainKey(domainKey),
		crawler.WithCheckpointer(store),
		crawler.WithClassifier(cls),
		crawler.WithResumedCounts(crawled, failed),
		crawler.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if resumed {
		fmt.Printf("Resuming audit of %s (%d pages already crawled)...\n", scope.Domain(), crawled)
	} else {
		fmt.Printf("Auditing %s...\n", scope.Domain())
	}

	startedAt := time.Now()
	if err := coord.Run(ctx); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	records, err := coord.Buffer().DrainAll()
	if err != nil {
		return fmt.Errorf("failed to collect results: %w", err)
	}

	auditReport := model.NewAuditReport(scope.Domain(), cfg.SeedURL, records)
	auditReport.StartedAt = startedAt
	auditReport.FinishedAt = time.Now()
	auditReport.PagesFailed = coord.Failed()
	auditReport.Resumed = resumed
	auditReport.Interrupted = coord.Interrupted()

	if err := outputReport(cfg, auditReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if auditReport.Interrupted {
		fmt.Fprintf(os.Stderr, "\nAudit interrupted; run the same command again to resume.\n")
		return nil
	}

	// The crawl ran to completion: record it in the history and clear
	// the resume state so the next run starts fresh.
	if err := store.RecordAudit(ctx, auditReport); err != nil {
		logger.Warn("failed to record audit history", "error", err)
	}
	if err := store.Clear(context.Background()); err != nil {
		logger.Warn("failed to clear crawl state", "error", err)
	}
	if err := os.Remove(state.PartialResultsPath(cfg.StateDir, domainKey)); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove partial results file", "error", err)
	}

	elapsed := auditReport.FinishedAt.Sub(startedAt)
	fmt.Printf("\nAudit completed in %s\n", elapsed.Round(time.Millisecond))
	return nil
}

// openStateStore opens the domain's state database. A damaged database
// file is treated like absent state: the file is discarded with a
// warning and a fresh database is created, so a corrupted resume never
// aborts an audit.
func openStateStore(cfg *config.Config, domainKey string, logger *slog.Logger) (*state.Store, error) {
	store, err := state.Open(cfg.StateDir, domainKey, state.DefaultOptions())
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, state.ErrCorruptState) {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	logger.Warn("state database is corrupt, starting fresh",
		"domain_key", domainKey, "error", err)

	dbPath := state.DatabasePath(cfg.StateDir, domainKey)
	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm",
		state.PartialResultsPath(cfg.StateDir, domainKey)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove corrupt state file %s: %w", path, err)
		}
	}

	store, err = state.Open(cfg.StateDir, domainKey, state.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}

// applySiteConfig merges the seed host's config file entry into the
// crawl configuration and returns it for renderer wiring.
func applySiteConfig(cfg *config.Config, host string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	site := cfg.SiteConfigs.GetSiteConfig(host)

	if site.Depth > 0 {
		cfg.MaxDepth = site.Depth
	}
	if len(site.IncludePatterns) > 0 {
		cfg.IncludePatterns = append(cfg.IncludePatterns, site.IncludePatterns...)
	}
	if len(site.ExcludePatterns) > 0 {
		cfg.ExcludePatterns = append(cfg.ExcludePatterns, site.ExcludePatterns...)
	}
	return site
}

// prepareState loads or discards saved crawl progress. It returns
// whether the crawl resumes and the resumed counters.
func prepareState(ctx context.Context, cfg *config.Config, store *state.Store, fr *frontier.Frontier, domainKey string, logger *slog.Logger) (resumed bool, crawled, failed int, err error) {
	discard := func() error {
		if err := store.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear crawl state: %w", err)
		}
		partial := state.PartialResultsPath(cfg.StateDir, domainKey)
		if err := os.Remove(partial); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove partial results: %w", err)
		}
		return nil
	}

	if cfg.Fresh {
		logger.Info("discarding saved crawl state", "domain_key", domainKey)
		return false, 0, 0, discard()
	}

	st, err := store.Load(ctx)
	switch {
	case errors.Is(err, state.ErrNoState):
		return false, 0, 0, nil
	case errors.Is(err, state.ErrCorruptState):
		logger.Warn("saved crawl state is corrupt, starting fresh",
			"domain_key", domainKey, "error", err)
		return false, 0, 0, discard()
	case err != nil:
		return false, 0, 0, fmt.Errorf("failed to load crawl state: %w", err)
	}

	if st.IsEmpty() {
		return false, 0, 0, nil
	}

	fr.Restore(st)
	logger.Info("resuming saved crawl",
		"domain_key", domainKey,
		"visited", len(st.Visited),
		"pending", len(st.Pending),
	)
	return true, st.CrawledCount, st.FailedCount, nil
}

// buildClassifier creates the classifier, extended with any
// user-supplied patterns from the config file.
func buildClassifier(cfg *config.Config) (*classifier.Classifier, error) {
	if cfg.SiteConfigs == nil || len(cfg.SiteConfigs.ExtraPatterns) == 0 {
		return classifier.New(), nil
	}
	cls, err := classifier.NewWithExtras(cfg.SiteConfigs.ExtraPatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid extra pattern in config file: %w", err)
	}
	return cls, nil
}

// outputReport writes the audit report in the requested format.
func outputReport(cfg *config.Config, auditReport *model.AuditReport) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain URLs of authenticated pages; keep them
		// readable by the owner only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.OutputJSON:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.OutputCSV:
		writer = report.NewCSVWriter(output)
	case cfg.OutputMarkdown:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSummaryWriter(output)
	}

	_, err := writer.Write(auditReport)
	return err
}
