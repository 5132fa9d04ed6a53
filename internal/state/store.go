package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// Store provides SQLite-backed persistence for one domain's crawl
// state and audit history.
//
// Design decision: one database file per domain key rather than one
// shared database with a domain column. Disjoint files make the
// no-cross-crawl-corruption requirement structural instead of relying
// on query discipline, and let users delete one domain's state by
// removing one file.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// domainKey identifies the crawl target this store belongs to.
	domainKey string

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the state database for a domain key under dir.
func Open(dir, domainKey string, opts Options) (*Store, error) {
	dbPath := DatabasePath(dir, domainKey)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("state database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check state database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// SQLite supports only one writer; a single connection avoids
	// SQLITE_BUSY under concurrent checkpoints.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:        db,
		domainKey: domainKey,
		dbPath:    dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			// The PRAGMA only fails when the file on disk is not a
			// usable database.
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		// A schema failure on an existing file usually means the file
		// is not a valid database at all.
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DomainKey returns the domain key this store is bound to.
func (s *Store) DomainKey() string {
	return s.domainKey
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- One row per known URL; position preserves pending dequeue order
	CREATE TABLE IF NOT EXISTS urls (
		url TEXT PRIMARY KEY,
		depth INTEGER NOT NULL,
		status TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_urls_status ON urls(status);

	-- Crawl-level metadata and counters
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Audit history: one row per completed crawl of this domain
	CREATE TABLE IF NOT EXISTS audits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		pages_crawled INTEGER NOT NULL,
		pages_failed INTEGER NOT NULL,
		tag_coverage TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audits_finished ON audits(finished_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Save persists a crawl state snapshot, replacing any previous one.
// The write is transactional: a crash mid-save leaves the prior
// snapshot intact.
func (s *Store) Save(ctx context.Context, st *model.CrawlState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin state save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM urls"); err != nil {
		return fmt.Errorf("failed to clear URL table: %w", err)
	}

	insert, err := tx.PrepareContext(ctx,
		"INSERT INTO urls (url, depth, status, position) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare URL insert: %w", err)
	}
	defer insert.Close()

	pos := 0
	for _, u := range st.Visited {
		if _, err := insert.ExecContext(ctx, u, st.Depths[u], string(model.StatusVisited), pos); err != nil {
			return fmt.Errorf("failed to save visited URL: %w", err)
		}
		pos++
	}
	for _, u := range st.Failed {
		if _, err := insert.ExecContext(ctx, u, st.Depths[u], string(model.StatusFailed), pos); err != nil {
			return fmt.Errorf("failed to save failed URL: %w", err)
		}
		pos++
	}
	for _, p := range st.Pending {
		if _, err := insert.ExecContext(ctx, p.URL, p.Depth, string(model.StatusPending), pos); err != nil {
			return fmt.Errorf("failed to save pending URL: %w", err)
		}
		pos++
	}

	meta := map[string]string{
		"seed_url":      st.SeedURL,
		"crawled_count": strconv.Itoa(st.CrawledCount),
		"failed_count":  strconv.Itoa(st.FailedCount),
		"updated_at":    time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			k, v); err != nil {
			return fmt.Errorf("failed to save meta %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state save: %w", err)
	}
	return nil
}

// Load returns the previously saved crawl state.
// Returns ErrNoState when nothing was saved yet and ErrCorruptState
// when the stored rows fail structural validation.
func (s *Store) Load(ctx context.Context) (*model.CrawlState, error) {
	meta, err := s.loadMeta(ctx)
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, ErrNoState
	}

	st := &model.CrawlState{
		DomainKey: s.domainKey,
		SeedURL:   meta["seed_url"],
		Depths:    make(map[string]int),
	}

	st.CrawledCount, err = strconv.Atoi(meta["crawled_count"])
	if err != nil {
		return nil, fmt.Errorf("%w: bad crawled_count %q", ErrCorruptState, meta["crawled_count"])
	}
	st.FailedCount, err = strconv.Atoi(meta["failed_count"])
	if err != nil {
		return nil, fmt.Errorf("%w: bad failed_count %q", ErrCorruptState, meta["failed_count"])
	}
	if ts, err := time.Parse(time.RFC3339, meta["updated_at"]); err == nil {
		st.UpdatedAt = ts
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT url, depth, status FROM urls ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var (
			u      string
			depth  int
			status string
		)
		if err := rows.Scan(&u, &depth, &status); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		if u == "" || depth < 0 || seen[u] {
			return nil, fmt.Errorf("%w: invalid URL row %q", ErrCorruptState, u)
		}
		seen[u] = true

		switch model.URLStatus(status) {
		case model.StatusVisited:
			st.Visited = append(st.Visited, u)
			st.Depths[u] = depth
		case model.StatusFailed:
			st.Failed = append(st.Failed, u)
			st.Depths[u] = depth
		case model.StatusPending, model.StatusInFlight:
			// In-flight URLs from a crashed run must be revisited.
			st.Pending = append(st.Pending, model.PendingURL{URL: u, Depth: depth})
		default:
			return nil, fmt.Errorf("%w: unknown URL status %q", ErrCorruptState, status)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	return st, nil
}

// loadMeta reads the meta table into a map. Unreadable rows mean the
// database file is damaged.
func (s *Store) loadMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return meta, nil
}

// Clear discards the saved crawl state, keeping audit history.
// Used by the explicit fresh-start option.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM urls"); err != nil {
		return fmt.Errorf("failed to clear URL table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM meta"); err != nil {
		return fmt.Errorf("failed to clear meta table: %w", err)
	}
	return nil
}

// AuditSummary is one row of the audit history.
type AuditSummary struct {
	// ID is the audit's database identifier.
	ID int64

	// StartedAt is when the crawl began.
	StartedAt time.Time

	// FinishedAt is when the crawl terminated.
	FinishedAt time.Time

	// PagesCrawled is the number of pages fetched successfully.
	PagesCrawled int

	// PagesFailed is the number of URLs that exhausted retries.
	PagesFailed int

	// TagCoverage maps tag identifiers to page counts.
	TagCoverage map[string]int
}

// RecordAudit appends a completed crawl's summary to the history.
func (s *Store) RecordAudit(ctx context.Context, report *model.AuditReport) error {
	coverage, err := json.Marshal(report.TagCoverage)
	if err != nil {
		return fmt.Errorf("failed to serialize tag coverage: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO audits (started_at, finished_at, pages_crawled, pages_failed, tag_coverage)
	VALUES (?, ?, ?, ?, ?)`,
		report.StartedAt.UTC().Format(time.RFC3339),
		report.FinishedAt.UTC().Format(time.RFC3339),
		report.PagesCrawled,
		report.PagesFailed,
		string(coverage),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit: %w", err)
	}
	return nil
}

// ListAudits returns the audit history, most recent first.
func (s *Store) ListAudits(ctx context.Context) ([]AuditSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, started_at, finished_at, pages_crawled, pages_failed, tag_coverage
	FROM audits ORDER BY finished_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	defer rows.Close()

	var results []AuditSummary
	for rows.Next() {
		var summary AuditSummary
		var started, finished, coverageJSON string
		if err := rows.Scan(&summary.ID, &started, &finished,
			&summary.PagesCrawled, &summary.PagesFailed, &coverageJSON); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}

		summary.StartedAt = parseTimestamp(started)
		summary.FinishedAt = parseTimestamp(finished)

		if coverageJSON != "" {
			if err := json.Unmarshal([]byte(coverageJSON), &summary.TagCoverage); err != nil {
				summary.TagCoverage = make(map[string]int)
			}
		}

		results = append(results, summary)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts each known format in turn, returning zero
// time if none match.
func parseTimestamp(v string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
