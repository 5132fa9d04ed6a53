package state

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// TestDomainKey tests filesystem-safe key derivation.
func TestDomainKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com"},
		{"Example.COM", "example.com"},
		{"sub.example.co.uk", "sub.example.co.uk"},
		{"localhost:8080", "localhost_8080"},
		{"127.0.0.1:9999", "127.0.0.1_9999"},
		{"", "default"},
	}

	for _, tt := range tests {
		if got := DomainKey(tt.in); got != tt.want {
			t.Errorf("DomainKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestStoreSaveLoad tests the save/load round trip.
func TestStoreSaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	store, err := Open(dir, "example.com", DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	saved := &model.CrawlState{
		DomainKey: "example.com",
		SeedURL:   "https://example.com/",
		Visited:   []string{"https://example.com/", "https://example.com/a"},
		Failed:    []string{"https://example.com/broken"},
		Pending: []model.PendingURL{
			{URL: "https://example.com/b", Depth: 1},
			{URL: "https://example.com/c", Depth: 2},
		},
		Depths: map[string]int{
			"https://example.com/":       0,
			"https://example.com/a":      1,
			"https://example.com/broken": 1,
		},
		CrawledCount: 2,
		FailedCount:  1,
	}

	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.SeedURL != saved.SeedURL {
		t.Errorf("seed URL mismatch: %q", loaded.SeedURL)
	}
	if len(loaded.Visited) != 2 || len(loaded.Failed) != 1 {
		t.Errorf("unexpected visited/failed: %v / %v", loaded.Visited, loaded.Failed)
	}
	if loaded.CrawledCount != 2 || loaded.FailedCount != 1 {
		t.Errorf("unexpected counters: %d / %d", loaded.CrawledCount, loaded.FailedCount)
	}
	// Pending order must survive the round trip
	if len(loaded.Pending) != 2 ||
		loaded.Pending[0].URL != "https://example.com/b" ||
		loaded.Pending[1].URL != "https://example.com/c" {
		t.Errorf("pending order not preserved: %v", loaded.Pending)
	}
	if loaded.Depths["https://example.com/a"] != 1 {
		t.Errorf("depth map not preserved: %v", loaded.Depths)
	}

	// A second save replaces the first snapshot
	saved.Visited = append(saved.Visited, "https://example.com/b")
	saved.Pending = saved.Pending[1:]
	saved.CrawledCount = 3
	saved.Depths["https://example.com/b"] = 1
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if len(loaded.Visited) != 3 || len(loaded.Pending) != 1 {
		t.Errorf("snapshot not replaced: %v / %v", loaded.Visited, loaded.Pending)
	}
}

// TestStoreLoadNoState tests ErrNoState on an empty database.
func TestStoreLoadNoState(t *testing.T) {
	t.Parallel()

	store, err := Open(t.TempDir(), "example.com", DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if _, err := store.Load(context.Background()); !errors.Is(err, ErrNoState) {
		t.Errorf("expected ErrNoState, got %v", err)
	}
}

// TestStoreCorruptState tests that damaged stored rows surface as
// ErrCorruptState rather than a crash.
func TestStoreCorruptState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("bad counter value", func(t *testing.T) {
		t.Parallel()

		store, err := Open(t.TempDir(), "example.com", DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		defer store.Close()

		if err := store.Save(ctx, &model.CrawlState{SeedURL: "https://example.com/"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if _, err := store.db.ExecContext(ctx,
			"UPDATE meta SET value = 'not-a-number' WHERE key = 'crawled_count'"); err != nil {
			t.Fatalf("failed to corrupt meta: %v", err)
		}

		if _, err := store.Load(ctx); !errors.Is(err, ErrCorruptState) {
			t.Errorf("expected ErrCorruptState, got %v", err)
		}
	})

	t.Run("unknown URL status", func(t *testing.T) {
		t.Parallel()

		store, err := Open(t.TempDir(), "example.com", DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		defer store.Close()

		if err := store.Save(ctx, &model.CrawlState{
			SeedURL: "https://example.com/",
			Visited: []string{"https://example.com/"},
			Depths:  map[string]int{"https://example.com/": 0},
		}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if _, err := store.db.ExecContext(ctx,
			"UPDATE urls SET status = 'bogus'"); err != nil {
			t.Fatalf("failed to corrupt urls: %v", err)
		}

		if _, err := store.Load(ctx); !errors.Is(err, ErrCorruptState) {
			t.Errorf("expected ErrCorruptState, got %v", err)
		}
	})

	t.Run("file is not a database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := os.WriteFile(DatabasePath(dir, "example.com"), []byte("garbage"), 0600); err != nil {
			t.Fatalf("failed to write garbage file: %v", err)
		}

		_, err := Open(dir, "example.com", DefaultOptions())
		if !errors.Is(err, ErrCorruptState) {
			t.Errorf("expected ErrCorruptState, got %v", err)
		}
	})
}

// TestStoreDisjointDomains tests that two domains use disjoint database
// files and one's writes never appear in the other.
func TestStoreDisjointDomains(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	storeA, err := Open(dir, DomainKey("alpha.com"), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store A: %v", err)
	}
	defer storeA.Close()

	storeB, err := Open(dir, DomainKey("beta.org"), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store B: %v", err)
	}
	defer storeB.Close()

	if storeA.dbPath == storeB.dbPath {
		t.Fatal("different domains share a database file")
	}

	if err := storeA.Save(ctx, &model.CrawlState{
		SeedURL: "https://alpha.com/",
		Visited: []string{"https://alpha.com/"},
		Depths:  map[string]int{"https://alpha.com/": 0},
	}); err != nil {
		t.Fatalf("Save A failed: %v", err)
	}

	if _, err := storeB.Load(ctx); !errors.Is(err, ErrNoState) {
		t.Errorf("store B should be empty, got %v", err)
	}

	loaded, err := storeA.Load(ctx)
	if err != nil {
		t.Fatalf("Load A failed: %v", err)
	}
	if len(loaded.Visited) != 1 || loaded.Visited[0] != "https://alpha.com/" {
		t.Errorf("unexpected state A: %v", loaded.Visited)
	}
}

// TestStoreClear tests the fresh-start path.
func TestStoreClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := Open(t.TempDir(), "example.com", DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.Save(ctx, &model.CrawlState{
		SeedURL: "https://example.com/",
		Visited: []string{"https://example.com/"},
		Depths:  map[string]int{"https://example.com/": 0},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, err := store.Load(ctx); !errors.Is(err, ErrNoState) {
		t.Errorf("expected ErrNoState after Clear, got %v", err)
	}
}

// TestStoreAuditHistory tests recording and listing audit summaries.
func TestStoreAuditHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := Open(t.TempDir(), "example.com", DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		report := &model.AuditReport{
			StartedAt:    base.Add(time.Duration(i) * time.Hour),
			FinishedAt:   base.Add(time.Duration(i)*time.Hour + 10*time.Minute),
			PagesCrawled: 10 + i,
			PagesFailed:  i,
			TagCoverage:  map[string]int{"ga4": 10 + i},
		}
		if err := store.RecordAudit(ctx, report); err != nil {
			t.Fatalf("RecordAudit failed: %v", err)
		}
	}

	audits, err := store.ListAudits(ctx)
	if err != nil {
		t.Fatalf("ListAudits failed: %v", err)
	}
	if len(audits) != 2 {
		t.Fatalf("expected 2 audits, got %d", len(audits))
	}
	// Most recent first
	if audits[0].PagesCrawled != 11 {
		t.Errorf("expected most recent audit first, got pages=%d", audits[0].PagesCrawled)
	}
	if audits[0].TagCoverage["ga4"] != 11 {
		t.Errorf("tag coverage not round-tripped: %v", audits[0].TagCoverage)
	}
}
