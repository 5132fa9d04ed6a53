// Package buffer accumulates page records in memory and flushes them to
// a durable partial-results file once a threshold is reached.
//
// The buffer is the crawl's memory bound: after any Push returns, at
// most flushThreshold records live in memory. Records are merged into
// the on-disk file (read existing, append, rewrite) so a crashed or
// resumed crawl never loses flushed results.
package buffer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/JerushaGray/ChoopScoop/internal/model"
)

// Buffer is a bounded in-memory collection of page records backed by a
// partial-results file. Safe for concurrent use by crawl workers.
type Buffer struct {
	mu sync.Mutex

	// path is the domain-keyed partial-results file.
	path string

	// threshold is the record count that triggers a flush.
	threshold int

	// records is the in-memory collection, owned by the buffer until
	// flushed.
	records []model.PageRecord

	// flushErr remembers the most recent flush failure so that a
	// persistent write problem surfaces at drain time instead of
	// being silently swallowed.
	flushErr error

	logger *slog.Logger
}

// New creates a Buffer writing to the given partial-results file path.
// The threshold must be positive; the caller is expected to have
// sanitized it.
func New(path string, threshold int, logger *slog.Logger) *Buffer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{
		path:      path,
		threshold: threshold,
		logger:    logger,
	}
}

// Push appends a record to the in-memory collection. When the
// collection reaches the flush threshold it is synchronously merged
// into the partial-results file and memory is cleared.
//
// A failed flush is not fatal here: the records are retained in memory
// and the flush is retried at the next threshold crossing or at drain
// time. The failure is logged and remembered for DrainAll.
func (b *Buffer) Push(record model.PageRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, record)
	if len(b.records) < b.threshold {
		return
	}

	if err := b.flushLocked(); err != nil {
		b.flushErr = err
		b.logger.Warn("result flush failed, retaining records in memory",
			"error", err,
			"buffered", len(b.records),
		)
		return
	}
	b.flushErr = nil
}

// Len returns the number of records currently held in memory.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// DrainAll merges any remaining in-memory records into the
// partial-results file and returns the final combined collection,
// including records flushed by earlier runs of a resumed crawl.
//
// A write failure here is fatal: it means collected results could not
// be made durable, and the caller must report that rather than pretend
// the audit is complete.
func (b *Buffer) DrainAll() ([]model.PageRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) > 0 {
		if err := b.flushLocked(); err != nil {
			if b.flushErr != nil {
				return nil, fmt.Errorf("draining result buffer (earlier flush also failed: %v): %w", b.flushErr, err)
			}
			return nil, fmt.Errorf("draining result buffer: %w", err)
		}
		b.flushErr = nil
	}

	return b.readFileLocked()
}

// flushLocked merges in-memory records into the partial-results file
// and clears memory on success. Caller must hold b.mu.
func (b *Buffer) flushLocked() error {
	existing, err := b.readFileLocked()
	if err != nil {
		return err
	}

	merged := append(existing, b.records...)
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing page records: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0750); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}

	// Write-then-rename so a crash mid-write never corrupts the
	// previously flushed records.
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing partial results: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replacing partial results: %w", err)
	}

	b.records = b.records[:0]
	return nil
}

// readFileLocked loads the current partial-results file. A missing file
// is an empty collection. Caller must hold b.mu.
func (b *Buffer) readFileLocked() ([]model.PageRecord, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading partial results: %w", err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var records []model.PageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing partial results: %w", err)
	}
	return records, nil
}
