// Package sqlemit serializes records into batched files of idempotent SQL
// statements that can be pasted into the Supabase SQL editor or run with
// cmd/apply-sql.
package sqlemit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/digcity/portal-tools/internal/domain"
	"github.com/digcity/portal-tools/internal/logger"
)

// DefaultBatchSize keeps a file under the SQL editor's payload limit.
const DefaultBatchSize = 50

// BatchFile describes one written file.
type BatchFile struct {
	Path    string
	Index   int
	Records int
}

// Emitter folds records into batch files.
type Emitter struct {
	Dir       string
	Prefix    string
	BatchSize int
	Tables    Tables
	// NewID generates identifiers for records that have none.
	NewID func() string
}

// New returns an Emitter writing <dir>/<prefix>_NNN.sql files.
func New(dir, prefix string, batchSize int) *Emitter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Emitter{
		Dir:       dir,
		Prefix:    prefix,
		BatchSize: batchSize,
		Tables:    DefaultTables,
		NewID:     uuid.NewString,
	}
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

// Emit assigns IDs, renders every record and writes one file per batch.
// Files left over from an earlier run with the same prefix are removed first.
// Any filesystem error aborts the emission.
func (e *Emitter) Emit(ctx context.Context, records []domain.Record) ([]BatchFile, error) {
	log := logger.FromContext(ctx)

	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("Emit: create output dir: %w", err)
	}
	if err := e.removeStale(); err != nil {
		return nil, err
	}

	batches := Chunk(records, e.BatchSize)
	files := make([]BatchFile, 0, len(batches))

	for i, batch := range batches {
		body, err := e.Render(batch, i+1, len(batches))
		if err != nil {
			return nil, fmt.Errorf("Emit: batch %d: %w", i+1, err)
		}

		path := filepath.Join(e.Dir, fmt.Sprintf("%s_%03d.sql", e.Prefix, i+1))
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return nil, fmt.Errorf("Emit: write %s: %w", path, err)
		}

		log.Info().
			Str("file", path).
			Int("batch", i+1).
			Int("records", len(batch)).
			Msg("Wrote SQL batch")

		files = append(files, BatchFile{Path: path, Index: i + 1, Records: len(batch)})
	}

	return files, nil
}

// Render produces the contents of one batch file.
func (e *Emitter) Render(batch []domain.Record, index, total int) ([]byte, error) {
	tables := e.Tables.withDefaults()
	newID := e.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- %s batch %d/%d (%d records)\n", e.Prefix, index, total, len(batch))
	b.WriteString("-- Every statement is guarded and safe to run more than once.\n\n")

	for _, rec := range batch {
		if rec.RecordID() == "" {
			rec.AssignID(newID())
		}
		stmt, err := tables.Statement(rec)
		if err != nil {
			return nil, err
		}
		b.WriteString(stmt)
		b.WriteString("\n\n")
	}
	return []byte(b.String()), nil
}

func (e *Emitter) removeStale() error {
	matches, err := filepath.Glob(filepath.Join(e.Dir, e.Prefix+"_[0-9][0-9][0-9].sql"))
	if err != nil {
		return fmt.Errorf("Emit: glob stale batches: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("Emit: remove stale batch %s: %w", m, err)
		}
	}
	return nil
}
