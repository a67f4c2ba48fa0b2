package pipeline

import (
	"context"

	"github.com/digcity/portal-tools/internal/domain"
	infra "github.com/digcity/portal-tools/internal/infra/bigquery"
)

// Store is the remote database as seen by the import steps.
// postgres.Store implements it.
type Store interface {
	// ListExisting loads every stored record of kind using paged reads.
	ListExisting(ctx context.Context, kind domain.Kind) ([]domain.Record, error)
	// Apply writes one record and reports whether a row was inserted.
	Apply(ctx context.Context, rec domain.Record) (bool, error)
	CallRPC(ctx context.Context, fn string, args ...any) error
}

// RunLedger records the start and outcome of each run.
type RunLedger interface {
	StartRun(ctx context.Context, kind, source string) (string, error)
	FinishRun(ctx context.Context, runID string, counts infra.RunCounts, runErr error) error
}

// Publisher copies emitted files to shared storage.
type Publisher interface {
	UploadFile(ctx context.Context, objectName, filePath string) (string, error)
}

// SourceFetcher reads sources addressed by gs:// URIs.
type SourceFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// NopLedger discards run bookkeeping.
type NopLedger struct{}

func (NopLedger) StartRun(ctx context.Context, kind, source string) (string, error) { return "", nil }

func (NopLedger) FinishRun(ctx context.Context, runID string, counts infra.RunCounts, runErr error) error {
	return nil
}
