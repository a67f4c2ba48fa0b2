package pipeline_test

import (
	"context"

	"github.com/digcity/portal-tools/internal/domain"
	infra "github.com/digcity/portal-tools/internal/infra/bigquery"
)

// MockStore is a mock implementation of Store for testing.
type MockStore struct {
	ListExistingFunc func(ctx context.Context, kind domain.Kind) ([]domain.Record, error)
	ApplyFunc        func(ctx context.Context, rec domain.Record) (bool, error)
	CallRPCFunc      func(ctx context.Context, fn string, args ...any) error

	Applied []domain.Record
	RPCs    []string
}

func (m *MockStore) ListExisting(ctx context.Context, kind domain.Kind) ([]domain.Record, error) {
	if m.ListExistingFunc != nil {
		return m.ListExistingFunc(ctx, kind)
	}
	return nil, nil
}

func (m *MockStore) Apply(ctx context.Context, rec domain.Record) (bool, error) {
	m.Applied = append(m.Applied, rec)
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, rec)
	}
	return true, nil
}

func (m *MockStore) CallRPC(ctx context.Context, fn string, args ...any) error {
	m.RPCs = append(m.RPCs, fn)
	if m.CallRPCFunc != nil {
		return m.CallRPCFunc(ctx, fn, args...)
	}
	return nil
}

// MockLedger is a mock implementation of RunLedger for testing.
type MockLedger struct {
	StartRunFunc func(ctx context.Context, kind, source string) (string, error)

	Finished bool
	Counts   infra.RunCounts
	RunErr   error
}

func (m *MockLedger) StartRun(ctx context.Context, kind, source string) (string, error) {
	if m.StartRunFunc != nil {
		return m.StartRunFunc(ctx, kind, source)
	}
	return "test-run-id", nil
}

func (m *MockLedger) FinishRun(ctx context.Context, runID string, counts infra.RunCounts, runErr error) error {
	m.Finished = true
	m.Counts = counts
	m.RunErr = runErr
	return nil
}

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	UploadFileFunc func(ctx context.Context, objectName, filePath string) (string, error)

	Objects []string
}

func (m *MockPublisher) UploadFile(ctx context.Context, objectName, filePath string) (string, error) {
	m.Objects = append(m.Objects, objectName)
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, objectName, filePath)
	}
	return "gs://test-bucket/" + objectName, nil
}

// MockFetcher is a mock implementation of SourceFetcher for testing.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, uri string) ([]byte, error)
}

func (m *MockFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, uri)
	}
	return nil, nil
}
