package bigquery

import (
	"context"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/digcity/portal-tools/internal/logger"
)

const (
	importRunsTable = "import_runs"
	maxErrorLen     = 2000
)

var datasetRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// RunLedger records import runs in BigQuery. It holds one client for the
// whole invocation.
type RunLedger struct {
	client  *bigquery.Client
	dataset string
}

// NewRunLedger creates a BigQuery client for projectID.
func NewRunLedger(ctx context.Context, projectID, dataset string) (*RunLedger, error) {
	if !datasetRe.MatchString(dataset) {
		return nil, fmt.Errorf("NewRunLedger: invalid dataset name %q", dataset)
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRunLedger: creating client: %w", err)
	}
	return &RunLedger{client: client, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (l *RunLedger) Close() error {
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}

func (l *RunLedger) StartRun(ctx context.Context, kind, source string) (string, error) {
	return StartImportRunWithClient(ctx, l.client, l.dataset, kind, source)
}

func (l *RunLedger) FinishRun(ctx context.Context, runID string, counts RunCounts, runErr error) error {
	return FinishImportRunWithClient(ctx, l.client, l.dataset, runID, counts, runErr)
}

func (l *RunLedger) ListRecentRuns(ctx context.Context, limit int) ([]ImportRunRow, error) {
	return ListRecentRunsWithClient(ctx, l.client, l.dataset, limit)
}

// StartImportRunWithClient inserts a row with status=RUNNING and returns the
// generated run_id.
func StartImportRunWithClient(ctx context.Context, client *bigquery.Client, dataset, kind, source string) (string, error) {
	runID := uuid.NewString()

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (run_id, kind, source, started_ts, status)
		VALUES (@run_id, @kind, @source, @started_ts, @status)
	`, dataset, importRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "kind", Value: kind},
		{Name: "source", Value: source},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: StatusRunning},
	}

	if err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartImportRun: %w", err)
	}
	return runID, nil
}

// FinishImportRunWithClient stores the final counts. The status is FAILED
// when runErr is non-nil, SUCCESS otherwise.
func FinishImportRunWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string, counts RunCounts, runErr error) error {
	status, errMsg := finishStatus(runErr)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    rows_read = @rows_read,
		    rows_skipped = @rows_skipped,
		    records_written = @records_written,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, dataset, importRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "rows_read", Value: counts.RowsRead},
		{Name: "rows_skipped", Value: counts.RowsSkipped},
		{Name: "records_written", Value: counts.RecordsWritten},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("FinishImportRun: update failed")
		return fmt.Errorf("FinishImportRun: %w", err)
	}
	return nil
}

// ListRecentRunsWithClient returns the newest runs first.
func ListRecentRunsWithClient(ctx context.Context, client *bigquery.Client, dataset string, limit int) ([]ImportRunRow, error) {
	if limit <= 0 {
		limit = 20
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
		  run_id, kind, source, started_ts, finished_ts, status,
		  rows_read, rows_skipped, records_written, error_message
		FROM %s.%s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, dataset, importRunsTable))
	q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: limit}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecentRuns: query read: %w", err)
	}

	var rows []ImportRunRow
	for {
		var r ImportRunRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecentRuns: iter next: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func finishStatus(runErr error) (status, message string) {
	if runErr == nil {
		return StatusSuccess, ""
	}
	msg := runErr.Error()
	if len(msg) > maxErrorLen {
		n := maxErrorLen
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	return StatusFailed, msg
}
