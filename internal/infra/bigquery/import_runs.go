// Package bigquery records import runs in a BigQuery table.
package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// ImportRunRow is one row of <dataset>.import_runs.
type ImportRunRow struct {
	RunID  string `bigquery:"run_id"` // REQUIRED
	Kind   string `bigquery:"kind"`   // REQUIRED
	Source string `bigquery:"source"` // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status         string             `bigquery:"status"`          // REQUIRED
	RowsRead       bigquery.NullInt64 `bigquery:"rows_read"`       // NULLABLE
	RowsSkipped    bigquery.NullInt64 `bigquery:"rows_skipped"`    // NULLABLE
	RecordsWritten bigquery.NullInt64 `bigquery:"records_written"` // NULLABLE

	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE
}

// RunCounts are the totals recorded when a run finishes.
type RunCounts struct {
	RowsRead       int
	RowsSkipped    int
	RecordsWritten int
}
