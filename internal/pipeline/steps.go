package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/digcity/portal-tools/internal/csvtok"
	"github.com/digcity/portal-tools/internal/domain"
	"github.com/digcity/portal-tools/internal/gcsuploader"
	"github.com/digcity/portal-tools/internal/infra/postgres"
	"github.com/digcity/portal-tools/internal/logger"
	"github.com/digcity/portal-tools/internal/normalize"
	"github.com/digcity/portal-tools/internal/reconcile"
	"github.com/digcity/portal-tools/internal/sqlemit"
)

// PipelineStep represents a single step of an import run.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all steps.
type PipelineState struct {
	Job    Job
	Deps   Deps
	Report *Report

	Text    string
	Rows    [][]string
	Records []domain.Record
}

// Step 1: ReadSourceStep loads the whole source into memory. Failure aborts
// the run.
type ReadSourceStep struct{}

func (s *ReadSourceStep) Execute(ctx context.Context, state *PipelineState) error {
	src := state.Job.Source

	if strings.HasPrefix(src, "gs://") {
		if state.Deps.Fetcher == nil {
			return fmt.Errorf("ReadSource: %s: no storage client configured", src)
		}
		data, err := state.Deps.Fetcher.Fetch(ctx, src)
		if err != nil {
			return fmt.Errorf("ReadSource: %w", err)
		}
		state.Text = string(data)
		return nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("ReadSource: %w", err)
	}
	state.Text = string(data)
	return nil
}

// Step 2: TokenizeStep splits the source into rows and drops heading rows.
// Ledger sources become one single-field row per line.
type TokenizeStep struct{}

func (s *TokenizeStep) Execute(ctx context.Context, state *PipelineState) error {
	var rows [][]string
	if state.Job.Kind == KindFinanceLedger {
		for _, line := range csvtok.Lines(state.Text) {
			rows = append(rows, []string{line})
		}
	} else {
		rows = csvtok.TokenizeWith(state.Text, csvtok.Options{Comma: state.Job.Comma})
	}

	if skip := state.Job.HeaderRows; skip > 0 {
		if skip > len(rows) {
			skip = len(rows)
		}
		rows = rows[skip:]
	}

	state.Rows = rows
	state.Report.RowsRead = len(rows)
	state.Text = ""

	log := logger.FromContext(ctx)
	log.Info().Int("rows", len(rows)).Msg("Tokenized source")
	return nil
}

// Step 3: BuildRecordsStep turns rows into records. A row that fails to parse
// is logged and skipped; it never aborts the run.
type BuildRecordsStep struct{}

func (s *BuildRecordsStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	job := state.Job

	var section domain.TransactionType
	for i, row := range state.Rows {
		rowNum := job.HeaderRows + i + 1

		recs, err := func() ([]domain.Record, error) {
			switch job.Kind {
			case KindFinanceLedger:
				line := csvtok.Field(row, 0)
				if typ, ok := domain.LedgerSection(line); ok {
					section = typ
					return nil, nil
				}
				if section == "" {
					return nil, fmt.Errorf("%w: line before any PEMASUKAN/PENGELUARAN heading", domain.ErrInvalid)
				}
				tx, err := domain.BuildTransactionFromLine(line, section)
				return one(tx, err)
			case KindFinanceCSV:
				return one(domain.BuildTransactionFromRow(row))
			case KindEvents:
				return one(domain.BuildEventFromRow(row))
			case KindAttendance:
				return one(domain.BuildAttendanceFromRow(row, job.Location))
			case KindDues:
				dues, err := domain.BuildDuesFromRow(row, job.Dues)
				if err != nil {
					return nil, err
				}
				out := make([]domain.Record, len(dues))
				for j, d := range dues {
					out[j] = d
				}
				return out, nil
			}
			return nil, fmt.Errorf("unsupported import kind %q", job.Kind)
		}()

		if err != nil {
			rowErr := &domain.RowError{Row: rowNum, Err: err}
			state.Report.RowsSkipped++
			state.Report.Skipped = append(state.Report.Skipped, rowErr)
			log.Warn().Int("row", rowNum).Err(err).Msg("Skipping row")
			continue
		}
		state.Records = append(state.Records, recs...)
	}

	state.Rows = nil
	state.Report.RecordsBuilt = len(state.Records)

	log.Info().
		Int("records", len(state.Records)).
		Int("rows_skipped", state.Report.RowsSkipped).
		Msg("Built records")

	if job.Kind.RecordKind() == domain.KindTransaction {
		var income, expense int64
		for _, r := range state.Records {
			tx := r.(*domain.Transaction)
			if tx.Type == domain.Income {
				income += tx.Amount
			} else {
				expense += tx.Amount
			}
		}
		log.Info().
			Str("income", normalize.FormatRupiah(income)).
			Str("expense", normalize.FormatRupiah(expense)).
			Msg("Ledger totals")
	}
	return nil
}

func one[T domain.Record](rec T, err error) ([]domain.Record, error) {
	if err != nil {
		return nil, err
	}
	return []domain.Record{rec}, nil
}

// Step 4: ClassifyStep fills empty transaction categories. Classification
// problems are logged; uncategorized transactions are still written.
type ClassifyStep struct{}

func (s *ClassifyStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Deps.Classifier == nil || state.Job.Kind.RecordKind() != domain.KindTransaction {
		return nil
	}

	var txs []*domain.Transaction
	for _, r := range state.Records {
		if tx, ok := r.(*domain.Transaction); ok {
			txs = append(txs, tx)
		}
	}
	if len(txs) == 0 {
		return nil
	}

	if err := state.Deps.Classifier.Classify(ctx, txs); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Classification failed, continuing without categories")
	}
	return nil
}

// Step 5: ReconcileStep drops duplicate keys from the source and, when asked
// and a store is configured, records that are already stored. A failed read
// keeps every record; the written statements are guarded anyway.
type ReconcileStep struct{}

func (s *ReconcileStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	var existing []domain.Record
	if state.Job.Reconcile && state.Deps.Store != nil {
		recs, err := state.Deps.Store.ListExisting(ctx, state.Job.Kind.RecordKind())
		if err != nil {
			log.Error().Err(err).Msg("Loading stored records failed, writing the full set")
		} else {
			existing = recs
		}
	}

	planned := len(state.Records)
	res := reconcile.Delta(state.Records, existing)

	state.Records = res.Missing
	state.Report.AlreadyPresent = len(res.Present)
	state.Report.Duplicates = planned - len(res.Missing) - len(res.Present)

	for _, k := range res.Duplicates {
		log.Warn().Str("key", k).Msg("Duplicate record in source")
	}
	log.Info().
		Int("existing", len(existing)).
		Int("missing", len(res.Missing)).
		Int("present", len(res.Present)).
		Msg("Reconciled")
	return nil
}

// Step 6a: EmitStep writes batch files. Output failure aborts the run.
type EmitStep struct{}

func (s *EmitStep) Execute(ctx context.Context, state *PipelineState) error {
	job := state.Job
	e := sqlemit.New(job.OutputDir, job.Prefix, job.BatchSize)

	files, err := e.Emit(ctx, state.Records)
	if err != nil {
		return err
	}
	for _, f := range files {
		state.Report.BatchFiles = append(state.Report.BatchFiles, f.Path)
		state.Report.Emitted += f.Records
	}
	return nil
}

// Step 6b: ApplyStep writes records one round-trip at a time. A rejected
// record is logged and counted; later records are still attempted.
type ApplyStep struct{}

func (s *ApplyStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	store := state.Deps.Store

	for _, rec := range state.Records {
		inserted, err := store.Apply(ctx, rec)
		switch {
		case errors.Is(err, postgres.ErrEventNotFound):
			state.Report.Failed++
			log.Warn().Str("key", rec.NaturalKey()).Msg("Attendance references an unknown event")
		case err != nil:
			state.Report.Failed++
			log.Error().Err(err).Str("key", rec.NaturalKey()).Msg("Write failed")
		case inserted:
			state.Report.Applied++
		default:
			state.Report.AlreadyPresent++
		}
	}

	if fn := state.Job.AfterRPC; fn != "" {
		if err := store.CallRPC(ctx, fn); err != nil {
			log.Error().Err(err).Str("function", fn).Msg("RPC failed")
		}
	}

	log.Info().
		Int("applied", state.Report.Applied).
		Int("failed", state.Report.Failed).
		Msg("Applied records")
	return nil
}

// Step 7: PublishStep copies the batch files to the bucket. Upload failures
// are logged; the local files remain usable.
type PublishStep struct{}

func (s *PublishStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Deps.Publisher == nil {
		return nil
	}
	log := logger.FromContext(ctx)

	for _, path := range state.Report.BatchFiles {
		object := gcsuploader.ObjectName(state.Job.PublishPrefix, filepath.Base(path))
		uri, err := state.Deps.Publisher.UploadFile(ctx, object, path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Publish failed")
			continue
		}
		state.Report.Published = append(state.Report.Published, uri)
	}
	return nil
}
