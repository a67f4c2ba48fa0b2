// Package pipeline runs spreadsheet imports: read, tokenize, build records,
// classify, reconcile, then emit SQL batch files or write to the database.
// Runs are sequential and single-threaded.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/digcity/portal-tools/internal/config"
	infra "github.com/digcity/portal-tools/internal/infra/bigquery"
	"github.com/digcity/portal-tools/internal/logger"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewImportPipeline creates the standard step chain for mode.
func NewImportPipeline(mode Mode) *Pipeline {
	steps := []PipelineStep{
		&ReadSourceStep{},
		&TokenizeStep{},
		&BuildRecordsStep{},
		&ClassifyStep{},
		&ReconcileStep{},
	}
	if mode == ModeApply {
		steps = append(steps, &ApplyStep{})
	} else {
		steps = append(steps, &EmitStep{}, &PublishStep{})
	}
	return NewPipeline(steps...)
}

func (j Job) withDefaults() Job {
	if j.Mode == "" {
		j.Mode = ModeEmit
	}
	if j.Source == "" {
		j.Source = DefaultSource(j.Kind)
	}
	if j.OutputDir == "" {
		j.OutputDir = DefaultOutputDir
	}
	if j.Prefix == "" {
		j.Prefix = DefaultPrefix(j.Kind)
	}
	if j.BatchSize <= 0 {
		j.BatchSize = DefaultBatchSize
	}
	if j.HeaderRows < 0 {
		j.HeaderRows = DefaultHeaderRows(j.Kind)
	}
	if j.Location == nil {
		j.Location = time.UTC
	}
	return j
}

// validate rejects jobs that cannot start. These are configuration errors
// and are reported before any work is done.
func (j Job) validate(deps Deps) error {
	if j.Kind.RecordKind() == "" {
		return fmt.Errorf("unknown import kind %q", j.Kind)
	}
	if j.Mode != ModeEmit && j.Mode != ModeApply {
		return fmt.Errorf("unknown mode %q", j.Mode)
	}
	if j.Mode == ModeApply && deps.Store == nil {
		return fmt.Errorf("%w: apply mode needs %s", config.ErrMissing, config.EnvDatabaseURL)
	}
	if j.Kind == KindDues {
		if err := j.Dues.Validate(); err != nil {
			return fmt.Errorf("dues plan: %w", err)
		}
	}
	return nil
}

// Run executes one import job and records it in the run ledger. The report
// is returned even when the run fails part way.
func Run(ctx context.Context, deps Deps, job Job) (*Report, error) {
	job = job.withDefaults()
	if err := job.validate(deps); err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	ledger := deps.Ledger
	if ledger == nil {
		ledger = NopLedger{}
	}

	report := &Report{Kind: job.Kind, Source: job.Source}

	runID, err := ledger.StartRun(ctx, string(job.Kind), job.Source)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Could not record run start, continuing without ledger")
		ledger, runID = NopLedger{}, ""
	}
	report.RunID = runID

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"run_id": runID,
		"kind":   string(job.Kind),
		"source": job.Source,
	})
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("mode", string(job.Mode)).Msg("Import started")

	state := &PipelineState{Job: job, Deps: deps, Report: report}
	runErr := NewImportPipeline(job.Mode).Execute(ctx, state)

	counts := infra.RunCounts{
		RowsRead:       report.RowsRead,
		RowsSkipped:    report.RowsSkipped,
		RecordsWritten: report.Written(),
	}
	if err := ledger.FinishRun(ctx, runID, counts, runErr); err != nil {
		log.Warn().Err(err).Msg("Could not record run result")
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("Import failed")
		return report, fmt.Errorf("Run: %w", runErr)
	}

	log.Info().
		Int("rows_read", report.RowsRead).
		Int("rows_skipped", report.RowsSkipped).
		Int("records_written", report.Written()).
		Int("already_present", report.AlreadyPresent).
		Int("failed", report.Failed).
		Msg("Import finished")
	return report, nil
}
