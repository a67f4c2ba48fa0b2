package app

import (
	"context"
	"path"

	"github.com/digcity/portal-tools/internal/config"
	"github.com/digcity/portal-tools/internal/pipeline"
)

// PublishRoot is the bucket prefix for published artifacts.
const PublishRoot = "portal-tools"

// ImportJob fills the parts of job the caller left empty from cfg.
func ImportJob(cfg *config.Config, job pipeline.Job) pipeline.Job {
	if job.OutputDir == "" {
		job.OutputDir = cfg.OutputDir
	}
	if job.BatchSize <= 0 {
		job.BatchSize = cfg.BatchSize
	}
	if job.Location == nil {
		job.Location = cfg.Location
	}
	if job.PublishPrefix == "" {
		job.PublishPrefix = path.Join(PublishRoot, "sql", string(job.Kind))
	}
	return job
}

// Import opens the clients job needs, runs it and closes them again.
func Import(ctx context.Context, cfg *config.Config, job pipeline.Job) (*pipeline.Report, error) {
	env, err := Open(ctx, cfg, Options{RequireStore: job.Mode == pipeline.ModeApply})
	if err != nil {
		return nil, err
	}
	defer env.Close()

	return pipeline.Run(ctx, env.Deps(), ImportJob(cfg, job))
}
