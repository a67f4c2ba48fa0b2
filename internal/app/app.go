// Package app builds the collaborators every tool needs from the loaded
// configuration and runs the tools themselves. Both the standalone commands
// and the combined cli call into it.
package app

import (
	"context"
	"fmt"

	"github.com/digcity/portal-tools/internal/classify"
	"github.com/digcity/portal-tools/internal/config"
	"github.com/digcity/portal-tools/internal/gcsuploader"
	infra "github.com/digcity/portal-tools/internal/infra/bigquery"
	"github.com/digcity/portal-tools/internal/infra/postgres"
	"github.com/digcity/portal-tools/internal/logger"
	"github.com/digcity/portal-tools/internal/pipeline"
)

// Env holds the clients opened for one invocation. Fields are nil when the
// matching integration is not configured.
type Env struct {
	Config     *config.Config
	Store      *postgres.Store
	Ledger     *infra.RunLedger
	Uploader   *gcsuploader.Uploader
	Classifier classify.Classifier
}

// Options selects what Open must provide.
type Options struct {
	// RequireStore makes a missing database URL a configuration error.
	RequireStore bool
	// Required lists further settings that must be present.
	Required []string
}

// Open validates cfg and connects the configured clients. Missing required
// settings fail before any connection is made. Optional integrations that
// fail to connect are logged and left disabled.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*Env, error) {
	log := logger.FromContext(ctx)

	required := opts.Required
	if opts.RequireStore {
		required = append([]string{config.EnvDatabaseURL}, required...)
	}
	if err := cfg.Require(required...); err != nil {
		return nil, err
	}

	env := &Env{Config: cfg, Classifier: classify.NewKeywordClassifier()}

	if cfg.DatabaseURL != "" {
		store, err := postgres.NewStore(ctx, cfg.DatabaseURL, cfg.PageSize)
		if err != nil {
			if opts.RequireStore {
				return nil, fmt.Errorf("app.Open: %w", err)
			}
			log.Warn().Err(err).Msg("Database unavailable, continuing without it")
		} else {
			env.Store = store
		}
	}

	if cfg.LedgerEnabled() {
		ledger, err := infra.NewRunLedger(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Warn().Err(err).Msg("Run ledger unavailable, runs will not be recorded")
		} else {
			env.Ledger = ledger
		}
	}

	if cfg.PublishEnabled() {
		up, err := gcsuploader.NewUploader(ctx, cfg.GCSBucket)
		if err != nil {
			log.Warn().Err(err).Msg("Storage unavailable, nothing will be published")
		} else {
			env.Uploader = up
		}
	}

	if cfg.GeminiEnabled() {
		g, err := classify.NewGeminiClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini unavailable, using keyword rules")
		} else {
			env.Classifier = g
		}
	}

	return env, nil
}

// Close releases every open client.
func (e *Env) Close() {
	log := logger.New()
	if e.Store != nil {
		e.Store.Close()
	}
	if e.Ledger != nil {
		if err := e.Ledger.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing run ledger")
		}
	}
	if e.Uploader != nil {
		if err := e.Uploader.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing storage client")
		}
	}
}

// Deps exposes the open clients as pipeline collaborators. Unset clients
// stay nil interfaces.
func (e *Env) Deps() pipeline.Deps {
	deps := pipeline.Deps{Classifier: e.Classifier}
	if e.Store != nil {
		deps.Store = e.Store
	}
	if e.Ledger != nil {
		deps.Ledger = e.Ledger
	}
	if e.Uploader != nil {
		deps.Publisher = e.Uploader
		deps.Fetcher = e.Uploader
	}
	return deps
}
