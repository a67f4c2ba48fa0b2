// Package config loads tool settings from the environment, optionally seeded
// from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvDatabaseURL     = "SUPABASE_DB_URL"
	EnvSiteURL         = "SITE_URL"
	EnvGCSBucket       = "GCS_BUCKET"
	EnvBigQueryProject = "BIGQUERY_PROJECT"
	EnvBigQueryDataset = "BIGQUERY_DATASET"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvGeminiModel     = "GEMINI_MODEL"
	EnvOutputDir       = "IMPORT_OUTPUT_DIR"
	EnvBatchSize       = "IMPORT_BATCH_SIZE"
	EnvPageSize        = "IMPORT_PAGE_SIZE"
	EnvTimezone        = "TIMEZONE"
)

const (
	DefaultBigQueryDataset = "portal"
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultOutputDir       = "out/sql"
	DefaultBatchSize       = 50
	DefaultPageSize        = 1000
	DefaultTimezone        = "Asia/Jakarta"
)

// ErrMissing is returned by Require when one or more settings are unset.
var ErrMissing = errors.New("missing configuration")

// Config holds every setting the tools read. Optional integrations are
// disabled when their setting is empty.
type Config struct {
	DatabaseURL     string
	SiteURL         string
	GCSBucket       string
	BigQueryProject string
	BigQueryDataset string
	GeminiAPIKey    string
	GeminiModel     string
	OutputDir       string
	BatchSize       int
	PageSize        int
	Location        *time.Location
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: reading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, which keeps tests away from
// the real process environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:     strings.TrimSpace(getenv(EnvDatabaseURL)),
		SiteURL:         strings.TrimRight(strings.TrimSpace(getenv(EnvSiteURL)), "/"),
		GCSBucket:       strings.TrimSpace(getenv(EnvGCSBucket)),
		BigQueryProject: strings.TrimSpace(getenv(EnvBigQueryProject)),
		BigQueryDataset: withDefault(getenv(EnvBigQueryDataset), DefaultBigQueryDataset),
		GeminiAPIKey:    strings.TrimSpace(getenv(EnvGeminiAPIKey)),
		GeminiModel:     withDefault(getenv(EnvGeminiModel), DefaultGeminiModel),
		OutputDir:       withDefault(getenv(EnvOutputDir), DefaultOutputDir),
	}

	var err error
	if cfg.BatchSize, err = positiveInt(getenv(EnvBatchSize), DefaultBatchSize); err != nil {
		return nil, fmt.Errorf("config: %s: %w", EnvBatchSize, err)
	}
	if cfg.PageSize, err = positiveInt(getenv(EnvPageSize), DefaultPageSize); err != nil {
		return nil, fmt.Errorf("config: %s: %w", EnvPageSize, err)
	}

	tz := withDefault(getenv(EnvTimezone), DefaultTimezone)
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config: %s=%q: %w", EnvTimezone, tz, err)
	}

	return cfg, nil
}

// Require checks that the named environment settings are present in cfg.
// The returned error wraps ErrMissing and lists every absent name.
func (c *Config) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if c.value(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

// GeminiEnabled reports whether the Gemini classifier can be used.
func (c *Config) GeminiEnabled() bool { return c.GeminiAPIKey != "" }

// LedgerEnabled reports whether import runs are recorded in BigQuery.
func (c *Config) LedgerEnabled() bool { return c.BigQueryProject != "" }

// PublishEnabled reports whether generated files are uploaded to GCS.
func (c *Config) PublishEnabled() bool { return c.GCSBucket != "" }

func (c *Config) value(name string) string {
	switch name {
	case EnvDatabaseURL:
		return c.DatabaseURL
	case EnvSiteURL:
		return c.SiteURL
	case EnvGCSBucket:
		return c.GCSBucket
	case EnvBigQueryProject:
		return c.BigQueryProject
	case EnvBigQueryDataset:
		return c.BigQueryDataset
	case EnvGeminiAPIKey:
		return c.GeminiAPIKey
	case EnvGeminiModel:
		return c.GeminiModel
	case EnvOutputDir:
		return c.OutputDir
	}
	return ""
}

func withDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func positiveInt(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
