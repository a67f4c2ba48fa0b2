package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/digcity/portal-tools/internal/config"
	"github.com/digcity/portal-tools/internal/logger"
)

// BatchFilePattern matches emitted batch files: <prefix>_001.sql.
var BatchFilePattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9-]*)_(\d{3})\.sql$`)

// ScriptRunner executes one SQL script.
type ScriptRunner interface {
	ApplyScript(ctx context.Context, sql string) error
}

// BatchScript is one batch file found on disk.
type BatchScript struct {
	Prefix   string
	Index    int
	Filename string
	Path     string
	Checksum string
}

// ApplyResult counts what ApplySQL did.
type ApplyResult struct {
	Applied int
	Failed  []string
}

// ReadBatchScripts lists the batch files in dir, optionally restricted to
// one prefix, in name order. Files that do not look like batch files are
// skipped with a log line.
func ReadBatchScripts(ctx context.Context, dir, prefix string) ([]BatchScript, error) {
	log := logger.FromContext(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ReadBatchScripts: %w", err)
	}

	var scripts []BatchScript
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := BatchFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			log.Debug().Str("file", e.Name()).Msg("Skipping file with invalid format")
			continue
		}
		if prefix != "" && m[1] != prefix {
			continue
		}
		index, _ := strconv.Atoi(m[2])
		scripts = append(scripts, BatchScript{
			Prefix:   m[1],
			Index:    index,
			Filename: e.Name(),
			Path:     filepath.Join(dir, e.Name()),
		})
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Filename < scripts[j].Filename
	})
	return scripts, nil
}

// ApplySQL executes every batch file in dir in name order. A failed file is
// logged and the remaining files are still executed. Only an unreadable
// directory is an error.
func ApplySQL(ctx context.Context, runner ScriptRunner, dir, prefix string) (*ApplyResult, error) {
	log := logger.FromContext(ctx)

	scripts, err := ReadBatchScripts(ctx, dir, prefix)
	if err != nil {
		return nil, err
	}
	log.Info().Int("files", len(scripts)).Str("dir", dir).Msg("Found batch files")

	res := &ApplyResult{}
	for _, s := range scripts {
		content, err := os.ReadFile(s.Path)
		if err != nil {
			log.Error().Err(err).Str("file", s.Filename).Msg("Reading batch file failed")
			res.Failed = append(res.Failed, s.Filename)
			continue
		}
		s.Checksum = fmt.Sprintf("%x", sha256.Sum256(content))

		fileLog := log.With().Str("file", s.Filename).Str("checksum", s.Checksum[:12]).Logger()
		fileLog.Info().Msg("Applying batch")

		if err := runner.ApplyScript(ctx, string(content)); err != nil {
			fileLog.Error().Err(err).Msg("Batch failed")
			res.Failed = append(res.Failed, s.Filename)
			continue
		}
		res.Applied++
	}

	if len(res.Failed) == 0 {
		log.Info().Int("applied", res.Applied).Msg("All batches applied")
	} else {
		log.Warn().Int("applied", res.Applied).Strs("failed", res.Failed).Msg("Some batches failed")
	}
	return res, nil
}

// RunApplySQL connects to the database and executes the batch files in dir,
// which defaults to the configured output directory.
func RunApplySQL(ctx context.Context, cfg *config.Config, dir, prefix string) (*ApplyResult, error) {
	env, err := Open(ctx, cfg, Options{RequireStore: true})
	if err != nil {
		return nil, err
	}
	defer env.Close()

	if dir == "" {
		dir = cfg.OutputDir
	}
	return ApplySQL(ctx, env.Store, dir, prefix)
}
