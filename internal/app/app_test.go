package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/digcity/portal-tools/internal/app"
	"github.com/digcity/portal-tools/internal/config"
	"github.com/digcity/portal-tools/internal/domain"
	"github.com/digcity/portal-tools/internal/ogpreview"
	"github.com/digcity/portal-tools/internal/pipeline"
)

func emptyConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromEnv(func(string) string { return "" })
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	return cfg
}

// MockPosts is a mock implementation of PostLister for testing.
type MockPosts struct {
	ListPublishedPostsFunc func(ctx context.Context) ([]domain.Post, error)
}

func (m *MockPosts) ListPublishedPosts(ctx context.Context) ([]domain.Post, error) {
	return m.ListPublishedPostsFunc(ctx)
}

// MockPublisher is a mock implementation of ArtifactPublisher for testing.
type MockPublisher struct {
	Files []string
	Dirs  []string
}

func (m *MockPublisher) UploadFile(ctx context.Context, objectName, filePath string) (string, error) {
	m.Files = append(m.Files, objectName)
	return "gs://test/" + objectName, nil
}

func (m *MockPublisher) UploadDir(ctx context.Context, dir, prefix string) ([]string, error) {
	m.Dirs = append(m.Dirs, prefix)
	return nil, errors.New("bucket not found")
}

// MockRunner is a mock implementation of ScriptRunner for testing.
type MockRunner struct {
	ApplyScriptFunc func(ctx context.Context, sql string) error
	Scripts         []string
}

func (m *MockRunner) ApplyScript(ctx context.Context, sql string) error {
	m.Scripts = append(m.Scripts, sql)
	if m.ApplyScriptFunc != nil {
		return m.ApplyScriptFunc(ctx, sql)
	}
	return nil
}

var samplePosts = []domain.Post{
	{
		Slug:        "rekap-open-recruitment",
		Title:       "Rekap Open Recruitment",
		Excerpt:     "Seratus pendaftar baru.",
		PublishedAt: time.Date(2025, time.February, 10, 8, 0, 0, 0, time.UTC),
	},
	{
		Slug:        "../escape",
		Title:       "Bad slug",
		PublishedAt: time.Date(2025, time.February, 11, 8, 0, 0, 0, time.UTC),
	},
}

func TestOpen_MissingDatabaseURL(t *testing.T) {
	_, err := app.Open(context.Background(), emptyConfig(t), app.Options{RequireStore: true})
	if !errors.Is(err, config.ErrMissing) {
		t.Fatalf("Open() error = %v, want ErrMissing", err)
	}
	if !strings.Contains(err.Error(), config.EnvDatabaseURL) {
		t.Errorf("error %q does not name %s", err, config.EnvDatabaseURL)
	}
}

func TestOpen_NothingConfigured(t *testing.T) {
	env, err := app.Open(context.Background(), emptyConfig(t), app.Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer env.Close()

	deps := env.Deps()
	if deps.Store != nil || deps.Ledger != nil || deps.Publisher != nil || deps.Fetcher != nil {
		t.Errorf("unconfigured clients must be nil interfaces: %+v", deps)
	}
	if deps.Classifier == nil {
		t.Error("keyword classifier should always be available")
	}
	if env.Publisher() != nil {
		t.Error("Publisher() should be nil without a bucket")
	}
}

func TestImportJob_Defaults(t *testing.T) {
	cfg := emptyConfig(t)
	cfg.OutputDir = "build/sql"
	cfg.BatchSize = 25

	job := app.ImportJob(cfg, pipeline.Job{Kind: pipeline.KindEvents})
	if job.OutputDir != "build/sql" || job.BatchSize != 25 {
		t.Errorf("job = %+v", job)
	}
	if job.Location == nil || job.Location.String() != config.DefaultTimezone {
		t.Errorf("Location = %v", job.Location)
	}
	if job.PublishPrefix != "portal-tools/sql/events" {
		t.Errorf("PublishPrefix = %q", job.PublishPrefix)
	}

	kept := app.ImportJob(cfg, pipeline.Job{Kind: pipeline.KindEvents, OutputDir: "mine", BatchSize: 5})
	if kept.OutputDir != "mine" || kept.BatchSize != 5 {
		t.Errorf("explicit values overwritten: %+v", kept)
	}
}

func TestImport_ApplyWithoutDatabase(t *testing.T) {
	_, err := app.Import(context.Background(), emptyConfig(t), pipeline.Job{Kind: pipeline.KindEvents, Mode: pipeline.ModeApply})
	if !errors.Is(err, config.ErrMissing) {
		t.Errorf("Import() error = %v, want ErrMissing", err)
	}
}

func TestGenerateSitemap(t *testing.T) {
	dir := t.TempDir()
	pub := &MockPublisher{}
	posts := &MockPosts{ListPublishedPostsFunc: func(ctx context.Context) ([]domain.Post, error) {
		return samplePosts[:1], nil
	}}

	files, err := app.GenerateSitemap(context.Background(), posts, pub, app.SitemapJob{
		Dir:     dir,
		BaseURL: "https://digcity.example",
		Now:     time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("GenerateSitemap() error = %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "sitemap.xml" {
		t.Fatalf("files = %v", files)
	}

	body, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<loc>https://digcity.example/</loc>",
		"<loc>https://digcity.example/blog/rekap-open-recruitment</loc>",
		"<lastmod>2025-02-10</lastmod>",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("sitemap missing %s", want)
		}
	}

	if len(pub.Files) != 1 || pub.Files[0] != "portal-tools/sitemap/sitemap.xml" {
		t.Errorf("published = %v", pub.Files)
	}
}

func TestGenerateSitemap_PostsError(t *testing.T) {
	posts := &MockPosts{ListPublishedPostsFunc: func(ctx context.Context) ([]domain.Post, error) {
		return nil, errors.New("timeout")
	}}
	if _, err := app.GenerateSitemap(context.Background(), posts, nil, app.SitemapJob{Dir: t.TempDir()}); err == nil {
		t.Error("GenerateSitemap() should fail when posts cannot be read")
	}
}

func TestGenerateOG(t *testing.T) {
	dir := t.TempDir()
	pub := &MockPublisher{}
	posts := &MockPosts{ListPublishedPostsFunc: func(ctx context.Context) ([]domain.Post, error) {
		return samplePosts, nil
	}}

	written, err := app.GenerateOG(context.Background(), posts, pub, dir, ogpreview.Site{BaseURL: "https://digcity.example"})
	if err != nil {
		t.Fatalf("GenerateOG() error = %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("written = %v, want only the usable slug", written)
	}
	body, err := os.ReadFile(filepath.Join(dir, "rekap-open-recruitment", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `content="DIGCITY"`) {
		t.Errorf("default site name missing:\n%s", body)
	}
	// Upload failures do not fail the generation.
	if len(pub.Dirs) != 1 || pub.Dirs[0] != "portal-tools/og" {
		t.Errorf("UploadDir prefixes = %v", pub.Dirs)
	}
}

func TestBatchFilePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		prefix   string
	}{
		{"finance_001.sql", true, "finance"},
		{"member-dues_012.sql", true, "member-dues"},
		{"finance_01.sql", false, ""},   // wrong number format
		{"finance_001", false, ""},      // missing .sql
		{"001.sql", false, ""},          // missing prefix
		{"finance_001.sql.bak", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			m := app.BatchFilePattern.FindStringSubmatch(tt.filename)
			if (m != nil) != tt.valid {
				t.Fatalf("match = %v, want valid=%v", m, tt.valid)
			}
			if tt.valid && m[1] != tt.prefix {
				t.Errorf("prefix = %q, want %q", m[1], tt.prefix)
			}
		})
	}
}

func writeBatch(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestApplySQL_ContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "events_002.sql", "-- two")
	writeBatch(t, dir, "events_001.sql", "-- one")
	writeBatch(t, dir, "events_003.sql", "-- three")
	writeBatch(t, dir, "finance_001.sql", "-- other prefix")
	writeBatch(t, dir, "notes.txt", "ignored")

	runner := &MockRunner{ApplyScriptFunc: func(ctx context.Context, sql string) error {
		if sql == "-- two" {
			return errors.New("syntax error")
		}
		return nil
	}}

	res, err := app.ApplySQL(context.Background(), runner, dir, "events")
	if err != nil {
		t.Fatalf("ApplySQL() error = %v", err)
	}
	if got := strings.Join(runner.Scripts, ","); got != "-- one,-- two,-- three" {
		t.Errorf("execution order = %s", got)
	}
	if res.Applied != 2 || len(res.Failed) != 1 || res.Failed[0] != "events_002.sql" {
		t.Errorf("result = %+v", res)
	}
}

func TestApplySQL_AllPrefixes(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "finance_001.sql", "-- f")
	writeBatch(t, dir, "dues_001.sql", "-- d")

	runner := &MockRunner{}
	res, err := app.ApplySQL(context.Background(), runner, dir, "")
	if err != nil {
		t.Fatalf("ApplySQL() error = %v", err)
	}
	if res.Applied != 2 || runner.Scripts[0] != "-- d" {
		t.Errorf("applied=%d scripts=%v", res.Applied, runner.Scripts)
	}
}

func TestApplySQL_MissingDir(t *testing.T) {
	if _, err := app.ApplySQL(context.Background(), &MockRunner{}, filepath.Join(t.TempDir(), "nope"), ""); err == nil {
		t.Error("ApplySQL() on a missing directory should fail")
	}
}
