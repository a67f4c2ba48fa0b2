package app

import (
	"flag"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/digcity/portal-tools/internal/domain"
	"github.com/digcity/portal-tools/internal/ogpreview"
	"github.com/digcity/portal-tools/internal/pipeline"
)

// DefaultDuesWeeks is the length of a dues period.
const DefaultDuesWeeks = 13

// ImportFlags binds the import flags for kind to fs. The returned function
// builds the job once fs has been parsed. Every flag has a default, except
// that dues imports need -period and -start.
func ImportFlags(fs *flag.FlagSet, kind pipeline.ImportKind) func() (pipeline.Job, error) {
	source := fs.String("source", "", fmt.Sprintf("source file or gs:// URI (default %s)", pipeline.DefaultSource(kind)))
	out := fs.String("out", "", "directory for SQL batch files (default $IMPORT_OUTPUT_DIR)")
	prefix := fs.String("prefix", "", fmt.Sprintf("batch file prefix (default %s)", pipeline.DefaultPrefix(kind)))
	batch := fs.Int("batch-size", 0, "statements per batch file (default $IMPORT_BATCH_SIZE)")
	headers := fs.Int("header-rows", -1, fmt.Sprintf("leading rows to ignore (default %d)", pipeline.DefaultHeaderRows(kind)))
	apply := fs.Bool("apply", false, "write records to the database instead of emitting SQL")
	reconcile := fs.Bool("reconcile", false, "skip records already stored in the database")
	afterRPC := fs.String("after-rpc", "", "database function to call after an -apply run")

	var csvFormat *bool
	if kind == pipeline.KindFinanceLedger {
		csvFormat = fs.Bool("csv", false, fmt.Sprintf("read a finance CSV export instead of the text ledger (default source %s)", pipeline.DefaultSource(pipeline.KindFinanceCSV)))
	}

	var period, start *string
	var weeks *int
	if kind == pipeline.KindDues {
		period = fs.String("period", "", "dues period name used in invoice numbers, e.g. \"Genap 2025\"")
		start = fs.String("start", "", "due date of week 1 (YYYY-MM-DD)")
		weeks = fs.Int("weeks", DefaultDuesWeeks, "number of weekly dues in the period")
	}

	return func() (pipeline.Job, error) {
		job := pipeline.Job{
			Kind:       kind,
			Source:     *source,
			OutputDir:  *out,
			Prefix:     *prefix,
			BatchSize:  *batch,
			HeaderRows: *headers,
			Reconcile:  *reconcile,
			AfterRPC:   *afterRPC,
		}
		if csvFormat != nil && *csvFormat {
			job.Kind = pipeline.KindFinanceCSV
		}
		if *apply {
			job.Mode = pipeline.ModeApply
		}
		if kind == pipeline.KindDues {
			plan, err := duesPlan(*period, *start, *weeks)
			if err != nil {
				return job, err
			}
			job.Dues = plan
		}
		return job, nil
	}
}

func duesPlan(period, start string, weeks int) (domain.DuesPlan, error) {
	plan := domain.DuesPlan{Period: period, Weeks: weeks}
	if start == "" {
		return plan, fmt.Errorf("-start is required for dues imports")
	}
	d, err := civil.ParseDate(start)
	if err != nil {
		return plan, fmt.Errorf("-start: %w", err)
	}
	plan.Start = d
	if err := plan.Validate(); err != nil {
		return plan, err
	}
	return plan, nil
}

// SitemapFlags binds the sitemap flags to fs.
func SitemapFlags(fs *flag.FlagSet) func() SitemapJob {
	dir := fs.String("out", DefaultSitemapDir, "directory for sitemap files")
	max := fs.Int("max-urls", 0, "URLs per sitemap file before splitting (default 50000)")
	return func() SitemapJob {
		return SitemapJob{Dir: *dir, MaxURLs: *max, Now: time.Now()}
	}
}

// OGFlags binds the preview page flags to fs.
func OGFlags(fs *flag.FlagSet) func() (string, ogpreview.Site) {
	dir := fs.String("out", DefaultOGDir, "directory for preview pages")
	name := fs.String("site-name", DefaultSiteName, "og:site_name value")
	image := fs.String("default-image", "/og-default.png", "image used for posts without a cover")
	twitter := fs.String("twitter", "", "twitter:site handle")
	return func() (string, ogpreview.Site) {
		return *dir, ogpreview.Site{Name: *name, DefaultImage: *image, TwitterHandle: *twitter}
	}
}

// ApplySQLFlags binds the batch execution flags to fs.
func ApplySQLFlags(fs *flag.FlagSet) func() (dir, prefix string) {
	dir := fs.String("dir", "", "directory holding batch files (default $IMPORT_OUTPUT_DIR)")
	prefix := fs.String("prefix", "", "only execute batch files with this prefix")
	return func() (string, string) {
		return *dir, *prefix
	}
}
