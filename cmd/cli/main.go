package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/digcity/portal-tools/internal/app"
	"github.com/digcity/portal-tools/internal/config"
	infraBQ "github.com/digcity/portal-tools/internal/infra/bigquery"
	"github.com/digcity/portal-tools/internal/logger"
	"github.com/digcity/portal-tools/internal/pipeline"
)

func main() {
	log := logger.New()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "portal",
		Short:         "Member portal import and publishing tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}
	getConfig := func() *config.Config { return cfg }

	root.AddCommand(
		newImportCmd(getConfig, "import-finance", "Import the finance ledger (text or CSV)", pipeline.KindFinanceLedger),
		newImportCmd(getConfig, "import-events", "Import the events sheet", pipeline.KindEvents),
		newImportCmd(getConfig, "import-attendance", "Import the attendance form export", pipeline.KindAttendance),
		newImportCmd(getConfig, "import-dues", "Expand the dues sheet into weekly dues", pipeline.KindDues),
		newSitemapCmd(getConfig),
		newOGCmd(getConfig),
		newApplySQLCmd(getConfig),
		newRunsCmd(getConfig),
	)
	return root
}

// goFlags returns a stdlib flag set for cmd. The standalone binaries bind
// the same flags; pflag copies the definitions into the command.
func goFlags(cmd *cobra.Command) *flag.FlagSet {
	return flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
}

func newImportCmd(cfg func() *config.Config, name, short string, kind pipeline.ImportKind) *cobra.Command {
	cmd := &cobra.Command{Use: name, Short: short, Args: cobra.NoArgs}
	fs := goFlags(cmd)
	buildJob := app.ImportFlags(fs, kind)
	cmd.Flags().AddGoFlagSet(fs)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		job, err := buildJob()
		if err != nil {
			return err
		}
		report, err := app.Import(cmd.Context(), cfg(), job)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report)
		return nil
	}
	return cmd
}

func newSitemapCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{Use: "sitemap", Short: "Generate sitemap.xml from the published posts", Args: cobra.NoArgs}
	fs := goFlags(cmd)
	buildJob := app.SitemapFlags(fs)
	cmd.Flags().AddGoFlagSet(fs)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		files, err := app.RunSitemap(cmd.Context(), cfg(), buildJob())
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	}
	return cmd
}

func newOGCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{Use: "og", Short: "Generate Open Graph preview pages for the published posts", Args: cobra.NoArgs}
	fs := goFlags(cmd)
	siteFlags := app.OGFlags(fs)
	cmd.Flags().AddGoFlagSet(fs)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, site := siteFlags()
		written, err := app.RunOG(cmd.Context(), cfg(), dir, site)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d preview page(s) to %s\n", len(written), dir)
		return nil
	}
	return cmd
}

func newApplySQLCmd(cfg func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{Use: "apply-sql", Short: "Execute emitted SQL batch files against the database", Args: cobra.NoArgs}
	fs := goFlags(cmd)
	batchFlags := app.ApplySQLFlags(fs)
	cmd.Flags().AddGoFlagSet(fs)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		dir, prefix := batchFlags()
		res, err := app.RunApplySQL(cmd.Context(), cfg(), dir, prefix)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %d batch file(s)\n", res.Applied)
		for _, f := range res.Failed {
			fmt.Fprintf(cmd.ErrOrStderr(), "FAILED %s\n", f)
		}
		return nil
	}
	return cmd
}

func newRunsCmd(cfg func() *config.Config) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent import runs from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			if err := c.Require(config.EnvBigQueryProject); err != nil {
				return err
			}

			ledger, err := infraBQ.NewRunLedger(cmd.Context(), c.BigQueryProject, c.BigQueryDataset)
			if err != nil {
				return err
			}
			defer ledger.Close()

			runs, err := ledger.ListRecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRuns(cmd, runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}

func printRuns(cmd *cobra.Command, runs []infraBQ.ImportRunRow) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tKIND\tSTATUS\tREAD\tSKIPPED\tWRITTEN\tSOURCE\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedTS.Local().Format("2006-01-02 15:04"),
			r.Kind,
			r.Status,
			r.RowsRead,
			r.RowsSkipped,
			r.RecordsWritten,
			r.Source,
			r.ErrorMessage,
		)
	}
	w.Flush()
}
