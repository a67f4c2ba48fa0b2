package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/digcity/portal-tools/internal/app"
	"github.com/digcity/portal-tools/internal/config"
	"github.com/digcity/portal-tools/internal/logger"
)

func main() {
	log := logger.New()

	batchFlags := app.ApplySQLFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	dir, prefix := batchFlags()
	res, err := app.RunApplySQL(ctx, cfg, dir, prefix)
	if err != nil {
		log.Fatal().Err(err).Msg("Applying batches failed")
	}

	fmt.Printf("Applied %d batch file(s)\n", res.Applied)
	for _, f := range res.Failed {
		fmt.Fprintf(os.Stderr, "FAILED %s\n", f)
	}
}
