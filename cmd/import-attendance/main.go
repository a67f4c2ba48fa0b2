package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/digcity/portal-tools/internal/app"
	"github.com/digcity/portal-tools/internal/config"
	"github.com/digcity/portal-tools/internal/logger"
	"github.com/digcity/portal-tools/internal/pipeline"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	buildJob := app.ImportFlags(flag.CommandLine, pipeline.KindAttendance)
	flag.Parse()

	job, err := buildJob()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid flags")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("kind", string(job.Kind)).Msg("Starting attendance import")

	report, err := app.Import(ctx, cfg, job)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	fmt.Print(report)
}
