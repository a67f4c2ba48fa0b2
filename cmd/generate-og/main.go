package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/digcity/portal-tools/internal/app"
	"github.com/digcity/portal-tools/internal/config"
	"github.com/digcity/portal-tools/internal/logger"
)

func main() {
	log := logger.New()

	siteFlags := app.OGFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	dir, site := siteFlags()
	written, err := app.RunOG(ctx, cfg, dir, site)
	if err != nil {
		log.Fatal().Err(err).Msg("Preview generation failed")
	}

	fmt.Printf("Wrote %d preview page(s) to %s\n", len(written), dir)
}
