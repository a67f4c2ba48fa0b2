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

	buildJob := app.SitemapFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	files, err := app.RunSitemap(ctx, cfg, buildJob())
	if err != nil {
		log.Fatal().Err(err).Msg("Sitemap generation failed")
	}

	for _, f := range files {
		fmt.Println(f)
	}
}
