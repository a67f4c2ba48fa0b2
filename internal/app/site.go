package app

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/digcity/portal-tools/internal/config"
	"github.com/digcity/portal-tools/internal/domain"
	"github.com/digcity/portal-tools/internal/gcsuploader"
	"github.com/digcity/portal-tools/internal/logger"
	"github.com/digcity/portal-tools/internal/ogpreview"
	"github.com/digcity/portal-tools/internal/sitemap"
)

const (
	DefaultSitemapDir = "public"
	DefaultOGDir      = "public/og"
	DefaultSiteName   = "DIGCITY"
)

// PostLister reads the published blog posts.
type PostLister interface {
	ListPublishedPosts(ctx context.Context) ([]domain.Post, error)
}

// ArtifactPublisher uploads generated files to the bucket.
type ArtifactPublisher interface {
	UploadFile(ctx context.Context, objectName, filePath string) (string, error)
	UploadDir(ctx context.Context, dir, prefix string) ([]string, error)
}

// SitemapJob describes one sitemap generation.
type SitemapJob struct {
	Dir     string
	BaseURL string
	Routes  []sitemap.Route
	MaxURLs int
	Now     time.Time
}

// GenerateSitemap writes the sitemap for the static routes and every
// published post, then publishes the directory when pub is set. Publish
// failures are logged; the local files are the result.
func GenerateSitemap(ctx context.Context, posts PostLister, pub ArtifactPublisher, job SitemapJob) ([]string, error) {
	log := logger.FromContext(ctx)

	if job.Dir == "" {
		job.Dir = DefaultSitemapDir
	}
	if job.Routes == nil {
		job.Routes = sitemap.DefaultRoutes
	}
	if job.MaxURLs <= 0 {
		job.MaxURLs = sitemap.MaxURLs
	}
	if job.Now.IsZero() {
		job.Now = time.Now()
	}

	list, err := posts.ListPublishedPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("GenerateSitemap: %w", err)
	}

	urls := sitemap.Build(job.BaseURL, job.Routes, list, job.Now)
	files, err := sitemap.Write(job.Dir, job.BaseURL, urls, job.MaxURLs, job.Now)
	if err != nil {
		return nil, fmt.Errorf("GenerateSitemap: %w", err)
	}
	log.Info().Int("urls", len(urls)).Int("files", len(files)).Int("posts", len(list)).Msg("Sitemap written")

	if pub != nil {
		publishFiles(ctx, pub, files, path.Join(PublishRoot, "sitemap"))
	}
	return files, nil
}

// GenerateOG writes one Open Graph preview page per published post and
// publishes the directory when pub is set.
func GenerateOG(ctx context.Context, posts PostLister, pub ArtifactPublisher, dir string, site ogpreview.Site) ([]string, error) {
	log := logger.FromContext(ctx)

	if dir == "" {
		dir = DefaultOGDir
	}
	if site.Name == "" {
		site.Name = DefaultSiteName
	}

	list, err := posts.ListPublishedPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("GenerateOG: %w", err)
	}

	written, err := ogpreview.WriteAll(ctx, dir, list, site)
	if err != nil {
		return written, fmt.Errorf("GenerateOG: %w", err)
	}

	if pub != nil {
		if _, err := pub.UploadDir(ctx, dir, path.Join(PublishRoot, "og")); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("Publishing preview pages failed")
		}
	}
	return written, nil
}

// Only the sitemap files are published, not the rest of the public
// directory they are written into.
func publishFiles(ctx context.Context, pub ArtifactPublisher, files []string, prefix string) {
	log := logger.FromContext(ctx)
	for _, f := range files {
		if _, err := pub.UploadFile(ctx, gcsuploader.ObjectName(prefix, filepath.Base(f)), f); err != nil {
			log.Error().Err(err).Str("file", f).Msg("Publishing sitemap failed")
		}
	}
}

// SiteEnv opens the clients the site generators need: the database for posts
// and SITE_URL for absolute links.
func SiteEnv(ctx context.Context, cfg *config.Config) (*Env, error) {
	return Open(ctx, cfg, Options{RequireStore: true, Required: []string{config.EnvSiteURL}})
}

// Publisher returns the uploader as an ArtifactPublisher, or nil when publishing
// is not configured.
func (e *Env) Publisher() ArtifactPublisher {
	if e.Uploader == nil {
		return nil
	}
	return e.Uploader
}

// RunSitemap opens the site clients, generates the sitemap and closes them.
func RunSitemap(ctx context.Context, cfg *config.Config, job SitemapJob) ([]string, error) {
	env, err := SiteEnv(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	job.BaseURL = cfg.SiteURL
	return GenerateSitemap(ctx, env.Store, env.Publisher(), job)
}

// RunOG opens the site clients, writes the preview pages and closes them.
func RunOG(ctx context.Context, cfg *config.Config, dir string, site ogpreview.Site) ([]string, error) {
	env, err := SiteEnv(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	site.BaseURL = cfg.SiteURL
	return GenerateOG(ctx, env.Store, env.Publisher(), dir, site)
}
