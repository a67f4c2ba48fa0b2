// Package ogpreview renders static HTML pages carrying Open Graph and Twitter
// card metadata for blog posts. Crawlers read the tags; browsers are sent on
// to the SPA route.
package ogpreview

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/digcity/portal-tools/internal/domain"
	"github.com/digcity/portal-tools/internal/logger"
)

// DescriptionLimit is the rune budget of a description derived from content.
const DescriptionLimit = 160

// Site carries the settings shared by every preview.
type Site struct {
	Name          string
	BaseURL       string
	DefaultImage  string
	TwitterHandle string
	Locale        string
}

type page struct {
	Title         string
	SiteName      string
	Description   string
	URL           string
	Image         string
	Locale        string
	Author        string
	Published     string
	Modified      string
	TwitterHandle string
}

var pageTmpl = template.Must(template.New("og").Parse(`<!DOCTYPE html>
<html lang="id">
<head>
<meta charset="utf-8">
<title>{{.Title}} | {{.SiteName}}</title>
<meta name="description" content="{{.Description}}">
<link rel="canonical" href="{{.URL}}">
<meta property="og:type" content="article">
<meta property="og:site_name" content="{{.SiteName}}">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:url" content="{{.URL}}">
{{- if .Image}}
<meta property="og:image" content="{{.Image}}">
{{- end}}
<meta property="og:locale" content="{{.Locale}}">
<meta property="article:published_time" content="{{.Published}}">
<meta property="article:modified_time" content="{{.Modified}}">
{{- if .Author}}
<meta property="article:author" content="{{.Author}}">
{{- end}}
<meta name="twitter:card" content="{{if .Image}}summary_large_image{{else}}summary{{end}}">
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
{{- if .Image}}
<meta name="twitter:image" content="{{.Image}}">
{{- end}}
{{- if .TwitterHandle}}
<meta name="twitter:site" content="{{.TwitterHandle}}">
{{- end}}
<meta http-equiv="refresh" content="0; url={{.URL}}">
<script>window.location.replace({{.URL}});</script>
</head>
<body>
<p><a href="{{.URL}}">{{.Title}}</a></p>
</body>
</html>
`))

var (
	tagRe  = regexp.MustCompile(`<[^>]*>`)
	slugRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// Render builds the preview page for one post.
func Render(post domain.Post, site Site) ([]byte, error) {
	if post.Slug == "" {
		return nil, fmt.Errorf("Render: post %q has no slug", post.Title)
	}

	base := strings.TrimRight(site.BaseURL, "/")
	locale := site.Locale
	if locale == "" {
		locale = "id_ID"
	}

	p := page{
		Title:         post.Title,
		SiteName:      site.Name,
		Description:   Description(post),
		URL:           base + "/blog/" + url.PathEscape(post.Slug),
		Image:         imageURL(post.CoverImage, site.DefaultImage, base),
		Locale:        locale,
		Author:        post.Author,
		Published:     post.PublishedAt.UTC().Format(time.RFC3339),
		Modified:      post.LastModified().UTC().Format(time.RFC3339),
		TwitterHandle: site.TwitterHandle,
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("Render: %s: %w", post.Slug, err)
	}
	return buf.Bytes(), nil
}

// Description is the excerpt when present, otherwise the first
// DescriptionLimit runes of the content with markup removed.
func Description(post domain.Post) string {
	if ex := collapse(post.Excerpt); ex != "" {
		return ex
	}
	text := collapse(html.UnescapeString(tagRe.ReplaceAllString(post.Content, " ")))
	if utf8.RuneCountInString(text) <= DescriptionLimit {
		return text
	}
	return strings.TrimSpace(string([]rune(text)[:DescriptionLimit]))
}

// WriteAll writes <dir>/<slug>/index.html for every post and returns the
// written paths. Posts whose slug cannot be used as a directory name are
// skipped with a warning; filesystem errors abort.
func WriteAll(ctx context.Context, dir string, posts []domain.Post, site Site) ([]string, error) {
	log := logger.FromContext(ctx)

	var written []string
	for _, post := range posts {
		if !slugRe.MatchString(post.Slug) {
			log.Warn().Str("slug", post.Slug).Str("title", post.Title).Msg("Skipping post with unusable slug")
			continue
		}

		body, err := Render(post, site)
		if err != nil {
			return written, err
		}

		postDir := filepath.Join(dir, post.Slug)
		if err := os.MkdirAll(postDir, 0o755); err != nil {
			return written, fmt.Errorf("WriteAll: create %s: %w", postDir, err)
		}
		p := filepath.Join(postDir, "index.html")
		if err := os.WriteFile(p, body, 0o644); err != nil {
			return written, fmt.Errorf("WriteAll: write %s: %w", p, err)
		}
		written = append(written, p)
	}

	log.Info().Int("pages", len(written)).Str("dir", dir).Msg("Wrote preview pages")
	return written, nil
}

func imageURL(cover, fallback, base string) string {
	img := cover
	if img == "" {
		img = fallback
	}
	if strings.HasPrefix(img, "/") {
		return base + img
	}
	return img
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
