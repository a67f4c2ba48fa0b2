// Package sitemap builds sitemap protocol 0.9 files for the portal.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/digcity/portal-tools/internal/domain"
)

const (
	Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

	// MaxURLs is the protocol limit of URLs per file.
	MaxURLs = 50000

	dateLayout = "2006-01-02"
)

type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

type Entry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type Index struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Xmlns    string   `xml:"xmlns,attr"`
	Sitemaps []Entry  `xml:"sitemap"`
}

// Route is a static SPA page.
type Route struct {
	Path       string
	ChangeFreq string
	Priority   float64
}

// DefaultRoutes are the portal's public pages.
var DefaultRoutes = []Route{
	{Path: "/", ChangeFreq: "daily", Priority: 1.0},
	{Path: "/about", ChangeFreq: "monthly", Priority: 0.8},
	{Path: "/divisions", ChangeFreq: "monthly", Priority: 0.7},
	{Path: "/events", ChangeFreq: "weekly", Priority: 0.8},
	{Path: "/blog", ChangeFreq: "daily", Priority: 0.9},
	{Path: "/contact", ChangeFreq: "yearly", Priority: 0.5},
}

// Build lists the static routes followed by one URL per post. Static routes
// carry now as their last modification date.
func Build(baseURL string, routes []Route, posts []domain.Post, now time.Time) []URL {
	base := strings.TrimRight(baseURL, "/")
	urls := make([]URL, 0, len(routes)+len(posts))

	for _, r := range routes {
		urls = append(urls, URL{
			Loc:        base + normalizePath(r.Path),
			LastMod:    now.Format(dateLayout),
			ChangeFreq: r.ChangeFreq,
			Priority:   formatPriority(r.Priority),
		})
	}
	for _, p := range posts {
		if p.Slug == "" {
			continue
		}
		urls = append(urls, URL{
			Loc:        base + "/blog/" + url.PathEscape(p.Slug),
			LastMod:    p.LastModified().Format(dateLayout),
			ChangeFreq: "weekly",
			Priority:   "0.7",
		})
	}
	return urls
}

// Split cuts urls into files of at most max entries.
func Split(urls []URL, max int) [][]URL {
	if max <= 0 || max > MaxURLs {
		max = MaxURLs
	}
	var parts [][]URL
	for len(urls) > max {
		parts = append(parts, urls[:max])
		urls = urls[max:]
	}
	if len(urls) > 0 {
		parts = append(parts, urls)
	}
	return parts
}

// Write stores urls under dir. A single part is written as sitemap.xml;
// otherwise sitemap-1.xml ... sitemap-N.xml are written and sitemap.xml
// becomes an index pointing at them. It returns the written paths.
func Write(dir, baseURL string, urls []URL, max int, now time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("Write: create dir: %w", err)
	}

	parts := Split(urls, max)
	if len(parts) <= 1 {
		set := URLSet{Xmlns: Namespace}
		if len(parts) == 1 {
			set.URLs = parts[0]
		}
		p := filepath.Join(dir, "sitemap.xml")
		if err := writeXML(p, set); err != nil {
			return nil, err
		}
		return []string{p}, nil
	}

	base := strings.TrimRight(baseURL, "/")
	index := Index{Xmlns: Namespace}
	written := make([]string, 0, len(parts)+1)

	for i, part := range parts {
		name := "sitemap-" + strconv.Itoa(i+1) + ".xml"
		p := filepath.Join(dir, name)
		if err := writeXML(p, URLSet{Xmlns: Namespace, URLs: part}); err != nil {
			return written, err
		}
		written = append(written, p)
		index.Sitemaps = append(index.Sitemaps, Entry{Loc: base + "/" + name, LastMod: now.Format(dateLayout)})
	}

	p := filepath.Join(dir, "sitemap.xml")
	if err := writeXML(p, index); err != nil {
		return written, err
	}
	return append(written, p), nil
}

func writeXML(path string, v any) error {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("writeXML: marshal %s: %w", path, err)
	}
	out := append([]byte(xml.Header), body...)
	out = append(out, '\n')
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writeXML: %w", err)
	}
	return nil
}

func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func formatPriority(p float64) string {
	if p <= 0 {
		return ""
	}
	if p > 1 {
		p = 1
	}
	return strconv.FormatFloat(p, 'f', 1, 64)
}
