package domain

import "time"

// Post is a published blog article as stored by the portal. It is read for
// sitemap and preview generation, never imported.
type Post struct {
	Slug        string
	Title       string
	Excerpt     string
	Content     string
	CoverImage  string
	Author      string
	PublishedAt time.Time
	UpdatedAt   time.Time
}

// LastModified is the most recent of UpdatedAt and PublishedAt.
func (p Post) LastModified() time.Time {
	if p.UpdatedAt.After(p.PublishedAt) {
		return p.UpdatedAt
	}
	return p.PublishedAt
}
