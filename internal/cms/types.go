// Package cms implements the client for the upstream headless content API.
// It supplies the raw link tree and story documents that the derivation
// pipeline (navigation, seo, sitemap, routes) consumes.
package cms

import (
	"encoding/json"
	"strings"
	"time"
)

// Content stages the upstream API can serve.
const (
	VersionPublished = "published"
	VersionDraft     = "draft"
)

// Link is one entry in the site's link tree: a navigable page or a folder
// grouping other links. Positions order siblings; ParentID is zero for
// top-level entries.
type Link struct {
	ID          int64  `json:"id"`
	UUID        string `json:"uuid,omitempty"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Path        string `json:"path,omitempty"`
	RealPath    string `json:"real_path,omitempty"`
	IsFolder    bool   `json:"is_folder"`
	ParentID    int64  `json:"parent_id"`
	Position    int    `json:"position"`
	IsStartpage bool   `json:"is_startpage,omitempty"`
	Published   bool   `json:"published,omitempty"`
}

// HasParent reports whether the link sits under another link in the tree.
func (l Link) HasParent() bool {
	return l.ParentID != 0
}

// Story is one content document. Content stays raw until a consumer decodes
// it into a content.Blok tree.
type Story struct {
	ID          int64           `json:"id"`
	UUID        string          `json:"uuid,omitempty"`
	Name        string          `json:"name"`
	FullSlug    string          `json:"full_slug"`
	IsFolder    bool            `json:"is_folder,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
}

// NormalizedSlug returns the story's full slug with a single trailing slash
// stripped. Normalization is idempotent.
func (s Story) NormalizedSlug() string {
	return NormalizeSlug(s.FullSlug)
}

// LastModified returns the published timestamp, falling back to the created
// timestamp, falling back to now.
func (s Story) LastModified(now time.Time) time.Time {
	if s.PublishedAt != nil {
		return *s.PublishedAt
	}
	if s.CreatedAt != nil {
		return *s.CreatedAt
	}
	return now
}

// NormalizeSlug strips one trailing slash from a slug.
func NormalizeSlug(slug string) string {
	return strings.TrimSuffix(slug, "/")
}

// StoriesPage is one page of a paginated stories listing. Total is the
// upstream total across all pages.
type StoriesPage struct {
	Stories []Story
	Total   int
}
