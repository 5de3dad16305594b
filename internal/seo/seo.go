// Package seo derives per-page head metadata: meta tags, the canonical link,
// and schema.org structured data, from story content with documented fallback
// chains. The deriver never fails; missing fields degrade to empty strings.
package seo

import (
	"encoding/json"
	"strings"
)

// Page archetypes used for og:type and structured-data selection.
const (
	TypeWebsite = "website"
	TypeArticle = "article"
)

// Fields is the partial SEO input for one page. All fields are optional;
// defaults are documented on GenerateMeta.
type Fields struct {
	Title         string
	Description   string
	Image         string
	URL           string
	Type          string
	SiteName      string
	Author        string
	PublishedTime string
	ModifiedTime  string
	Tags          []string
	NoIndex       bool
	NoFollow      bool
}

// MetaTag is one head meta entry. Attr selects the attribute kind carrying
// the tag name: "name" or "property".
type MetaTag struct {
	Attr    string `json:"attr"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// LinkTag is one head link entry.
type LinkTag struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// ScriptTag is one head script entry, used for JSON-LD payloads.
type ScriptTag struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// HeadDocument is the stable contract handed to the rendering layer.
type HeadDocument struct {
	Title   string      `json:"title"`
	Meta    []MetaTag   `json:"meta"`
	Links   []LinkTag   `json:"links"`
	Scripts []ScriptTag `json:"scripts"`
}

// StructuredData is a schema.org object ready for JSON-LD embedding.
type StructuredData map[string]any

// HeadSink receives computed head documents. The rendering layer implements
// it; tests use an in-memory sink.
type HeadSink interface {
	SetHead(doc HeadDocument)
}

// Site is the ambient site identity passed in at construction instead of
// being read from global state.
type Site struct {
	Name           string
	Description    string
	BaseURL        string
	DefaultOGImage string
	LogoPath       string
	SameAs         []string
}

// Deriver assembles head metadata documents for one site.
type Deriver struct {
	site Site
}

// NewDeriver creates a deriver for the given site identity.
func NewDeriver(site Site) *Deriver {
	site.BaseURL = strings.TrimSuffix(site.BaseURL, "/")
	return &Deriver{site: site}
}

// Site returns the configured site identity.
func (d *Deriver) Site() Site {
	return d.site
}

// GenerateMeta assembles the head document for the given fields. The meta
// set and its order are fixed: description, robots, viewport, Open Graph,
// Twitter Card, then article entries when the page type is "article".
func (d *Deriver) GenerateMeta(f Fields, currentPath string) HeadDocument {
	siteName := f.SiteName
	if siteName == "" {
		siteName = d.site.Name
	}
	pageType := f.Type
	if pageType == "" {
		pageType = TypeWebsite
	}

	currentURL := f.URL
	if currentURL == "" {
		currentURL = d.site.BaseURL + currentPath
	}
	imageURL := d.AbsoluteImageURL(f.Image)

	title := f.Title
	if title == "" {
		title = siteName
	}

	meta := []MetaTag{
		{Attr: "name", Name: "description", Content: f.Description},
		{Attr: "name", Name: "robots", Content: robotsContent(f.NoIndex, f.NoFollow)},
		{Attr: "name", Name: "viewport", Content: "width=device-width, initial-scale=1"},

		{Attr: "property", Name: "og:title", Content: title},
		{Attr: "property", Name: "og:description", Content: f.Description},
		{Attr: "property", Name: "og:image", Content: imageURL},
		{Attr: "property", Name: "og:url", Content: currentURL},
		{Attr: "property", Name: "og:type", Content: pageType},
		{Attr: "property", Name: "og:site_name", Content: siteName},

		{Attr: "name", Name: "twitter:card", Content: "summary_large_image"},
		{Attr: "name", Name: "twitter:title", Content: title},
		{Attr: "name", Name: "twitter:description", Content: f.Description},
		{Attr: "name", Name: "twitter:image", Content: imageURL},
	}

	if pageType == TypeArticle {
		if f.Author != "" {
			meta = append(meta, MetaTag{Attr: "name", Name: "author", Content: f.Author})
		}
		if f.PublishedTime != "" {
			meta = append(meta, MetaTag{Attr: "property", Name: "article:published_time", Content: f.PublishedTime})
		}
		if f.ModifiedTime != "" {
			meta = append(meta, MetaTag{Attr: "property", Name: "article:modified_time", Content: f.ModifiedTime})
		}
		for _, tag := range f.Tags {
			if tag != "" {
				meta = append(meta, MetaTag{Attr: "property", Name: "article:tag", Content: tag})
			}
		}
	}

	return HeadDocument{
		Title:   title,
		Meta:    meta,
		Links:   []LinkTag{{Rel: "canonical", Href: currentURL}},
		Scripts: []ScriptTag{},
	}
}

// StructuredData builds a schema.org object of the given type with the extra
// fields merged in.
func (d *Deriver) StructuredData(schemaType string, extra map[string]any) StructuredData {
	sd := StructuredData{
		"@context": "https://schema.org",
		"@type":    schemaType,
	}
	for k, v := range extra {
		sd[k] = v
	}
	return sd
}

// SetPageSEO computes the head document, attaches structured-data scripts,
// and installs it into the sink. It never fails: unmarshalable payloads are
// skipped, missing fields degrade to empty strings.
func (d *Deriver) SetPageSEO(sink HeadSink, f Fields, structured []StructuredData, currentPath string) HeadDocument {
	doc := d.GenerateMeta(f, currentPath)
	for _, sd := range structured {
		payload, err := json.Marshal(sd)
		if err != nil {
			continue
		}
		doc.Scripts = append(doc.Scripts, ScriptTag{Type: "application/ld+json", Content: string(payload)})
	}
	if sink != nil {
		sink.SetHead(doc)
	}
	return doc
}

// AbsoluteImageURL resolves an image reference against the site base URL.
// Absolute URLs pass through; empty input falls back to the default OG image.
func (d *Deriver) AbsoluteImageURL(image string) string {
	if image == "" {
		image = d.site.DefaultOGImage
	}
	if image == "" {
		return ""
	}
	if strings.HasPrefix(image, "http") {
		return image
	}
	return d.site.BaseURL + image
}

// robotsContent renders the robots directive: each axis defaults to its
// permissive token unless explicitly negated.
func robotsContent(noIndex, noFollow bool) string {
	index := "index"
	if noIndex {
		index = "noindex"
	}
	follow := "follow"
	if noFollow {
		follow = "nofollow"
	}
	return index + ", " + follow
}
