// Package content models the duck-typed block trees stored in CMS documents
// and provides the read-only traversals the SEO deriver needs: first-image
// search, rich-text image extraction, and plain-text flattening.
package content

import (
	"encoding/json"
	"fmt"
)

// Component kinds the scanners recognize. Every other kind is treated as a
// generic container and only its children-bearing fields are descended into.
const (
	KindImage    = "image"
	KindHero     = "hero"
	KindGrid     = "grid"
	KindCard     = "card"
	KindFeature  = "feature"
	KindText     = "text"
	KindMarkdown = "markdown"
	KindPage     = "page"
)

// maxDepth bounds recursive traversals. Content comes from an external,
// mutable CMS; the format is tree-shaped by construction but a malformed
// payload must not take the walk down with it.
const maxDepth = 64

// Asset is a CMS media reference.
type Asset struct {
	Filename  string `json:"filename,omitempty"`
	Alt       string `json:"alt,omitempty"`
	Title     string `json:"title,omitempty"`
	Copyright string `json:"copyright,omitempty"`
}

// RichText is one node of a rich-text tree. The same shape serves as both
// document root and nested node.
type RichText struct {
	Type    string     `json:"type,omitempty"`
	Text    string     `json:"text,omitempty"`
	Attrs   Attrs      `json:"attrs,omitempty"`
	Content []RichText `json:"content,omitempty"`
}

// Attrs carries the node attributes the scanners care about.
type Attrs struct {
	Src string `json:"src,omitempty"`
	Alt string `json:"alt,omitempty"`
}

// SEOBlock is the per-page SEO override block editors fill in.
type SEOBlock struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       *Asset `json:"image,omitempty"`
}

// Blok is a tagged-union content block. Component selects the kind; only the
// fields meaningful for that kind are populated, everything else stays zero.
// Unknown kinds are traversed through their generic children fields.
type Blok struct {
	UID       string `json:"_uid,omitempty"`
	Component string `json:"component,omitempty"`

	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Author      string    `json:"author,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	SEO         *SEOBlock `json:"seo,omitempty"`

	Image    *Asset    `json:"image,omitempty"`
	Text     *RichText `json:"text,omitempty"`
	Markdown string    `json:"markdown,omitempty"`

	Body       []Blok `json:"body,omitempty"`
	Columns    []Blok `json:"columns,omitempty"`
	Components []Blok `json:"components,omitempty"`
}

// Decode unmarshals a raw story content payload into a Blok tree. Missing or
// empty payloads yield a zero Blok, not an error.
func Decode(raw json.RawMessage) (*Blok, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &Blok{}, nil
	}
	var b Blok
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode content block tree: %w", err)
	}
	return &b, nil
}

// HasBody reports whether the block carries nested body content.
func (b *Blok) HasBody() bool {
	return b != nil && len(b.Body) > 0
}

// ImageFilename returns the block's direct image filename, if any.
func (b *Blok) ImageFilename() string {
	if b == nil || b.Image == nil {
		return ""
	}
	return b.Image.Filename
}
