package seo

import (
	"time"

	"git.home.luguber.info/inful/storysite/internal/cms"
	"git.home.luguber.info/inful/storysite/internal/content"
)

// descriptionLimit caps body-derived descriptions.
const descriptionLimit = 160

// PageOptions selects the page archetype for head derivation.
type PageOptions struct {
	// IsHome switches to the site archetype: site-level fallbacks and
	// WebSite/Organization structured data.
	IsHome bool
	// Path is the canonical URL path of the page, starting with "/".
	Path string
}

// ForHome derives the head document fields and structured data for the
// site root. The story and its content block may be nil.
func (d *Deriver) ForHome(story *cms.Story) (Fields, []StructuredData) {
	var blok *content.Blok
	if story != nil {
		blok, _ = content.Decode(story.Content)
	}

	f := Fields{
		Type:     TypeWebsite,
		SiteName: d.site.Name,
		URL:      d.site.BaseURL + "/",
	}
	if blok != nil && blok.SEO != nil {
		f.Title = blok.SEO.Title
		f.Description = blok.SEO.Description
		if blok.SEO.Image != nil {
			f.Image = blok.SEO.Image.Filename
		}
	}
	if f.Title == "" && story != nil {
		f.Title = story.Name
	}
	if f.Title == "" {
		f.Title = d.site.Name
	}
	if f.Description == "" {
		f.Description = d.site.Description
	}
	if f.Description == "" && blok != nil {
		f.Description = content.Truncate(content.PlainTextFromBloks(blok.Body), descriptionLimit)
	}
	if f.Image == "" && blok != nil {
		f.Image = content.FirstImage(blok)
	}

	site := d.StructuredData("WebSite", map[string]any{
		"name":        d.site.Name,
		"description": d.site.Description,
		"url":         d.site.BaseURL,
		"potentialAction": map[string]any{
			"@type": "SearchAction",
			"target": map[string]any{
				"@type":       "EntryPoint",
				"urlTemplate": d.site.BaseURL + "/search?q={search_term_string}",
			},
			"query-input": "required name=search_term_string",
		},
	})
	org := d.StructuredData("Organization", map[string]any{
		"name":        d.site.Name,
		"description": d.site.Description,
		"url":         d.site.BaseURL,
		"logo":        d.AbsoluteImageURL(d.site.LogoPath),
	})
	if len(d.site.SameAs) > 0 {
		org["sameAs"] = d.site.SameAs
	}

	return f, []StructuredData{site, org}
}

// ForStory derives the head document fields and structured data for a
// regular story page. Stories whose content carries a body become articles;
// everything else is a plain web page.
func (d *Deriver) ForStory(story *cms.Story, opts PageOptions) (Fields, []StructuredData) {
	if opts.IsHome {
		return d.ForHome(story)
	}
	if story == nil {
		f := Fields{Type: TypeWebsite, SiteName: d.site.Name, URL: d.site.BaseURL + opts.Path}
		return f, []StructuredData{d.webPage(f)}
	}

	blok, _ := content.Decode(story.Content)
	isArticle := blok != nil && blok.Component == content.KindPage && len(blok.Body) > 0

	f := Fields{
		SiteName: d.site.Name,
		URL:      d.site.BaseURL + opts.Path,
		Type:     TypeWebsite,
	}
	if isArticle {
		f.Type = TypeArticle
	}
	if blok != nil && blok.SEO != nil {
		f.Title = blok.SEO.Title
		f.Description = blok.SEO.Description
		if blok.SEO.Image != nil {
			f.Image = blok.SEO.Image.Filename
		}
	}
	if f.Title == "" {
		f.Title = story.Name
	}
	if f.Title == "" {
		f.Title = d.site.Name
	}
	if f.Description == "" && blok != nil {
		f.Description = content.Truncate(content.PlainTextFromBloks(blok.Body), descriptionLimit)
	}
	if f.Image == "" && blok != nil {
		if blok.Image != nil && blok.Image.Filename != "" {
			f.Image = blok.Image.Filename
		} else {
			f.Image = content.FirstImage(blok)
		}
	}
	if blok != nil {
		f.Author = blok.Author
		f.Tags = blok.Tags
	}
	if story.PublishedAt != nil {
		f.PublishedTime = story.PublishedAt.UTC().Format(time.RFC3339)
	} else if story.CreatedAt != nil {
		f.PublishedTime = story.CreatedAt.UTC().Format(time.RFC3339)
	}
	f.ModifiedTime = f.PublishedTime

	if isArticle {
		return f, []StructuredData{d.article(f)}
	}
	return f, []StructuredData{d.webPage(f)}
}

func (d *Deriver) article(f Fields) StructuredData {
	author := map[string]any{"@type": "Organization", "name": d.site.Name}
	if f.Author != "" {
		author = map[string]any{"@type": "Person", "name": f.Author}
	}
	sd := d.StructuredData("Article", map[string]any{
		"headline":    f.Title,
		"description": f.Description,
		"image":       d.AbsoluteImageURL(f.Image),
		"url":         f.URL,
		"author":      author,
		"publisher": map[string]any{
			"@type": "Organization",
			"name":  d.site.Name,
			"logo": map[string]any{
				"@type": "ImageObject",
				"url":   d.AbsoluteImageURL(d.site.LogoPath),
			},
		},
		"mainEntityOfPage": map[string]any{
			"@type": "WebPage",
			"@id":   f.URL,
		},
	})
	if f.PublishedTime != "" {
		sd["datePublished"] = f.PublishedTime
	}
	if f.ModifiedTime != "" {
		sd["dateModified"] = f.ModifiedTime
	}
	return sd
}

func (d *Deriver) webPage(f Fields) StructuredData {
	return d.StructuredData("WebPage", map[string]any{
		"name":        f.Title,
		"description": f.Description,
		"url":         f.URL,
		"isPartOf": map[string]any{
			"@type": "WebSite",
			"name":  d.site.Name,
			"url":   d.site.BaseURL,
		},
	})
}
