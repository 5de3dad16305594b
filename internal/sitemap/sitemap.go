// Package sitemap renders the sitemap.xml document from the full published
// story listing. Generation is failure-contained: when the upstream listing
// cannot be fetched the generator falls back to a root-only sitemap so the
// site always serves a well-formed document.
package sitemap

import (
	"context"
	"encoding/xml"
	"log/slog"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/storysite/internal/cms"
	"git.home.luguber.info/inful/storysite/internal/logfields"
	"git.home.luguber.info/inful/storysite/internal/metrics"
)

// lastModFormat is ISO-8601 with millisecond precision, matching what
// sitemap consumers have been fed historically.
const lastModFormat = "2006-01-02T15:04:05.000Z07:00"

const defaultPerPage = 100

// urlSet is the sitemap protocol root element.
type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []Entry  `xml:"url"`
}

// Entry is one sitemap URL record. Priority is kept as a string so the
// rendered document carries the exact "1.0"/"0.8" forms.
type Entry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Generator builds sitemap documents for one site.
type Generator struct {
	client   cms.Client
	baseURL  string
	perPage  int
	recorder metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) GeneratorOption {
	return func(g *Generator) { g.recorder = r }
}

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// WithPerPage overrides the listing page size.
func WithPerPage(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.perPage = n
		}
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a sitemap generator. baseURL is the public site root
// without a trailing slash.
func NewGenerator(client cms.Client, baseURL string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		client:   client,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		perPage:  defaultPerPage,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders the sitemap document for the given content version. The
// story listing is paged exhaustively; any fetch failure degrades to the
// root-only fallback document instead of an error.
func (g *Generator) Generate(ctx context.Context, version string) []byte {
	start := time.Now()

	stories, err := g.fetchAll(ctx, version)
	if err != nil {
		g.logger.Warn("sitemap story listing failed, serving root-only fallback",
			logfields.Error(err), logfields.Version(version))
		g.recorder.ObserveSitemapGeneration(time.Since(start), false)
		return render([]Entry{g.rootEntry(g.now().UTC())})
	}

	entries := g.entries(stories)
	g.recorder.ObserveSitemapGeneration(time.Since(start), true)
	g.logger.Info("sitemap generated",
		logfields.StoryCount(len(entries)), logfields.Version(version))
	return render(entries)
}

// fetchAll pages through the complete story listing.
func (g *Generator) fetchAll(ctx context.Context, version string) ([]cms.Story, error) {
	var stories []cms.Story
	for page := 1; ; page++ {
		res, err := g.client.FetchAllStories(ctx, version, page, g.perPage)
		if err != nil {
			return nil, err
		}
		stories = append(stories, res.Stories...)
		if len(res.Stories) == 0 || len(stories) >= res.Total {
			return stories, nil
		}
	}
}

// entries maps stories to sitemap records: a root entry stamped with the
// current time at daily/1.0, then one weekly/0.8 entry per non-home story.
// Folders and hidden subtrees are skipped; a story with an empty slug maps
// to the bare base URL.
func (g *Generator) entries(stories []cms.Story) []Entry {
	now := g.now().UTC()
	entries := make([]Entry, 0, len(stories)+1)
	entries = append(entries, g.rootEntry(now))

	for _, s := range stories {
		if s.IsFolder || hidden(s.FullSlug) {
			continue
		}
		slug := s.NormalizedSlug()
		if slug == "home" {
			continue
		}
		loc := g.baseURL
		if slug != "" {
			loc = g.baseURL + "/" + slug
		}
		entries = append(entries, Entry{
			Loc:        loc,
			LastMod:    s.LastModified(now).UTC().Format(lastModFormat),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Loc < entries[j].Loc })
	return entries
}

func (g *Generator) rootEntry(now time.Time) Entry {
	return Entry{
		Loc:        g.baseURL + "/",
		LastMod:    now.Format(lastModFormat),
		ChangeFreq: "daily",
		Priority:   "1.0",
	}
}

// hidden reports whether any slug segment is underscore-prefixed, marking
// reserved subtrees like "_footer" that never become public pages.
func hidden(slug string) bool {
	for _, seg := range strings.Split(slug, "/") {
		if strings.HasPrefix(seg, "_") {
			return true
		}
	}
	return false
}

// render serializes the URL set with the XML declaration prepended.
func render(entries []Entry) []byte {
	set := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  entries,
	}
	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		// The URL set contains only strings; marshaling cannot fail.
		return []byte(xml.Header)
	}
	return append([]byte(xml.Header), append(body, '\n')...)
}
