package navigation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"git.home.luguber.info/inful/storysite/internal/cms"
	"git.home.luguber.info/inful/storysite/internal/content"
	"git.home.luguber.info/inful/storysite/internal/logfields"
	"git.home.luguber.info/inful/storysite/internal/metrics"
)

// FooterPrefix is the reserved link-tree subtree holding footer entries.
const FooterPrefix = "_footer"

// FooterLink is one footer navigation entry.
type FooterLink struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Position int    `json:"position"`
}

// Builder fetches the link tree and derives navigation data from it.
type Builder struct {
	client   cms.Client
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewBuilder creates a navigation builder over the given content client.
func NewBuilder(client cms.Client, recorder metrics.Recorder, logger *slog.Logger) *Builder {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{client: client, recorder: recorder, logger: logger}
}

// Build fetches links and stories and derives the navigation tree. Upstream
// failures never propagate: a failed links fetch yields the empty structure,
// a failed enrichment fetch yields navigation without icons or descriptions.
func (b *Builder) Build(ctx context.Context, version string) Data {
	start := time.Now()
	defer func() {
		b.recorder.ObserveNavigationBuild(time.Since(start))
	}()

	links, err := b.client.FetchLinks(ctx, version)
	if err != nil {
		b.logger.Error("Navigation links fetch failed, serving empty navigation",
			logfields.Version(version), logfields.Error(err))
		return Empty()
	}
	if len(links) == 0 {
		return Empty()
	}

	// The enrichment fetch needs the slug list, so it runs after the link
	// result is computed; its failure is contained here.
	data := BuildFromLinks(links, b.fetchEnrichment(ctx, links, version))
	b.logger.Debug("Navigation built",
		logfields.LinkCount(len(links)),
		slog.Int("groups", len(data.Grouped)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return data
}

// fetchEnrichment loads icon/description fields for every non-folder link.
// Failures degrade to an empty map.
func (b *Builder) fetchEnrichment(ctx context.Context, links []cms.Link, version string) map[string]Enrichment {
	slugs := make([]string, 0, len(links))
	for _, l := range FilterLinks(links) {
		if l.IsFolder {
			continue
		}
		slugs = append(slugs, cms.NormalizeSlug(l.Slug))
	}
	if len(slugs) == 0 {
		return nil
	}

	stories, err := b.client.FetchStoriesBySlugs(ctx, slugs, version)
	if err != nil {
		b.logger.Warn("Navigation enrichment fetch failed, continuing without icons/descriptions",
			logfields.Version(version), logfields.Error(err))
		return nil
	}

	enrichment := make(map[string]Enrichment, len(stories))
	for _, story := range stories {
		blok, err := content.Decode(story.Content)
		if err != nil {
			b.logger.Warn("Skipping malformed story content during enrichment",
				logfields.Slug(story.FullSlug), logfields.Error(err))
			continue
		}
		enrichment[story.NormalizedSlug()] = Enrichment{
			Description: blok.Description,
			Icon:        blok.Icon,
		}
	}
	return enrichment
}

// FooterLinks fetches the reserved footer subtree. Folders are dropped and
// entries are position-sorted; a fetch failure yields the empty list.
func (b *Builder) FooterLinks(ctx context.Context, version string) []FooterLink {
	links, err := b.client.FetchLinksByPrefix(ctx, FooterPrefix, version)
	if err != nil {
		b.logger.Error("Footer links fetch failed, serving empty footer",
			logfields.Version(version), logfields.Error(err))
		return []FooterLink{}
	}

	footer := make([]FooterLink, 0, len(links))
	for _, l := range links {
		if l.IsFolder {
			continue
		}
		slug := l.RealPath
		if slug == "" {
			slug = l.Slug
		}
		footer = append(footer, FooterLink{
			ID:       l.ID,
			Name:     l.Name,
			Slug:     slug,
			Position: l.Position,
		})
	}
	sort.SliceStable(footer, func(i, j int) bool { return footer[i].Position < footer[j].Position })
	return footer
}
