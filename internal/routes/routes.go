// Package routes builds the static route list used for pre-rendering: every
// published page path, with folders and reserved subtrees excluded. The list
// can be written to disk as a JSON array for build tooling to consume.
package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"git.home.luguber.info/inful/storysite/internal/cms"
	serrors "git.home.luguber.info/inful/storysite/internal/errors"
	"git.home.luguber.info/inful/storysite/internal/logfields"
)

const defaultPerPage = 100

// maxPages bounds the pagination loop when every page errors out, so a
// persistently failing upstream cannot spin the generator forever.
const maxPages = 1000

// Generator assembles the route list from the story listing.
type Generator struct {
	client  cms.Client
	perPage int
	logger  *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithPerPage overrides the listing page size.
func WithPerPage(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.perPage = n
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator creates a route list generator.
func NewGenerator(client cms.Client, opts ...Option) *Generator {
	g := &Generator{
		client:  client,
		perPage: defaultPerPage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the sorted, deduplicated route list for the given content
// version. Folder paths from the link tree are excluded from the result, the
// home story maps to "/", and a page-level fetch failure is logged and
// skipped rather than aborting the run. Only a fully failed listing, where
// no page could be fetched at all, surfaces as an error.
func (g *Generator) Generate(ctx context.Context, version string) ([]string, error) {
	folders := g.folderSlugs(ctx, version)

	seen := map[string]bool{}
	fetched := false
	total := -1
	collected := 0

	for page := 1; page <= maxPages; page++ {
		res, err := g.client.FetchAllStories(ctx, version, page, g.perPage)
		if err != nil {
			g.logger.Warn("route listing page failed, skipping",
				logfields.Page(page), logfields.Error(err))
			if !fetched {
				return nil, serrors.Wrap(err, serrors.CategoryCMS, serrors.SeverityError,
					"route listing unavailable")
			}
			continue
		}
		fetched = true
		total = res.Total
		collected += len(res.Stories)

		for _, s := range res.Stories {
			if s.IsFolder || hidden(s.FullSlug) {
				continue
			}
			slug := s.NormalizedSlug()
			if folders[slug] {
				continue
			}
			seen[routeFor(slug)] = true
		}

		if len(res.Stories) == 0 || (total >= 0 && collected >= total) {
			break
		}
	}

	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

// WriteFile generates the route list and writes it to path as indented JSON.
func (g *Generator) WriteFile(ctx context.Context, version, path string) error {
	routes, err := g.Generate(ctx, version)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(routes, "", "  ")
	if err != nil {
		return serrors.Wrap(err, serrors.CategoryRuntime, serrors.SeverityError, "encode route list")
	}
	if err := os.WriteFile(path, append(body, '\n'), 0o644); err != nil {
		return serrors.Wrap(err, serrors.CategoryRuntime, serrors.SeverityError,
			fmt.Sprintf("write route list to %s", path))
	}
	g.logger.Info("route list written", logfields.Path(path), slog.Int("routes", len(routes)))
	return nil
}

// folderSlugs collects the folder paths from the link tree. A failed fetch
// degrades to an empty set; folder stories are then still filtered by the
// listing's own is_folder flag.
func (g *Generator) folderSlugs(ctx context.Context, version string) map[string]bool {
	links, err := g.client.FetchLinks(ctx, version)
	if err != nil {
		g.logger.Warn("link tree unavailable for folder filtering", logfields.Error(err))
		return map[string]bool{}
	}
	folders := make(map[string]bool)
	for _, l := range links {
		if l.IsFolder {
			folders[cms.NormalizeSlug(l.Slug)] = true
		}
	}
	return folders
}

func routeFor(slug string) string {
	if slug == "" || slug == "home" {
		return "/"
	}
	return "/" + slug
}

func hidden(slug string) bool {
	for _, seg := range strings.Split(slug, "/") {
		if strings.HasPrefix(seg, "_") {
			return true
		}
	}
	return false
}
