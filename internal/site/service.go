// Package site resolves public page requests: slug validation, story lookup,
// and head metadata assembly. It is the façade the HTTP layer and the CLI
// talk to.
package site

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/storysite/internal/cms"
	serrors "git.home.luguber.info/inful/storysite/internal/errors"
	"git.home.luguber.info/inful/storysite/internal/logfields"
	"git.home.luguber.info/inful/storysite/internal/navigation"
	"git.home.luguber.info/inful/storysite/internal/seo"
)

// homeSlug is the story slug the site root resolves to.
const homeSlug = "home"

// validSlug matches resolvable page paths: lowercase segments of letters,
// digits and hyphens separated by single slashes.
var validSlug = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*(?:/[a-z0-9]+(?:-[a-z0-9]+)*)*$`)

// excludedSlugs are request paths that reach the catch-all route but are
// never content: crawler probes, asset lookups, tooling endpoints.
var excludedSlugs = []*regexp.Regexp{
	regexp.MustCompile(`^favicon\.ico$`),
	regexp.MustCompile(`^robots\.txt$`),
	regexp.MustCompile(`^\.well-known(/|$)`),
	regexp.MustCompile(`^wp-(admin|content|includes)(/|$)`),
	regexp.MustCompile(`\.(php|asp|aspx|cgi|env|map|json|xml|txt|png|jpg|jpeg|gif|svg|ico|css|js)$`),
}

// Page is a fully resolved public page.
type Page struct {
	Story      *cms.Story           `json:"story"`
	Slug       string               `json:"slug"`
	Path       string               `json:"path"`
	IsHome     bool                 `json:"isHome"`
	Head       seo.HeadDocument     `json:"head"`
	Structured []seo.StructuredData `json:"structuredData"`
}

// Service resolves pages against the content API.
type Service struct {
	client  cms.Client
	nav     *navigation.Builder
	deriver *seo.Deriver
	logger  *slog.Logger
}

// NewService wires the page service from its collaborators.
func NewService(client cms.Client, nav *navigation.Builder, deriver *seo.Deriver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, nav: nav, deriver: deriver, logger: logger}
}

// ResolveSlug normalizes a raw request slug: empty input resolves to the
// home story, excluded and malformed paths surface as not_found so the
// caller renders a 404. The returned slug is trailing-slash free.
func ResolveSlug(raw string) (string, error) {
	slug := strings.Trim(strings.TrimSpace(raw), "/")
	if slug == "" {
		return homeSlug, nil
	}
	lower := strings.ToLower(slug)
	for _, re := range excludedSlugs {
		if re.MatchString(lower) {
			return "", serrors.NotFound(fmt.Sprintf("excluded path %q", slug)).WithContext("slug", slug)
		}
	}
	if !validSlug.MatchString(slug) {
		return "", serrors.NotFound(fmt.Sprintf("malformed slug %q", slug)).WithContext("slug", slug)
	}
	return slug, nil
}

// Page resolves the story behind a request slug and assembles its head
// metadata. A missing story propagates as not_found; head derivation itself
// never fails.
func (s *Service) Page(ctx context.Context, rawSlug, version string) (*Page, error) {
	slug, err := ResolveSlug(rawSlug)
	if err != nil {
		return nil, err
	}

	story, err := s.client.FetchStory(ctx, slug, version)
	if err != nil {
		if serrors.IsNotFound(err) {
			s.logger.Info("page not found", logfields.Slug(slug))
			return nil, err
		}
		return nil, serrors.Wrap(err, serrors.CategoryCMS, serrors.SeverityError,
			fmt.Sprintf("fetch page %q", slug))
	}

	isHome := slug == homeSlug
	path := "/"
	if !isHome {
		path = "/" + slug
	}

	var (
		fields     seo.Fields
		structured []seo.StructuredData
	)
	if isHome {
		fields, structured = s.deriver.ForHome(story)
	} else {
		fields, structured = s.deriver.ForStory(story, seo.PageOptions{Path: path})
	}
	head := s.deriver.SetPageSEO(nil, fields, structured, path)

	return &Page{
		Story:      story,
		Slug:       slug,
		Path:       path,
		IsHome:     isHome,
		Head:       head,
		Structured: structured,
	}, nil
}

// Navigation returns the site navigation for the given content version.
// Upstream failures degrade to the empty shape inside the builder.
func (s *Service) Navigation(ctx context.Context, version string) navigation.Data {
	return s.nav.Build(ctx, version)
}

// Footer returns the footer link list for the given content version.
func (s *Service) Footer(ctx context.Context, version string) []navigation.FooterLink {
	return s.nav.FooterLinks(ctx, version)
}
