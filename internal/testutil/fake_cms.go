// Package testutil provides shared test doubles for the content pipeline.
package testutil

import (
	"context"
	"strings"
	"sync"

	"git.home.luguber.info/inful/storysite/internal/cms"
	serrors "git.home.luguber.info/inful/storysite/internal/errors"
)

// FakeCMS is an in-memory cms.Client for tests. Per-call errors can be
// injected to exercise degradation paths.
type FakeCMS struct {
	mu sync.Mutex

	Links   []cms.Link
	Stories []cms.Story

	LinksErr   error
	StoriesErr error
	StoryErr   error

	// PerPageOverride forces FetchAllStories paging regardless of the
	// requested perPage, for multi-page fixtures.
	PerPageOverride int

	// Calls records method invocations in order.
	Calls []string
}

var _ cms.Client = (*FakeCMS)(nil)

func (f *FakeCMS) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *FakeCMS) FetchLinks(ctx context.Context, version string) ([]cms.Link, error) {
	f.record("FetchLinks")
	if f.LinksErr != nil {
		return nil, f.LinksErr
	}
	return append([]cms.Link(nil), f.Links...), nil
}

func (f *FakeCMS) FetchLinksByPrefix(ctx context.Context, prefix, version string) ([]cms.Link, error) {
	f.record("FetchLinksByPrefix")
	if f.LinksErr != nil {
		return nil, f.LinksErr
	}
	var out []cms.Link
	for _, l := range f.Links {
		if strings.HasPrefix(l.Slug, prefix) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *FakeCMS) FetchStoriesBySlugs(ctx context.Context, slugs []string, version string) ([]cms.Story, error) {
	f.record("FetchStoriesBySlugs")
	if f.StoriesErr != nil {
		return nil, f.StoriesErr
	}
	want := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		want[s] = true
	}
	var out []cms.Story
	for _, story := range f.Stories {
		if want[story.NormalizedSlug()] {
			out = append(out, story)
		}
	}
	return out, nil
}

func (f *FakeCMS) FetchAllStories(ctx context.Context, version string, page, perPage int) (cms.StoriesPage, error) {
	f.record("FetchAllStories")
	if f.StoriesErr != nil {
		return cms.StoriesPage{}, f.StoriesErr
	}
	if f.PerPageOverride > 0 {
		perPage = f.PerPageOverride
	}
	total := len(f.Stories)
	start := (page - 1) * perPage
	if start >= total {
		return cms.StoriesPage{Total: total}, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return cms.StoriesPage{
		Stories: append([]cms.Story(nil), f.Stories[start:end]...),
		Total:   total,
	}, nil
}

func (f *FakeCMS) FetchStory(ctx context.Context, slug, version string) (*cms.Story, error) {
	f.record("FetchStory")
	if f.StoryErr != nil {
		return nil, f.StoryErr
	}
	for i := range f.Stories {
		if f.Stories[i].NormalizedSlug() == cms.NormalizeSlug(slug) {
			story := f.Stories[i]
			return &story, nil
		}
	}
	return nil, serrors.NotFound("no story for slug " + slug)
}
