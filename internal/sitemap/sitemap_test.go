package sitemap

import (
	"context"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/storysite/internal/cms"
	serrors "git.home.luguber.info/inful/storysite/internal/errors"
	"git.home.luguber.info/inful/storysite/internal/testutil"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
}

func parse(t *testing.T, doc []byte) urlSet {
	t.Helper()
	var set urlSet
	require.NoError(t, xml.Unmarshal(doc, &set))
	return set
}

func TestGenerateHomeAndPage(t *testing.T) {
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &testutil.FakeCMS{
		Stories: []cms.Story{
			{ID: 1, Name: "Home", FullSlug: "home", PublishedAt: &published},
			{ID: 2, Name: "About", FullSlug: "about", PublishedAt: &published},
		},
	}
	g := NewGenerator(fake, "https://example.com", WithClock(fixedClock()))

	doc := g.Generate(context.Background(), cms.VersionPublished)
	assert.True(t, strings.HasPrefix(string(doc), xml.Header))

	set := parse(t, doc)
	require.Len(t, set.URLs, 2)

	root := set.URLs[0]
	assert.Equal(t, "https://example.com/", root.Loc)
	assert.Equal(t, "daily", root.ChangeFreq)
	assert.Equal(t, "1.0", root.Priority)
	// The root entry is always stamped with the generation time.
	assert.Equal(t, "2024-06-01T10:00:00.000Z", root.LastMod)

	about := set.URLs[1]
	assert.Equal(t, "https://example.com/about", about.Loc)
	assert.Equal(t, "weekly", about.ChangeFreq)
	assert.Equal(t, "0.8", about.Priority)
}

func TestGenerateLastModFallsBackToCreatedThenNow(t *testing.T) {
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	fake := &testutil.FakeCMS{
		Stories: []cms.Story{
			{ID: 1, FullSlug: "docs/a", CreatedAt: &created},
			{ID: 2, FullSlug: "docs/b"},
		},
	}
	g := NewGenerator(fake, "https://example.com", WithClock(fixedClock()))

	set := parse(t, g.Generate(context.Background(), cms.VersionPublished))
	byLoc := map[string]Entry{}
	for _, e := range set.URLs {
		byLoc[e.Loc] = e
	}
	assert.Equal(t, "2024-02-01T00:00:00.000Z", byLoc["https://example.com/docs/a"].LastMod)
	assert.Equal(t, "2024-06-01T10:00:00.000Z", byLoc["https://example.com/docs/b"].LastMod)
}

func TestGenerateSkipsFoldersAndHiddenSubtrees(t *testing.T) {
	fake := &testutil.FakeCMS{
		Stories: []cms.Story{
			{ID: 1, FullSlug: "home"},
			{ID: 2, FullSlug: "blog", IsFolder: true},
			{ID: 3, FullSlug: "_footer/contact"},
			{ID: 4, FullSlug: "blog/post-1"},
		},
	}
	g := NewGenerator(fake, "https://example.com", WithClock(fixedClock()))

	set := parse(t, g.Generate(context.Background(), cms.VersionPublished))
	locs := make([]string, 0, len(set.URLs))
	for _, e := range set.URLs {
		locs = append(locs, e.Loc)
	}
	assert.Equal(t, []string{"https://example.com/", "https://example.com/blog/post-1"}, locs)
}

func TestGenerateRootOnlyFallbackOnFailure(t *testing.T) {
	fake := &testutil.FakeCMS{
		StoriesErr: serrors.UpstreamError(assert.AnError, "listing down"),
	}
	g := NewGenerator(fake, "https://example.com", WithClock(fixedClock()))

	set := parse(t, g.Generate(context.Background(), cms.VersionPublished))
	require.Len(t, set.URLs, 1)
	assert.Equal(t, "https://example.com/", set.URLs[0].Loc)
	assert.Equal(t, "daily", set.URLs[0].ChangeFreq)
	assert.Equal(t, "1.0", set.URLs[0].Priority)
	assert.Equal(t, "2024-06-01T10:00:00.000Z", set.URLs[0].LastMod)
}

func TestGeneratePagesExhaustively(t *testing.T) {
	stories := make([]cms.Story, 0, 7)
	for i := 0; i < 7; i++ {
		stories = append(stories, cms.Story{ID: int64(i + 1), FullSlug: "p/" + string(rune('a'+i))})
	}
	fake := &testutil.FakeCMS{Stories: stories, PerPageOverride: 3}
	g := NewGenerator(fake, "https://example.com", WithPerPage(3), WithClock(fixedClock()))

	set := parse(t, g.Generate(context.Background(), cms.VersionPublished))
	// 7 stories plus the synthesized root entry.
	assert.Len(t, set.URLs, 8)
}

func TestGenerateEmptySlugMapsToBareBaseURL(t *testing.T) {
	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fake := &testutil.FakeCMS{
		Stories: []cms.Story{{ID: 1, Name: "Landing", FullSlug: "", PublishedAt: &published}},
	}
	g := NewGenerator(fake, "https://example.com", WithClock(fixedClock()))

	set := parse(t, g.Generate(context.Background(), cms.VersionPublished))
	require.Len(t, set.URLs, 2)

	// Entries sort by location, so the bare URL precedes the root's "/".
	bare := set.URLs[0]
	assert.Equal(t, "https://example.com", bare.Loc)
	assert.Equal(t, "weekly", bare.ChangeFreq)
	assert.Equal(t, "0.8", bare.Priority)
	assert.Equal(t, "2024-03-01T00:00:00.000Z", bare.LastMod)

	assert.Equal(t, "https://example.com/", set.URLs[1].Loc)
	assert.Equal(t, "1.0", set.URLs[1].Priority)
}

func TestGenerateSynthesizesRootWhenNoHomeStory(t *testing.T) {
	fake := &testutil.FakeCMS{
		Stories: []cms.Story{{ID: 1, FullSlug: "about"}},
	}
	g := NewGenerator(fake, "https://example.com", WithClock(fixedClock()))

	set := parse(t, g.Generate(context.Background(), cms.VersionPublished))
	require.Len(t, set.URLs, 2)
	assert.Equal(t, "https://example.com/", set.URLs[0].Loc)
	assert.Equal(t, "1.0", set.URLs[0].Priority)
}
