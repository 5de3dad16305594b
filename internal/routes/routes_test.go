package routes

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/storysite/internal/cms"
	serrors "git.home.luguber.info/inful/storysite/internal/errors"
	"git.home.luguber.info/inful/storysite/internal/testutil"
)

func TestGenerateBasics(t *testing.T) {
	fake := &testutil.FakeCMS{
		Links: []cms.Link{
			{ID: 1, Slug: "blog", IsFolder: true},
		},
		Stories: []cms.Story{
			{ID: 1, FullSlug: "home"},
			{ID: 2, FullSlug: "about"},
			{ID: 3, FullSlug: "blog/post-1"},
			{ID: 4, FullSlug: "blog", IsFolder: true},
			{ID: 5, FullSlug: "_footer/contact"},
		},
	}
	g := NewGenerator(fake)

	routes, err := g.Generate(context.Background(), cms.VersionPublished)
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/about", "/blog/post-1"}, routes)
}

func TestGenerateExcludesFolderPathsFromLinkTree(t *testing.T) {
	// The listing may surface a folder index story without the is_folder
	// flag; the link tree's folder set still filters it out.
	fake := &testutil.FakeCMS{
		Links: []cms.Link{
			{ID: 1, Slug: "docs", IsFolder: true},
		},
		Stories: []cms.Story{
			{ID: 1, FullSlug: "docs"},
			{ID: 2, FullSlug: "docs/intro"},
		},
	}
	g := NewGenerator(fake)

	routes, err := g.Generate(context.Background(), cms.VersionPublished)
	require.NoError(t, err)
	assert.Equal(t, []string{"/docs/intro"}, routes)
}

func TestGenerateSurvivesLinkTreeFailure(t *testing.T) {
	fake := &testutil.FakeCMS{
		LinksErr: serrors.UpstreamError(assert.AnError, "links down"),
		Stories: []cms.Story{
			{ID: 1, FullSlug: "about"},
		},
	}
	g := NewGenerator(fake)

	routes, err := g.Generate(context.Background(), cms.VersionPublished)
	require.NoError(t, err)
	assert.Equal(t, []string{"/about"}, routes)
}

func TestGenerateErrorsWhenNoPageFetched(t *testing.T) {
	fake := &testutil.FakeCMS{
		StoriesErr: serrors.UpstreamError(assert.AnError, "listing down"),
	}
	g := NewGenerator(fake)

	_, err := g.Generate(context.Background(), cms.VersionPublished)
	require.Error(t, err)
	assert.True(t, serrors.IsCategory(err, serrors.CategoryCMS))
}

func TestGenerateDeduplicates(t *testing.T) {
	fake := &testutil.FakeCMS{
		Stories: []cms.Story{
			{ID: 1, FullSlug: "about"},
			{ID: 2, FullSlug: "about/"},
		},
	}
	g := NewGenerator(fake)

	routes, err := g.Generate(context.Background(), cms.VersionPublished)
	require.NoError(t, err)
	assert.Equal(t, []string{"/about"}, routes)
}

func TestGeneratePagesExhaustively(t *testing.T) {
	stories := make([]cms.Story, 0, 5)
	for i := 0; i < 5; i++ {
		stories = append(stories, cms.Story{ID: int64(i + 1), FullSlug: "p/" + string(rune('a'+i))})
	}
	fake := &testutil.FakeCMS{Stories: stories, PerPageOverride: 2}
	g := NewGenerator(fake, WithPerPage(2))

	routes, err := g.Generate(context.Background(), cms.VersionPublished)
	require.NoError(t, err)
	assert.Len(t, routes, 5)
}

func TestWriteFile(t *testing.T) {
	fake := &testutil.FakeCMS{
		Stories: []cms.Story{
			{ID: 1, FullSlug: "home"},
			{ID: 2, FullSlug: "about"},
		},
	}
	g := NewGenerator(fake)
	path := filepath.Join(t.TempDir(), "routes.json")

	require.NoError(t, g.WriteFile(context.Background(), cms.VersionPublished, path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	var routes []string
	require.NoError(t, json.Unmarshal(body, &routes))
	assert.Equal(t, []string{"/", "/about"}, routes)
}
