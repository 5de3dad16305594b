package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "git.home.luguber.info/inful/storysite/internal/errors"
	"git.home.luguber.info/inful/storysite/internal/retry"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *APIClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewAPIClient(srv.URL, "test-token", WithHTTPClient(srv.Client()))
}

func TestFetchLinksOrdersByID(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cdn/links", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		assert.Equal(t, "published", r.URL.Query().Get("version"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"links": {
			"uuid-b": {"id": 2, "name": "About", "slug": "about", "position": 10},
			"uuid-a": {"id": 1, "name": "Blog", "slug": "blog", "is_folder": true, "position": 0}
		}}`))
	})

	links, err := client.FetchLinks(context.Background(), "published")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, int64(1), links[0].ID)
	assert.Equal(t, int64(2), links[1].ID)
	assert.True(t, links[0].IsFolder)
}

func TestFetchLinksByPrefix(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "_footer", r.URL.Query().Get("starts_with"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"links": {
			"uuid-a": {"id": 9, "name": "Imprint", "slug": "_footer/imprint", "position": 0}
		}}`))
	})

	links, err := client.FetchLinksByPrefix(context.Background(), "_footer", "published")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "_footer/imprint", links[0].Slug)
}

func TestFetchStoriesBySlugs(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cdn/stories", r.URL.Path)
		assert.Equal(t, "about,blog/post-1", r.URL.Query().Get("by_slugs"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stories": [
			{"id": 1, "name": "About", "full_slug": "about/"},
			{"id": 2, "name": "Post 1", "full_slug": "blog/post-1"}
		]}`))
	})

	stories, err := client.FetchStoriesBySlugs(context.Background(), []string{"about", "blog/post-1"}, "draft")
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, "about", stories[0].NormalizedSlug())
}

func TestFetchStoriesBySlugsEmptyInputSkipsFetch(t *testing.T) {
	called := false
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	stories, err := client.FetchStoriesBySlugs(context.Background(), nil, "published")
	require.NoError(t, err)
	assert.Nil(t, stories)
	assert.False(t, called)
}

func TestFetchAllStoriesReadsTotalHeader(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "25", r.URL.Query().Get("per_page"))
		w.Header().Set("Total", "120")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stories": [{"id": 5, "full_slug": "about"}]}`))
	})

	page, err := client.FetchAllStories(context.Background(), "published", 2, 25)
	require.NoError(t, err)
	assert.Equal(t, 120, page.Total)
	require.Len(t, page.Stories, 1)
}

func TestFetchStoryNotFound(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.FetchStory(context.Background(), "missing", "published")
	require.Error(t, err)
	assert.True(t, serrors.IsNotFound(err))
}

func TestFetchStoryNullBodyIsNotFound(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"story": null}`))
	})

	_, err := client.FetchStory(context.Background(), "ghost", "published")
	require.Error(t, err)
	assert.True(t, serrors.IsNotFound(err))
}

func TestServerErrorIsRetryableUpstreamFailure(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})

	_, err := client.FetchLinks(context.Background(), "published")
	require.Error(t, err)
	assert.True(t, serrors.IsRetryable(err))
	assert.Equal(t, serrors.CategoryNetwork, serrors.GetCategory(err))
}

func TestStoryLastModifiedFallbacks(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	s := Story{PublishedAt: &published, CreatedAt: &created}
	assert.Equal(t, published, s.LastModified(now))

	s.PublishedAt = nil
	assert.Equal(t, created, s.LastModified(now))

	s.CreatedAt = nil
	assert.Equal(t, now, s.LastModified(now))
}

func TestRetryableFailureEventuallySucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "flaky", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"links": {"uuid-a": {"id": 1, "name": "About", "slug": "about"}}}`))
	}))
	t.Cleanup(srv.Close)

	client := NewAPIClient(srv.URL, "test-token",
		WithHTTPClient(srv.Client()),
		WithRetryPolicy(retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 2)))

	links, err := client.FetchLinks(context.Background(), "published")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, 3, calls)
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewAPIClient(srv.URL, "test-token",
		WithHTTPClient(srv.Client()),
		WithRetryPolicy(retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 3)))

	_, err := client.FetchLinks(context.Background(), "published")
	require.Error(t, err)
	assert.True(t, serrors.IsNotFound(err))
	assert.Equal(t, 1, calls)
}

func TestDefaultClientDoesNotRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	// No retry policy configured: a transient failure is fetched once.
	client := NewAPIClient(srv.URL, "test-token", WithHTTPClient(srv.Client()))

	_, err := client.FetchLinks(context.Background(), "published")
	require.Error(t, err)
	assert.True(t, serrors.IsRetryable(err))
	assert.Equal(t, 1, calls)
}

func TestRetriesExhaustedReturnsLastError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := NewAPIClient(srv.URL, "test-token",
		WithHTTPClient(srv.Client()),
		WithRetryPolicy(retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 2)))

	_, err := client.FetchLinks(context.Background(), "published")
	require.Error(t, err)
	assert.True(t, serrors.IsRetryable(err))
	assert.Equal(t, 3, calls)
}

func TestNormalizeSlugIdempotent(t *testing.T) {
	assert.Equal(t, "blog/post-1", NormalizeSlug("blog/post-1/"))
	assert.Equal(t, "blog/post-1", NormalizeSlug(NormalizeSlug("blog/post-1/")))
	assert.Equal(t, "", NormalizeSlug(""))
}
