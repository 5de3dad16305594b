package refresh

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/storysite/internal/cms"
	serrors "git.home.luguber.info/inful/storysite/internal/errors"
	"git.home.luguber.info/inful/storysite/internal/metrics"
	"git.home.luguber.info/inful/storysite/internal/navigation"
	"git.home.luguber.info/inful/storysite/internal/routes"
	"git.home.luguber.info/inful/storysite/internal/sitemap"
	"git.home.luguber.info/inful/storysite/internal/store"
	"git.home.luguber.info/inful/storysite/internal/testutil"
)

type capturePublisher struct {
	results []Result
	err     error
}

func (p *capturePublisher) PublishRefresh(ctx context.Context, res Result) error {
	p.results = append(p.results, res)
	return p.err
}

func newRefreshService(t *testing.T, fake *testutil.FakeCMS, pub Publisher) (*Service, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := slog.Default()
	recorder := metrics.NoopRecorder{}
	svc := NewService(
		navigation.NewBuilder(fake, recorder, logger),
		sitemap.NewGenerator(fake, "https://example.com"),
		routes.NewGenerator(fake),
		st,
		recorder,
		pub,
		logger,
	)
	return svc, st
}

func siteFixture() *testutil.FakeCMS {
	return &testutil.FakeCMS{
		Links: []cms.Link{
			{ID: 1, Name: "About", Slug: "about", Position: 10},
		},
		Stories: []cms.Story{
			{ID: 1, Name: "Home", FullSlug: "home"},
			{ID: 2, Name: "About", FullSlug: "about"},
		},
	}
}

func TestRunPrunesExpiredSnapshots(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	st, err := store.NewSQLiteStore(":memory:", time.Hour,
		store.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := slog.Default()
	recorder := metrics.NoopRecorder{}
	fake := siteFixture()
	svc := NewService(
		navigation.NewBuilder(fake, recorder, logger),
		sitemap.NewGenerator(fake, "https://example.com"),
		routes.NewGenerator(fake),
		st, recorder, nil, logger,
	)

	require.NoError(t, st.Put(context.Background(), store.KindSitemap, cms.VersionDraft, []byte("stale")))

	now = now.Add(2 * time.Hour)
	svc.Run(context.Background(), cms.VersionPublished)

	// Rewinding the clock would make the stale row readable again if it
	// had merely expired; the run deleted it outright.
	now = now.Add(-2 * time.Hour)
	_, ok, err := st.Get(context.Background(), store.KindSitemap, cms.VersionDraft)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunStoresAllSnapshots(t *testing.T) {
	svc, st := newRefreshService(t, siteFixture(), nil)

	res := svc.Run(context.Background(), cms.VersionPublished)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Empty(t, res.Failed)

	ctx := context.Background()
	for _, kind := range []string{store.KindNavigation, store.KindFooter, store.KindSitemap, store.KindRoutes} {
		_, ok, err := st.Get(ctx, kind, cms.VersionPublished)
		require.NoError(t, err, kind)
		assert.True(t, ok, kind)
	}

	snap, ok, err := st.Get(ctx, store.KindRoutes, cms.VersionPublished)
	require.NoError(t, err)
	require.True(t, ok)
	var routeList []string
	require.NoError(t, json.Unmarshal(snap.Payload, &routeList))
	assert.Equal(t, []string{"/", "/about"}, routeList)
}

func TestRunPartialOnRouteFailure(t *testing.T) {
	fake := siteFixture()
	fake.StoriesErr = serrors.UpstreamError(assert.AnError, "listing down")
	svc, st := newRefreshService(t, fake, nil)

	res := svc.Run(context.Background(), cms.VersionPublished)
	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Contains(t, res.Failed, store.KindRoutes)

	// Navigation still lands: its own failure containment serves the
	// empty shape, which is a valid snapshot.
	_, ok, err := st.Get(context.Background(), store.KindNavigation, cms.VersionPublished)
	require.NoError(t, err)
	assert.True(t, ok)

	// The sitemap degrades to the root-only fallback but still snapshots.
	_, ok, err = st.Get(context.Background(), store.KindSitemap, cms.VersionPublished)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunPublishesResult(t *testing.T) {
	pub := &capturePublisher{}
	svc, _ := newRefreshService(t, siteFixture(), pub)

	svc.Run(context.Background(), cms.VersionPublished)
	require.Len(t, pub.results, 1)
	assert.Equal(t, OutcomeSuccess, pub.results[0].Outcome)
	assert.Equal(t, cms.VersionPublished, pub.results[0].Version)
}

func TestRunSurvivesPublishFailure(t *testing.T) {
	pub := &capturePublisher{err: assert.AnError}
	svc, _ := newRefreshService(t, siteFixture(), pub)

	res := svc.Run(context.Background(), cms.VersionPublished)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
}
