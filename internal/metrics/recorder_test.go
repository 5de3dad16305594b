package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveFetchDuration("cdn/links", time.Second)
	r.IncFetchResult("cdn/links", true)
	r.ObserveNavigationBuild(time.Millisecond)
	r.ObserveSitemapGeneration(time.Millisecond, false)
	r.IncCacheLookup("stories", true)
	r.IncRefreshOutcome("success")
}

func TestPrometheusRecorderRegistersMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveFetchDuration("cdn/links", 100*time.Millisecond)
	pr.IncFetchResult("cdn/links", true)
	pr.IncFetchResult("cdn/stories", false)
	pr.ObserveNavigationBuild(10 * time.Millisecond)
	pr.ObserveSitemapGeneration(20*time.Millisecond, true)
	pr.IncCacheLookup("links", false)
	pr.IncRefreshOutcome("failed")

	families, err := reg.Gather()
	require.NoError(t, err)

	seen := map[string]int{}
	for _, mf := range families {
		seen[mf.GetName()] = len(mf.GetMetric())
	}

	for _, want := range []string{
		"storysite_cms_fetch_duration_seconds",
		"storysite_cms_fetch_results_total",
		"storysite_navigation_build_duration_seconds",
		"storysite_sitemap_generation_duration_seconds",
		"storysite_snapshot_cache_lookups_total",
		"storysite_refresh_outcomes_total",
	} {
		count, ok := seen[want]
		assert.True(t, ok, "missing metric family %s", want)
		assert.Positive(t, count, "metric family %s has no series", want)
	}

	// Two distinct endpoint/result label pairs were recorded.
	assert.Equal(t, 2, seen["storysite_cms_fetch_results_total"])
}

func TestPrometheusRecorderNilSafety(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveFetchDuration("cdn/links", time.Second)
	pr.IncFetchResult("cdn/links", true)
	pr.ObserveNavigationBuild(time.Second)
	pr.ObserveSitemapGeneration(time.Second, true)
	pr.IncCacheLookup("links", true)
	pr.IncRefreshOutcome("success")
}
