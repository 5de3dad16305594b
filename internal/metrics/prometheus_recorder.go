package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	fetchDuration   *prom.HistogramVec
	fetchResults    *prom.CounterVec
	navBuild        prom.Histogram
	sitemapDuration *prom.HistogramVec
	cacheLookups    *prom.CounterVec
	refreshOutcome  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.fetchDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "storysite",
			Name:      "cms_fetch_duration_seconds",
			Help:      "Duration of content API fetches by endpoint",
			Buckets:   prom.DefBuckets,
		}, []string{"endpoint"})
		pr.fetchResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "storysite",
			Name:      "cms_fetch_results_total",
			Help:      "Content API fetch results by endpoint and outcome",
		}, []string{"endpoint", "result"})
		pr.navBuild = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "storysite",
			Name:      "navigation_build_duration_seconds",
			Help:      "Duration of navigation tree builds",
			Buckets:   prom.DefBuckets,
		})
		pr.sitemapDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "storysite",
			Name:      "sitemap_generation_duration_seconds",
			Help:      "Duration of sitemap generation runs",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.cacheLookups = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "storysite",
			Name:      "snapshot_cache_lookups_total",
			Help:      "Snapshot cache lookups by kind and outcome",
		}, []string{"kind", "result"})
		pr.refreshOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "storysite",
			Name:      "refresh_outcomes_total",
			Help:      "Scheduled content refresh outcomes",
		}, []string{"outcome"})
		reg.MustRegister(pr.fetchDuration, pr.fetchResults, pr.navBuild, pr.sitemapDuration, pr.cacheLookups, pr.refreshOutcome)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveFetchDuration(endpoint string, d time.Duration) {
	if p == nil || p.fetchDuration == nil {
		return
	}
	p.fetchDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncFetchResult(endpoint string, success bool) {
	if p == nil || p.fetchResults == nil {
		return
	}
	p.fetchResults.WithLabelValues(endpoint, boolResult(success)).Inc()
}

func (p *PrometheusRecorder) ObserveNavigationBuild(d time.Duration) {
	if p == nil || p.navBuild == nil {
		return
	}
	p.navBuild.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveSitemapGeneration(d time.Duration, success bool) {
	if p == nil || p.sitemapDuration == nil {
		return
	}
	p.sitemapDuration.WithLabelValues(boolResult(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCacheLookup(kind string, hit bool) {
	if p == nil || p.cacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (p *PrometheusRecorder) IncRefreshOutcome(outcome string) {
	if p == nil || p.refreshOutcome == nil {
		return
	}
	p.refreshOutcome.WithLabelValues(outcome).Inc()
}

func boolResult(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
