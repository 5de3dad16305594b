package metrics

import "time"

// Recorder defines observability hooks for the content pipeline.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveFetchDuration(endpoint string, d time.Duration)
	IncFetchResult(endpoint string, success bool)
	ObserveNavigationBuild(d time.Duration)
	ObserveSitemapGeneration(d time.Duration, success bool)
	IncCacheLookup(kind string, hit bool)
	IncRefreshOutcome(outcome string) // outcome: success|failed
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveFetchDuration(string, time.Duration)   {}
func (NoopRecorder) IncFetchResult(string, bool)                  {}
func (NoopRecorder) ObserveNavigationBuild(time.Duration)         {}
func (NoopRecorder) ObserveSitemapGeneration(time.Duration, bool) {}
func (NoopRecorder) IncCacheLookup(string, bool)                  {}
func (NoopRecorder) IncRefreshOutcome(string)                     {}
