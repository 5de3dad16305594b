// Package refresh recomputes the derived snapshots (navigation, footer,
// sitemap, routes) from the content API and persists them in the snapshot
// store. A scheduler runs it periodically; an optional event publisher
// announces completed refreshes so downstream caches can invalidate.
package refresh

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/storysite/internal/logfields"
	"git.home.luguber.info/inful/storysite/internal/metrics"
	"git.home.luguber.info/inful/storysite/internal/navigation"
	"git.home.luguber.info/inful/storysite/internal/routes"
	"git.home.luguber.info/inful/storysite/internal/sitemap"
	"git.home.luguber.info/inful/storysite/internal/store"
)

// Refresh outcomes reported to metrics and events.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailure = "failure"
)

// Result summarizes one refresh run.
type Result struct {
	Outcome  string        `json:"outcome"`
	Version  string        `json:"version"`
	Duration time.Duration `json:"duration"`
	Failed   []string      `json:"failed,omitempty"`
}

// Publisher announces completed refresh runs. Implementations must be safe
// for concurrent use.
type Publisher interface {
	PublishRefresh(ctx context.Context, res Result) error
}

// Service recomputes and persists all derived snapshots.
type Service struct {
	nav      *navigation.Builder
	sitemap  *sitemap.Generator
	routes   *routes.Generator
	store    store.Store
	recorder metrics.Recorder
	pub      Publisher
	logger   *slog.Logger
}

// NewService wires a refresh service. pub may be nil when event publishing
// is disabled.
func NewService(
	nav *navigation.Builder,
	sm *sitemap.Generator,
	rt *routes.Generator,
	st store.Store,
	recorder metrics.Recorder,
	pub Publisher,
	logger *slog.Logger,
) *Service {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		nav:      nav,
		sitemap:  sm,
		routes:   rt,
		store:    st,
		recorder: recorder,
		pub:      pub,
		logger:   logger,
	}
}

// Run recomputes every snapshot kind for the given content version. Each
// kind is refreshed independently; a failing kind is reported in the result
// but does not block the others.
func (s *Service) Run(ctx context.Context, version string) Result {
	start := time.Now()
	var failed []string

	nav := s.nav.Build(ctx, version)
	if err := s.putJSON(ctx, store.KindNavigation, version, nav); err != nil {
		failed = append(failed, store.KindNavigation)
		s.logger.Error("navigation snapshot refresh failed", logfields.Error(err))
	}

	footer := s.nav.FooterLinks(ctx, version)
	if err := s.putJSON(ctx, store.KindFooter, version, footer); err != nil {
		failed = append(failed, store.KindFooter)
		s.logger.Error("footer snapshot refresh failed", logfields.Error(err))
	}

	if err := s.store.Put(ctx, store.KindSitemap, version, s.sitemap.Generate(ctx, version)); err != nil {
		failed = append(failed, store.KindSitemap)
		s.logger.Error("sitemap snapshot refresh failed", logfields.Error(err))
	}

	if routeList, err := s.routes.Generate(ctx, version); err != nil {
		failed = append(failed, store.KindRoutes)
		s.logger.Error("route list refresh failed", logfields.Error(err))
	} else if err := s.putJSON(ctx, store.KindRoutes, version, routeList); err != nil {
		failed = append(failed, store.KindRoutes)
		s.logger.Error("route snapshot refresh failed", logfields.Error(err))
	}

	// Fresh snapshots are in place, so expired rows are no longer needed.
	if pruned, err := s.store.Prune(ctx); err != nil {
		s.logger.Warn("snapshot prune failed", logfields.Error(err))
	} else if pruned > 0 {
		s.logger.Debug("expired snapshots pruned", slog.Int64("count", pruned))
	}

	res := Result{
		Outcome:  outcome(len(failed)),
		Version:  version,
		Duration: time.Since(start),
		Failed:   failed,
	}
	s.recorder.IncRefreshOutcome(res.Outcome)
	s.logger.Info("snapshot refresh finished",
		slog.String("outcome", res.Outcome),
		logfields.Version(version),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))

	if s.pub != nil {
		if err := s.pub.PublishRefresh(ctx, res); err != nil {
			s.logger.Warn("refresh event publish failed", logfields.Error(err))
		}
	}
	return res
}

func (s *Service) putJSON(ctx context.Context, kind, version string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, kind, version, payload)
}

func outcome(failures int) string {
	switch {
	case failures == 0:
		return OutcomeSuccess
	case failures < 4:
		return OutcomePartial
	default:
		return OutcomeFailure
	}
}
