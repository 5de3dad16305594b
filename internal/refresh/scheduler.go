package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/storysite/internal/logfields"
)

// Scheduler runs the refresh service on a fixed interval.
type Scheduler struct {
	scheduler gocron.Scheduler
	service   *Service
	version   string
	logger    *slog.Logger
}

// NewScheduler creates a scheduler that refreshes snapshots for the given
// content version every interval.
func NewScheduler(service *Service, version string, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &Scheduler{
		scheduler: gs,
		service:   service,
		version:   version,
		logger:    logger,
	}
	if _, err := gs.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run),
		gocron.WithName("snapshot-refresh"),
	); err != nil {
		return nil, fmt.Errorf("create refresh job: %w", err)
	}
	return s, nil
}

// Start begins the periodic refresh. The first run happens after one
// interval; callers wanting warm caches run the service once themselves.
func (s *Scheduler) Start() {
	s.logger.Info("Starting snapshot refresh scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down and waits for a running job to finish.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping snapshot refresh scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res := s.service.Run(ctx, s.version)
	if res.Outcome != OutcomeSuccess {
		s.logger.Warn("scheduled refresh incomplete",
			slog.String("outcome", res.Outcome),
			logfields.Version(s.version))
	}
}
