package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-lookup/internal/logging"
)

const sweepTimeout = 30 * time.Second

// Sweeper deletes expired history entries. *history.Store satisfies it.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Scheduler periodically runs the history retention sweep, so expired
// entries go away even when no new lookups are recorded.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweeper   Sweeper
	interval  time.Duration
	logger    *logging.Logger
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(sweeper Sweeper, interval time.Duration, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sweeper:   sweeper,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the sweep and starts the underlying scheduler. The first
// sweep runs immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("background sweep disabled")
		return nil
	}

	if _, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.sweep); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("background sweep scheduled", "interval", s.interval)
	return nil
}

// Running reports whether the underlying scheduler is active.
func (s *Scheduler) Running() bool {
	return s.scheduler.IsRunning()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		s.logger.Warn("background sweep failed", "error", err)
		return
	}
	s.logger.Debug("background sweep completed", "removed", n)
}
