package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Config holds configuration for the background sync scheduler.
type Config struct {
	// Cron is the schedule expression for full syncs of all accounts.
	Cron string `mapstructure:"cron" default:"*/30 * * * *"`
	// Enabled toggles the background scheduler.
	Enabled bool `mapstructure:"enabled" default:"true"`
}

// Job is the unit of work the scheduler triggers on every tick.
type Job func(ctx context.Context)

// Scheduler triggers periodic jobs on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a scheduler with UTC cron semantics.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: logger,
	}
}

// Start registers the job under the configured cron expression and starts
// the scheduler. Each tick runs in its own goroutine managed by cron.
func (s *Scheduler) Start(cfg Config, job Job) error {
	if !cfg.Enabled {
		s.logger.Info("Background scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(cfg.Cron, func() {
		job(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Background scheduler started", zap.String("cron", cfg.Cron))
	return nil
}

// Stop stops the scheduler. Already running ticks finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
