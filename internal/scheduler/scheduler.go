package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"

	"climate-harvester/pkg/logging"
)

// Job is one pipeline run. The context is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// Scheduler runs a job periodically, never overlapping a previous run.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       Job
	interval  time.Duration
	logger    *logging.StructuredLogger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(interval time.Duration, job Job, logger *logging.StructuredLogger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		job:       job,
		interval:  interval,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the job, runs it once immediately and returns.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.logger.Info(s.ctx, "[SCHEDULER_START] Pipeline scheduled", logging.Fields{
		"interval": s.interval.String(),
	})

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	startTime := time.Now()
	s.logger.Info(s.ctx, "[SCHEDULER_RUN] Pipeline run starting", logging.Fields{})

	if err := s.job(s.ctx); err != nil {
		s.logger.Error(s.ctx, "[SCHEDULER_RUN_ERROR] Pipeline run failed", logging.Fields{
			"duration_seconds": time.Since(startTime).Seconds(),
		}, err)
		return
	}

	s.logger.Info(s.ctx, "[SCHEDULER_RUN_COMPLETE] Pipeline run completed", logging.Fields{
		"duration_seconds": time.Since(startTime).Seconds(),
	})
}

// Stop cancels the running job, if any, and stops future runs.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
