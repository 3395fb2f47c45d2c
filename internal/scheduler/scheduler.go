package scheduler

import (
	"context"

	"stockTrader/internal/ports"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled job
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  ports.Logger
	ctx  context.Context
}

// New creates a new scheduler. Jobs receive ctx on every run.
func New(ctx context.Context, log ports.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With(map[string]interface{}{"component": "scheduler"}),
		ctx:  ctx,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info(s.ctx, "Scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info(s.ctx, "Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@every 30s"         - Every 30 seconds
//   - "0 30 9 * * MON-FRI" - 9:30 AM weekdays
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug(s.ctx, "Running job", map[string]interface{}{"job": job.Name()})

		if err := job.Run(s.ctx); err != nil {
			s.log.Error(s.ctx, err, "Job failed", map[string]interface{}{"job": job.Name()})
		} else {
			s.log.Debug(s.ctx, "Job completed", map[string]interface{}{"job": job.Name()})
		}
	})
	if err != nil {
		return err
	}

	s.log.Info(s.ctx, "Job registered", map[string]interface{}{"schedule": schedule, "job": job.Name()})
	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info(s.ctx, "Running job immediately", map[string]interface{}{"job": job.Name()})
	return job.Run(s.ctx)
}
