package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	"github.com/MFaiqKhan/SocialSpark/internal/store"
	"github.com/MFaiqKhan/SocialSpark/pkg/telemetry"
)

const defaultTickInterval = time.Second

// FireFunc is invoked for each due job. It must not block: the scheduler
// callback only hands the job's arg to the publish queue.
type FireFunc func(job *domain.Job)

// Scheduler polls the job store for due jobs and fires them. Jobs live in
// the store, not in process memory, so pending publications survive a
// restart and are fired by the next tick.
type Scheduler struct {
	jobs     store.JobStore
	fire     FireFunc
	interval time.Duration
	logger   *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithTickInterval(d time.Duration) Option { return func(s *Scheduler) { s.interval = d } }
func WithLogger(l *slog.Logger) Option        { return func(s *Scheduler) { s.logger = l } }

// NewScheduler constructs a Scheduler firing due jobs through fire.
func NewScheduler(jobs store.JobStore, fire FireFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:     jobs,
		fire:     fire,
		interval: defaultTickInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule registers a deferred job. A job with the same id replaces the
// previous one, so re-scheduling moves the due time instead of duplicating.
func (s *Scheduler) Schedule(ctx context.Context, jobID string, dueAt time.Time, arg string) error {
	job := &domain.Job{
		ID:        jobID,
		DueAt:     dueAt.UTC(),
		Arg:       arg,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.jobs.Put(ctx, job); err != nil {
		return fmt.Errorf("schedule job %s: %w", jobID, err)
	}
	s.logger.Info("job scheduled",
		slog.String("job_id", jobID),
		slog.Time("due_at", job.DueAt),
	)
	return nil
}

// CancelJob removes a job before it fires. Unknown ids are not an error:
// the job may already have fired.
func (s *Scheduler) CancelJob(ctx context.Context, jobID string) error {
	err := s.jobs.Delete(ctx, jobID)
	if err != nil {
		var nf *domain.JobNotFoundError
		if errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	return nil
}

// Run is the timer loop: it ticks once immediately, then on the configured
// interval, firing and deleting every job whose due time has passed. Blocks
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once immediately before waiting for the first tick.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	due, err := s.jobs.Due(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("load due jobs", slog.String("error", err.Error()))
		return
	}
	for _, job := range due {
		s.fire(job)
		telemetry.SchedulerJobsFired.Inc()
		if err := s.jobs.Delete(ctx, job.ID); err != nil {
			s.logger.Error("delete fired job",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.Info("job fired",
			slog.String("job_id", job.ID),
			slog.String("arg", job.Arg),
		)
	}
}
