package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/MFaiqKhan/SocialSpark/pkg/telemetry"
)

const defaultDrainInterval = 30 * time.Second

// PublishFunc performs the actual publication for one drained arg.
type PublishFunc func(ctx context.Context, arg string) error

// DrainLoop is the single consumer of the publish queue. It drains once
// eagerly at startup, catching jobs that fired before the loop was running,
// then on a fixed interval. One goroutine consumes, so publishes for a given
// arg never overlap.
//
// An arg taken from the queue and lost to a crash is gone: delivery is
// best-effort, the job store is the durable record.
type DrainLoop struct {
	queue    *Queue
	publish  PublishFunc
	interval time.Duration
	logger   *slog.Logger
}

// DrainOption configures a DrainLoop.
type DrainOption func(*DrainLoop)

func WithDrainInterval(d time.Duration) DrainOption { return func(l *DrainLoop) { l.interval = d } }
func WithDrainLogger(lg *slog.Logger) DrainOption   { return func(l *DrainLoop) { l.logger = lg } }

// NewDrainLoop constructs a DrainLoop over queue, publishing via publish.
func NewDrainLoop(queue *Queue, publish PublishFunc, opts ...DrainOption) *DrainLoop {
	l := &DrainLoop{
		queue:    queue,
		publish:  publish,
		interval: defaultDrainInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drains eagerly, then on every interval tick. Blocks until ctx is
// cancelled.
func (l *DrainLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// Eager drain: jobs may already be queued from before startup.
	l.Drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Drain(ctx)
		}
	}
}

// Drain empties the queue, invoking the publish handler per arg. Handler
// errors are logged and counted, never raised: one bad job must not stop
// the rest of the batch or the timer loop.
func (l *DrainLoop) Drain(ctx context.Context) {
	args := l.queue.TakeAll()
	if len(args) == 0 {
		return
	}
	telemetry.SchedulerDrainRuns.Inc()
	l.logger.Info("draining publish queue", slog.Int("count", len(args)))

	for _, arg := range args {
		if err := l.publish(ctx, arg); err != nil {
			telemetry.SchedulerPublishErrors.Inc()
			l.logger.Error("publish failed",
				slog.String("arg", arg),
				slog.String("error", err.Error()),
			)
		}
	}
}
