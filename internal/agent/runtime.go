package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	redisstore "github.com/MFaiqKhan/SocialSpark/internal/redis"
	"github.com/MFaiqKhan/SocialSpark/internal/store"
	"github.com/MFaiqKhan/SocialSpark/pkg/telemetry"
)

// Runtime drives the task lifecycle for one agent: it validates and persists
// incoming tasks, runs the matching handler asynchronously, and records the
// terminal state.
type Runtime struct {
	id       string
	card     domain.AgentCard
	registry *Registry
	tasks    store.TaskStore
	cache    redisstore.StatusCache
	logger   *slog.Logger

	wg sync.WaitGroup
}

// Option configures a Runtime.
type Option func(*Runtime)

func WithLogger(l *slog.Logger) Option                { return func(r *Runtime) { r.logger = l } }
func WithStatusCache(c redisstore.StatusCache) Option { return func(r *Runtime) { r.cache = c } }

// NewRuntime constructs a Runtime with the given identity and task store.
func NewRuntime(id string, card domain.AgentCard, tasks store.TaskStore, opts ...Option) *Runtime {
	r := &Runtime{
		id:       id,
		card:     card,
		registry: NewRegistry(),
		tasks:    tasks,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the agent id this runtime answers for.
func (r *Runtime) ID() string { return r.id }

// Card returns the agent's discovery document with the currently registered
// task types merged in.
func (r *Runtime) Card() domain.AgentCard {
	card := r.card
	card.AgentID = r.id
	for _, t := range r.registry.Types() {
		if !card.Supports(t) {
			card.Capabilities = append(card.Capabilities, domain.Capability{TaskType: t})
		}
	}
	return card
}

// RegisterHandler binds a handler for a task type. Call before serving;
// registering the same type again replaces the previous handler.
func (r *Runtime) RegisterHandler(h Handler) {
	r.registry.Register(h)
}

// Receive accepts a task addressed to this agent. Addressing and handler
// lookup are checked before anything is persisted, so a rejected task leaves
// no record. On acceptance the task is stored, moved to in_progress, and its
// handler started on a new goroutine; the in_progress task is returned
// immediately without waiting for the handler.
//
// Receiving the same task id again overwrites the previous record and runs
// the handler again: replacement, not exactly-once.
func (r *Runtime) Receive(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	ctx, span := otel.Tracer("agent").Start(ctx, "agent.receive")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("task.type", task.Type),
		attribute.String("agent.id", r.id),
	)

	if task.TargetAgentID != r.id {
		err := &domain.TargetMismatchError{TaskID: task.ID, Want: task.TargetAgentID, Got: r.id}
		span.RecordError(err)
		telemetry.AgentTasksRejected.WithLabelValues(r.id, "target_mismatch").Inc()
		return nil, err
	}
	h, err := r.registry.Get(task.Type)
	if err != nil {
		span.RecordError(err)
		telemetry.AgentTasksRejected.WithLabelValues(r.id, "unknown_type").Inc()
		return nil, err
	}

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.Status = domain.StatusPending
	task.UpdatedAt = now

	if err := r.persist(ctx, task); err != nil {
		return nil, err
	}

	if err := task.UpdateStatus(domain.StatusInProgress); err != nil {
		return nil, err
	}
	if err := r.persist(ctx, task); err != nil {
		return nil, err
	}

	telemetry.AgentTasksReceived.WithLabelValues(r.id, task.Type).Inc()
	r.logger.Info("task accepted",
		slog.String("task_id", task.ID),
		slog.String("task_type", task.Type),
		slog.String("source", task.SourceAgentID),
	)

	running := *task
	r.wg.Add(1)
	go r.execute(span, h, &running)

	accepted := *task
	return &accepted, nil
}

// execute runs the handler on its own goroutine and records the terminal
// state. The handler gets a fresh context parented to the receive span so it
// outlives the originating HTTP request.
func (r *Runtime) execute(parent trace.Span, h Handler, task *domain.Task) {
	defer r.wg.Done()

	ctx, span := otel.Tracer("agent").Start(
		trace.ContextWithSpan(context.Background(), parent), "agent.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("task.type", task.Type),
	)

	start := time.Now()
	err := r.runHandler(ctx, h, task)
	telemetry.AgentHandlerDurationSeconds.WithLabelValues(r.id, task.Type).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")
	}
	if cerr := r.Complete(ctx, task, err); cerr != nil {
		r.logger.Error("failed to record terminal state",
			slog.String("task_id", task.ID),
			slog.String("error", cerr.Error()),
		)
	}
}

// runHandler invokes the handler, mapping panics to errors so a misbehaving
// handler cannot leave the task stuck in_progress.
func (r *Runtime) runHandler(ctx context.Context, h Handler, task *domain.Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h.Handle(ctx, task)
}

// Complete moves an in_progress task to its terminal state and persists it.
// A nil handler error means completed; otherwise failed with the error text
// recorded in metadata.
func (r *Runtime) Complete(ctx context.Context, task *domain.Task, handlerErr error) error {
	terminal := domain.StatusCompleted
	if handlerErr != nil {
		terminal = domain.StatusFailed
		task.SetMeta(domain.MetaError, handlerErr.Error())
	}
	if err := task.UpdateStatus(terminal); err != nil {
		return err
	}
	if err := r.persist(ctx, task); err != nil {
		return err
	}

	telemetry.AgentTasksCompleted.WithLabelValues(r.id, task.Type, string(terminal)).Inc()
	if handlerErr != nil {
		r.logger.Error("task failed",
			slog.String("task_id", task.ID),
			slog.String("task_type", task.Type),
			slog.String("error", handlerErr.Error()),
		)
	} else {
		r.logger.Info("task completed",
			slog.String("task_id", task.ID),
			slog.String("task_type", task.Type),
		)
	}
	return nil
}

// Cancel withdraws a task that has not started executing. Only pending tasks
// can be canceled; anything else is an illegal transition.
func (r *Runtime) Cancel(ctx context.Context, id string) (*domain.Task, error) {
	task, err := r.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := task.UpdateStatus(domain.StatusCanceled); err != nil {
		return nil, err
	}
	if err := r.persist(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Task loads a task, overlaying the live status from the cache when present.
func (r *Runtime) Task(ctx context.Context, id string) (*domain.Task, error) {
	task, err := r.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if status, err := r.cache.GetStatus(ctx, id); err == nil {
			task.Status = status
		}
	}
	return task, nil
}

// ApplyStatus routes an externally requested status change through the state
// machine and persists the result.
func (r *Runtime) ApplyStatus(ctx context.Context, id string, next domain.Status) (*domain.Task, error) {
	task, err := r.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := task.UpdateStatus(next); err != nil {
		return nil, err
	}
	if err := r.persist(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// MergeMetadata merges metadata entries into a task and persists the result.
// The record is read from the store directly, never through the cache
// overlay: the cache is a read optimization and may be stale, and writing an
// overlaid status back could pull the durable record out of a terminal state.
func (r *Runtime) MergeMetadata(ctx context.Context, id string, meta map[string]string) (*domain.Task, error) {
	task, err := r.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	for k, v := range meta {
		task.SetMeta(k, v)
	}
	if err := r.persist(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Ready reports whether the runtime's backing stores are reachable.
func (r *Runtime) Ready(ctx context.Context) error {
	if r.cache != nil {
		if err := r.cache.Ping(ctx); err != nil {
			return err
		}
	}
	if _, err := r.tasks.Get(ctx, "__readyz__"); err != nil {
		var nf *domain.TaskNotFoundError
		if !errors.As(err, &nf) {
			return err
		}
	}
	return nil
}

// Wait blocks until all in-flight handlers finish. Call during shutdown.
func (r *Runtime) Wait() { r.wg.Wait() }

// persist upserts the task and mirrors its status into the cache. Cache
// failures are logged, not returned: the document store is the record.
func (r *Runtime) persist(ctx context.Context, task *domain.Task) error {
	if err := r.tasks.Put(ctx, task); err != nil {
		return fmt.Errorf("persist task %s: %w", task.ID, err)
	}
	if r.cache != nil {
		if err := r.cache.SetStatus(ctx, task.ID, task.Status); err != nil {
			r.logger.Warn("status cache write failed",
				slog.String("task_id", task.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
