// Package store defines the persistence boundaries for tasks, scheduled
// posts, and deferred jobs, plus in-memory implementations of each.
package store

import (
	"context"
	"time"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
)

// TaskStore persists tasks keyed by id. Put is an upsert; the last writer
// for a key wins.
type TaskStore interface {
	Put(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, id string) (*domain.Task, error)
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Task, error)
	Delete(ctx context.Context, id string) error
}

// PostStore persists scheduled posts keyed by id.
type PostStore interface {
	Put(ctx context.Context, post *domain.ScheduledPost) error
	Get(ctx context.Context, id string) (*domain.ScheduledPost, error)
	ListByStatus(ctx context.Context, status domain.PostStatus, limit int) ([]*domain.ScheduledPost, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.ScheduledPost, error)
	Delete(ctx context.Context, id string) error
}

// JobStore persists deferred jobs. Put replaces an existing job with the
// same id, so re-scheduling a post moves its job rather than duplicating it.
type JobStore interface {
	Put(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	Due(ctx context.Context, now time.Time) ([]*domain.Job, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*domain.Job, error)
}
