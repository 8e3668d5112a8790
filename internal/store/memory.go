package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
)

// MemoryTaskStore is a mutex-guarded in-memory TaskStore. Useful for tests
// and single-process runs without a database.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
}

// NewMemoryTaskStore creates an empty MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]domain.Task)}
}

func (s *MemoryTaskStore) Put(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

func (s *MemoryTaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, &domain.TaskNotFoundError{TaskID: id}
	}
	return &t, nil
}

func (s *MemoryTaskStore) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Task
	for _, t := range s.tasks {
		if t.Status == status {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryTaskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return &domain.TaskNotFoundError{TaskID: id}
	}
	delete(s.tasks, id)
	return nil
}

// MemoryPostStore is a mutex-guarded in-memory PostStore.
type MemoryPostStore struct {
	mu    sync.RWMutex
	posts map[string]domain.ScheduledPost
}

// NewMemoryPostStore creates an empty MemoryPostStore.
func NewMemoryPostStore() *MemoryPostStore {
	return &MemoryPostStore{posts: make(map[string]domain.ScheduledPost)}
}

func (s *MemoryPostStore) Put(ctx context.Context, post *domain.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = *post
	return nil
}

func (s *MemoryPostStore) Get(ctx context.Context, id string) (*domain.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, &domain.PostNotFoundError{PostID: id}
	}
	return &p, nil
}

func (s *MemoryPostStore) ListByStatus(ctx context.Context, status domain.PostStatus, limit int) ([]*domain.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.ScheduledPost
	for _, p := range s.posts {
		if p.Status == status {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleTime.Before(out[j].ScheduleTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryPostStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.ScheduledPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.ScheduledPost
	for _, p := range s.posts {
		if p.UserID == userID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleTime.Before(out[j].ScheduleTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryPostStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return &domain.PostNotFoundError{PostID: id}
	}
	delete(s.posts, id)
	return nil
}

// MemoryJobStore is a mutex-guarded in-memory JobStore.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
}

// NewMemoryJobStore creates an empty MemoryJobStore.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]domain.Job)}
}

func (s *MemoryJobStore) Put(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, &domain.JobNotFoundError{JobID: id}
	}
	return &j, nil
}

func (s *MemoryJobStore) Due(ctx context.Context, now time.Time) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Job
	for _, j := range s.jobs {
		if !j.DueAt.After(now) {
			j := j
			out = append(out, &j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (s *MemoryJobStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return &domain.JobNotFoundError{JobID: id}
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryJobStore) List(ctx context.Context) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		j := j
		out = append(out, &j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}
