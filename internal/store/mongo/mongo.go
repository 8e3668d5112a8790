// Package mongo provides MongoDB-backed implementations of the store
// interfaces. Documents are keyed by the entity id in _id, and Put is a
// ReplaceOne upsert so re-writes keep a single document per key.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
)

const (
	tasksCollection = "tasks"
	postsCollection = "posts"
	jobsCollection  = "scheduler_jobs"
)

// Connect creates a client and verifies connectivity.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// TaskStore persists tasks in the tasks collection.
type TaskStore struct {
	coll *mongo.Collection
}

// NewTaskStore binds a TaskStore to the given database.
func NewTaskStore(db *mongo.Database) *TaskStore {
	return &TaskStore{coll: db.Collection(tasksCollection)}
}

func (s *TaskStore) Put(ctx context.Context, task *domain.Task) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": task.ID}, task, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put task %s: %w", task.ID, err)
	}
	return nil
}

func (s *TaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &domain.TaskNotFoundError{TaskID: id}
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &task, nil
}

func (s *TaskStore) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, bson.M{"status": string(status)}, opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks by status %s: %w", status, err)
	}
	var tasks []*domain.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return &domain.TaskNotFoundError{TaskID: id}
	}
	return nil
}

// PostStore persists scheduled posts in the posts collection.
type PostStore struct {
	coll *mongo.Collection
}

// NewPostStore binds a PostStore to the given database.
func NewPostStore(db *mongo.Database) *PostStore {
	return &PostStore{coll: db.Collection(postsCollection)}
}

func (s *PostStore) Put(ctx context.Context, post *domain.ScheduledPost) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": post.ID}, post, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put post %s: %w", post.ID, err)
	}
	return nil
}

func (s *PostStore) Get(ctx context.Context, id string) (*domain.ScheduledPost, error) {
	var post domain.ScheduledPost
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &domain.PostNotFoundError{PostID: id}
		}
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return &post, nil
}

func (s *PostStore) ListByStatus(ctx context.Context, status domain.PostStatus, limit int) ([]*domain.ScheduledPost, error) {
	opts := options.Find().SetSort(bson.D{{Key: "schedule_time", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, bson.M{"status": string(status)}, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts by status %s: %w", status, err)
	}
	var posts []*domain.ScheduledPost
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

func (s *PostStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.ScheduledPost, error) {
	opts := options.Find().SetSort(bson.D{{Key: "schedule_time", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts by user %s: %w", userID, err)
	}
	var posts []*domain.ScheduledPost
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

func (s *PostStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return &domain.PostNotFoundError{PostID: id}
	}
	return nil
}

// JobStore persists deferred jobs in the scheduler_jobs collection. The job
// documents are the durable scheduling record: they survive restarts and are
// re-fired by the next scheduler tick.
type JobStore struct {
	coll *mongo.Collection
}

// NewJobStore binds a JobStore to the given database.
func NewJobStore(db *mongo.Database) *JobStore {
	return &JobStore{coll: db.Collection(jobsCollection)}
}

func (s *JobStore) Put(ctx context.Context, job *domain.Job) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": job.ID}, job, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put job %s: %w", job.ID, err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &domain.JobNotFoundError{JobID: id}
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

func (s *JobStore) Due(ctx context.Context, now time.Time) ([]*domain.Job, error) {
	opts := options.Find().SetSort(bson.D{{Key: "due_at", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"due_at": bson.M{"$lte": now}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}
	var jobs []*domain.Job
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	return jobs, nil
}

func (s *JobStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return &domain.JobNotFoundError{JobID: id}
	}
	return nil
}

func (s *JobStore) List(ctx context.Context) ([]*domain.Job, error) {
	opts := options.Find().SetSort(bson.D{{Key: "due_at", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	var jobs []*domain.Job
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	return jobs, nil
}
