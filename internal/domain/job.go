package domain

import "time"

// PublishJobPrefix namespaces deferred publication jobs so the job id is
// deterministic per post and re-scheduling replaces the previous entry.
const PublishJobPrefix = "publish-post-"

// Job is a deferred one-shot job held in the job store until its due time.
type Job struct {
	ID        string    `json:"id" bson:"_id"`
	DueAt     time.Time `json:"due_at" bson:"due_at"`
	Arg       string    `json:"arg" bson:"arg"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// PublishJobID derives the deterministic job id for a post.
func PublishJobID(postID string) string {
	return PublishJobPrefix + postID
}
