package domain

import "time"

// Status represents the states a task can be in.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// IsTerminal returns true if no further state transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// edge. Legal edges: pending→in_progress, pending→canceled,
// in_progress→completed, in_progress→failed.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusCanceled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// ParseStatus validates a status value received over the wire.
func ParseStatus(s string) (Status, error) {
	switch v := Status(s); v {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusCanceled:
		return v, nil
	default:
		return "", &ValidationError{Field: "status", Reason: "unknown status " + s}
	}
}

// MetaError is the metadata key carrying a handler's failure text.
const MetaError = "error"

// DataPart is a typed payload fragment owned by exactly one task.
type DataPart struct {
	ID          string         `json:"id" bson:"id"`
	ContentType string         `json:"content_type" bson:"content_type"`
	Data        map[string]any `json:"data" bson:"data"`
	Metadata    map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// Task is the unit of work exchanged between agents: a typed payload plus
// its lifecycle status, addressed from a source agent to a target agent.
type Task struct {
	ID            string            `json:"id" bson:"_id"`
	Type          string            `json:"type" bson:"type"`
	Status        Status            `json:"status" bson:"status"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" bson:"updated_at"`
	SourceAgentID string            `json:"source_agent_id" bson:"source_agent_id"`
	TargetAgentID string            `json:"target_agent_id" bson:"target_agent_id"`
	ParentTaskID  string            `json:"parent_task_id,omitempty" bson:"parent_task_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	DataParts     []DataPart        `json:"data_parts" bson:"data_parts"`
}

// UpdateStatus applies a lifecycle transition and bumps UpdatedAt. Illegal
// edges return an InvalidTransitionError and leave the task untouched.
func (t *Task) UpdateStatus(next Status) error {
	if !t.Status.CanTransition(next) {
		return &InvalidTransitionError{TaskID: t.ID, From: t.Status, To: next}
	}
	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// AddDataPart appends a payload fragment and bumps UpdatedAt.
func (t *Task) AddDataPart(p DataPart) {
	t.DataParts = append(t.DataParts, p)
	t.UpdatedAt = time.Now().UTC()
}

// DataPartByContentType returns the first part with the given content type.
func (t *Task) DataPartByContentType(contentType string) (DataPart, bool) {
	for _, p := range t.DataParts {
		if p.ContentType == contentType {
			return p, true
		}
	}
	return DataPart{}, false
}

// SetMeta records a metadata entry, allocating the map on first use.
func (t *Task) SetMeta(key, value string) {
	if t.Metadata == nil {
		t.Metadata = make(map[string]string)
	}
	t.Metadata[key] = value
	t.UpdatedAt = time.Now().UTC()
}
