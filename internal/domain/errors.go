package domain

import "fmt"

// TaskNotFoundError is returned when a task ID does not exist.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// PostNotFoundError is returned when a scheduled post ID does not exist.
type PostNotFoundError struct {
	PostID string
}

func (e *PostNotFoundError) Error() string {
	return fmt.Sprintf("post not found: %s", e.PostID)
}

// JobNotFoundError is returned when a deferred job ID does not exist.
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// ValidationError is returned when a task payload is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// TargetMismatchError is returned when a task arrives at an agent it was not
// addressed to.
type TargetMismatchError struct {
	TaskID string
	Want   string
	Got    string
}

func (e *TargetMismatchError) Error() string {
	return fmt.Sprintf("task %s addressed to %q, this agent is %q", e.TaskID, e.Want, e.Got)
}

// UnknownTaskTypeError is returned when no handler is registered for a task type.
type UnknownTaskTypeError struct {
	TaskType string
}

func (e *UnknownTaskTypeError) Error() string {
	return fmt.Sprintf("no handler registered for task type %q", e.TaskType)
}

// InvalidTransitionError is returned when a status update would violate the
// task lifecycle.
type InvalidTransitionError struct {
	TaskID string
	From   Status
	To     Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s: illegal transition %s -> %s", e.TaskID, e.From, e.To)
}

// DispatchError is returned when sending a task to a peer agent fails at the
// transport level or the peer rejects it.
type DispatchError struct {
	Target string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %q failed: %v", e.Target, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
