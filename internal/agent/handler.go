// Package agent implements the runtime every agent process is built on:
// a handler registry, the task receive/execute lifecycle, the HTTP surface,
// and the dispatch client for sending tasks to peer agents.
package agent

import (
	"context"
	"sync"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
)

// Handler processes tasks of a specific type.
type Handler interface {
	Handle(ctx context.Context, task *domain.Task) error
	TaskType() string
}

// FuncHandler adapts a function to the Handler interface.
type FuncHandler struct {
	Type string
	Fn   func(ctx context.Context, task *domain.Task) error
}

func (h FuncHandler) Handle(ctx context.Context, task *domain.Task) error { return h.Fn(ctx, task) }
func (h FuncHandler) TaskType() string                                    { return h.Type }

// Registry maps task types to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. Registering the same task type again replaces
// the previous handler. Safe to call concurrently.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.TaskType()] = h
}

// Get returns the handler for the given task type.
// Returns UnknownTaskTypeError if not registered.
func (r *Registry) Get(taskType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[taskType]
	if !ok {
		return nil, &domain.UnknownTaskTypeError{TaskType: taskType}
	}
	return h, nil
}

// Types returns the registered task types, for the agent card.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}
