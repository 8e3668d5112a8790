package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
)

// Loopback delivers tasks directly to in-process runtimes, bypassing HTTP.
// Used to wire multiple agents inside one process and in tests.
type Loopback struct {
	sourceID string
	runtimes map[string]*Runtime
}

// NewLoopback creates a Loopback dispatcher identifying itself as sourceID.
func NewLoopback(sourceID string) *Loopback {
	return &Loopback{sourceID: sourceID, runtimes: make(map[string]*Runtime)}
}

// Attach registers a runtime as the receiver for its agent id.
func (l *Loopback) Attach(r *Runtime) {
	l.runtimes[r.ID()] = r
}

// Send builds a pending task and hands it straight to the target runtime.
func (l *Loopback) Send(ctx context.Context, target, taskType string, parts []domain.DataPart, opts ...SendOption) (*domain.Task, error) {
	rt, ok := l.runtimes[target]
	if !ok {
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("no runtime attached")}
	}

	now := time.Now().UTC()
	task := &domain.Task{
		ID:            uuid.New().String(),
		Type:          taskType,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		SourceAgentID: l.sourceID,
		TargetAgentID: target,
		DataParts:     parts,
	}
	for _, opt := range opts {
		opt(task)
	}

	accepted, err := rt.Receive(ctx, task)
	if err != nil {
		return nil, &domain.DispatchError{Target: target, Err: err}
	}
	return accepted, nil
}
