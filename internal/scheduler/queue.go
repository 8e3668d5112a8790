// Package scheduler implements deferred publication: a timer loop over the
// durable job store, an in-memory publish queue bridging the timer to the
// publishing side, and the drain loop that consumes it.
package scheduler

import (
	"sync"

	"github.com/MFaiqKhan/SocialSpark/pkg/telemetry"
)

// Queue is the in-memory FIFO between the scheduler's timer callbacks and
// the drain loop. It must be constructed with NewQueue before the scheduler
// starts; timer callbacks never create it implicitly.
//
// An arg already waiting is not enqueued twice, so a job that fires again
// before the next drain does not produce a duplicate publish.
type Queue struct {
	mu      sync.Mutex
	items   []string
	pending map[string]struct{}
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[string]struct{})}
}

// Enqueue appends arg unless it is already waiting. Returns true if the arg
// was added.
func (q *Queue) Enqueue(arg string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[arg]; ok {
		return false
	}
	q.pending[arg] = struct{}{}
	q.items = append(q.items, arg)
	telemetry.SchedulerQueueDepth.Set(float64(len(q.items)))
	return true
}

// TakeAll removes and returns everything waiting, in enqueue order.
func (q *Queue) TakeAll() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	q.pending = make(map[string]struct{})
	telemetry.SchedulerQueueDepth.Set(0)
	return out
}

// Len reports how many args are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
