package agent

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	"github.com/MFaiqKhan/SocialSpark/internal/store"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

type fakeHandler struct {
	taskType string
	callsErr []error // errors to return per call; nil entry = success
	calls    int
	seen     []*domain.Task
}

func (h *fakeHandler) TaskType() string { return h.taskType }
func (h *fakeHandler) Handle(_ context.Context, task *domain.Task) error {
	var err error
	if h.calls < len(h.callsErr) {
		err = h.callsErr[h.calls]
	}
	h.calls++
	h.seen = append(h.seen, task)
	return err
}

type fakeCache struct {
	states map[string]domain.Status
}

func newFakeCache() *fakeCache {
	return &fakeCache{states: make(map[string]domain.Status)}
}

func (c *fakeCache) SetStatus(_ context.Context, id string, st domain.Status) error {
	c.states[id] = st
	return nil
}
func (c *fakeCache) GetStatus(_ context.Context, id string) (domain.Status, error) {
	st, ok := c.states[id]
	if !ok {
		return "", &domain.TaskNotFoundError{TaskID: id}
	}
	return st, nil
}
func (c *fakeCache) Ping(_ context.Context) error { return nil }

// ── helpers ───────────────────────────────────────────────────────────────────

func newTestRuntime(t *testing.T, tasks store.TaskStore) *Runtime {
	t.Helper()
	card := domain.AgentCard{Name: "Test Agent", Version: "0.0.0"}
	return NewRuntime("test-agent", card, tasks, WithLogger(slog.Default()))
}

func pendingTask(id, taskType string) *domain.Task {
	now := time.Now().UTC()
	return &domain.Task{
		ID:            id,
		Type:          taskType,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		SourceAgentID: "peer-agent",
		TargetAgentID: "test-agent",
	}
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestRuntime_Receive_SuccessPath(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)
	h := &fakeHandler{taskType: "publish_post", callsErr: []error{nil}}
	rt.RegisterHandler(h)

	accepted, err := rt.Receive(context.Background(), pendingTask("task-1", "publish_post"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, accepted.Status, "caller sees in_progress immediately")

	rt.Wait()

	stored, err := tasks.Get(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, 1, h.calls)
}

func TestRuntime_Receive_HandlerErrorRecordsFailure(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)
	rt.RegisterHandler(&fakeHandler{taskType: "publish_post", callsErr: []error{errors.New("graph api down")}})

	_, err := rt.Receive(context.Background(), pendingTask("task-2", "publish_post"))
	require.NoError(t, err)
	rt.Wait()

	stored, err := tasks.Get(context.Background(), "task-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Equal(t, "graph api down", stored.Metadata[domain.MetaError])
}

func TestRuntime_Receive_TargetMismatchRejectedBeforePersist(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)
	rt.RegisterHandler(&fakeHandler{taskType: "publish_post"})

	task := pendingTask("task-3", "publish_post")
	task.TargetAgentID = "some-other-agent"

	_, err := rt.Receive(context.Background(), task)
	var mismatch *domain.TargetMismatchError
	require.ErrorAs(t, err, &mismatch)

	_, err = tasks.Get(context.Background(), "task-3")
	var nf *domain.TaskNotFoundError
	require.ErrorAs(t, err, &nf, "rejected task must leave no record")
}

func TestRuntime_Receive_UnknownTypeRejectedBeforePersist(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)

	_, err := rt.Receive(context.Background(), pendingTask("task-4", "mystery"))
	var unknown *domain.UnknownTaskTypeError
	require.ErrorAs(t, err, &unknown)

	_, err = tasks.Get(context.Background(), "task-4")
	var nf *domain.TaskNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRuntime_Receive_HandlerPanicBecomesFailed(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)
	rt.RegisterHandler(FuncHandler{Type: "publish_post", Fn: func(context.Context, *domain.Task) error {
		panic("boom")
	}})

	_, err := rt.Receive(context.Background(), pendingTask("task-5", "publish_post"))
	require.NoError(t, err)
	rt.Wait()

	stored, err := tasks.Get(context.Background(), "task-5")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Contains(t, stored.Metadata[domain.MetaError], "panic")
}

func TestRuntime_Receive_ReplacementRunsHandlerAgain(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)
	h := &fakeHandler{taskType: "publish_post", callsErr: []error{nil, nil}}
	rt.RegisterHandler(h)

	_, err := rt.Receive(context.Background(), pendingTask("task-6", "publish_post"))
	require.NoError(t, err)
	rt.Wait()

	_, err = rt.Receive(context.Background(), pendingTask("task-6", "publish_post"))
	require.NoError(t, err)
	rt.Wait()

	assert.Equal(t, 2, h.calls, "re-receive replaces and re-executes")
	stored, err := tasks.Get(context.Background(), "task-6")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestRuntime_Cancel_PendingOnly(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)

	pending := pendingTask("task-7", "publish_post")
	require.NoError(t, tasks.Put(context.Background(), pending))

	got, err := rt.Cancel(context.Background(), "task-7")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, got.Status)

	// Canceled is terminal; a second cancel is an illegal transition.
	_, err = rt.Cancel(context.Background(), "task-7")
	var illegal *domain.InvalidTransitionError
	require.ErrorAs(t, err, &illegal)
}

func TestRuntime_Task_OverlaysCachedStatus(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	cache := newFakeCache()
	card := domain.AgentCard{Name: "Test Agent", Version: "0.0.0"}
	rt := NewRuntime("test-agent", card, tasks, WithLogger(slog.Default()), WithStatusCache(cache))

	stale := pendingTask("task-8", "publish_post")
	require.NoError(t, tasks.Put(context.Background(), stale))
	cache.states["task-8"] = domain.StatusInProgress

	got, err := rt.Task(context.Background(), "task-8")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status, "live status wins over the stored record")
}

func TestRuntime_MergeMetadata_DoesNotWriteCacheOverlayBack(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	cache := newFakeCache()
	card := domain.AgentCard{Name: "Test Agent", Version: "0.0.0"}
	rt := NewRuntime("test-agent", card, tasks, WithLogger(slog.Default()), WithStatusCache(cache))

	done := pendingTask("task-10", "publish_post")
	done.Status = domain.StatusCompleted
	require.NoError(t, tasks.Put(context.Background(), done))
	cache.states["task-10"] = domain.StatusInProgress

	got, err := rt.MergeMetadata(context.Background(), "task-10", map[string]string{"note": "checked"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	stored, err := tasks.Get(context.Background(), "task-10")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status, "stale cache status must not reach the store")
	assert.Equal(t, "checked", stored.Metadata["note"])
}

func TestRuntime_ApplyStatus_IllegalTransition(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)

	done := pendingTask("task-9", "publish_post")
	done.Status = domain.StatusCompleted
	require.NoError(t, tasks.Put(context.Background(), done))

	_, err := rt.ApplyStatus(context.Background(), "task-9", domain.StatusInProgress)
	var illegal *domain.InvalidTransitionError
	require.ErrorAs(t, err, &illegal)
}

func TestRuntime_Card_MergesRegisteredTypes(t *testing.T) {
	rt := newTestRuntime(t, store.NewMemoryTaskStore())
	rt.RegisterHandler(&fakeHandler{taskType: "publish_post"})

	card := rt.Card()
	assert.Equal(t, "test-agent", card.AgentID)
	assert.True(t, card.Supports("publish_post"))
}
