package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	"github.com/MFaiqKhan/SocialSpark/internal/store"
)

func newTestServer(t *testing.T) (*Server, *Runtime, *store.MemoryTaskStore) {
	t.Helper()
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)
	return NewServer(rt, slog.Default()), rt, tasks
}

func postTask(t *testing.T, router http.Handler, task *domain.Task) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(task)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestServer_PostTask_Returns201InProgress(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	rt.RegisterHandler(&fakeHandler{taskType: "publish_post", callsErr: []error{nil}})
	router := srv.Router()

	rec := postTask(t, router, pendingTask("task-1", "publish_post"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var got domain.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "task-1", got.ID)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	rt.Wait()
}

func TestServer_PostTask_TargetMismatchIs400(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	rt.RegisterHandler(&fakeHandler{taskType: "publish_post"})

	task := pendingTask("task-2", "publish_post")
	task.TargetAgentID = "other-agent"
	rec := postTask(t, srv.Router(), task)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_PostTask_UnknownTypeIs400(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := postTask(t, srv.Router(), pendingTask("task-3", "mystery"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_PostTask_MalformedBodyIs400(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewReader([]byte("not-json")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_PostTask_GeneratesIDWhenMissing(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	rt.RegisterHandler(&fakeHandler{taskType: "publish_post", callsErr: []error{nil}})

	task := pendingTask("", "publish_post")
	rec := postTask(t, srv.Router(), task)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got domain.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.ID)
	rt.Wait()
}

func TestServer_GetTask_200And404(t *testing.T) {
	srv, _, tasks := newTestServer(t)
	require.NoError(t, tasks.Put(context.Background(), pendingTask("task-4", "publish_post")))
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/tasks/task-4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/tasks/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_PatchTask_StatusThroughStateMachine(t *testing.T) {
	srv, _, tasks := newTestServer(t)
	require.NoError(t, tasks.Put(context.Background(), pendingTask("task-5", "publish_post")))
	router := srv.Router()

	body := []byte(`{"status":"canceled"}`)
	req := httptest.NewRequest(http.MethodPatch, "/tasks/task-5", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.StatusCanceled, got.Status)

	// canceled is terminal: further updates conflict.
	body = []byte(`{"status":"in_progress"}`)
	req = httptest.NewRequest(http.MethodPatch, "/tasks/task-5", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_PatchTask_UnknownStatusIs400(t *testing.T) {
	srv, _, tasks := newTestServer(t)
	require.NoError(t, tasks.Put(context.Background(), pendingTask("task-6", "publish_post")))

	body := []byte(`{"status":"RUNNING"}`)
	req := httptest.NewRequest(http.MethodPatch, "/tasks/task-6", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_PatchTask_MergesMetadata(t *testing.T) {
	srv, _, tasks := newTestServer(t)
	require.NoError(t, tasks.Put(context.Background(), pendingTask("task-7", "publish_post")))

	body := []byte(`{"metadata":{"note":"checked"}}`)
	req := httptest.NewRequest(http.MethodPatch, "/tasks/task-7", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := tasks.Get(context.Background(), "task-7")
	require.NoError(t, err)
	assert.Equal(t, "checked", stored.Metadata["note"])
}

func TestServer_PatchTask_MetadataKeepsStoredStatus(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	cache := newFakeCache()
	card := domain.AgentCard{Name: "Test Agent", Version: "0.0.0"}
	rt := NewRuntime("test-agent", card, tasks, WithLogger(slog.Default()), WithStatusCache(cache))
	srv := NewServer(rt, slog.Default())

	done := pendingTask("task-8", "publish_post")
	done.Status = domain.StatusCompleted
	require.NoError(t, tasks.Put(context.Background(), done))
	// Stale cache entry from before the terminal transition landed.
	cache.states["task-8"] = domain.StatusInProgress

	body := []byte(`{"metadata":{"note":"checked"}}`)
	req := httptest.NewRequest(http.MethodPatch, "/tasks/task-8", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := tasks.Get(context.Background(), "task-8")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status, "terminal status must survive a metadata patch")
	assert.Equal(t, "checked", stored.Metadata["note"])
}

func TestServer_Card(t *testing.T) {
	srv, rt, _ := newTestServer(t)
	rt.RegisterHandler(&fakeHandler{taskType: "publish_post"})

	req := httptest.NewRequest(http.MethodGet, "/card", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var card domain.AgentCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Equal(t, "test-agent", card.AgentID)
	assert.True(t, card.Supports("publish_post"))
}

func TestServer_HealthAndReady(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Router()

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
