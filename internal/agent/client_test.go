package agent

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	"github.com/MFaiqKhan/SocialSpark/internal/store"
)

// startPeer serves a real runtime over httptest and returns its base URL.
func startPeer(t *testing.T, rt *Runtime) string {
	t.Helper()
	srv := httptest.NewServer(NewServer(rt, slog.Default()).Router())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestClient_Send_RoundTrip(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)
	h := &fakeHandler{taskType: "publish_post", callsErr: []error{nil}}
	rt.RegisterHandler(h)
	url := startPeer(t, rt)

	client := NewClient("sender-agent", map[string]string{"test-agent": url}, slog.Default())
	parts := []domain.DataPart{{ID: "p-1", ContentType: "application/json", Data: map[string]any{"post_id": "42"}}}

	accepted, err := client.Send(context.Background(), "test-agent", "publish_post", parts,
		WithParent("parent-task"),
		WithMetadata(map[string]string{"origin": "unit"}),
	)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, accepted.Status)
	assert.Equal(t, "sender-agent", accepted.SourceAgentID)
	assert.Equal(t, "parent-task", accepted.ParentTaskID)
	assert.Equal(t, "unit", accepted.Metadata["origin"])
	rt.Wait()

	require.Len(t, h.seen, 1)
	require.Len(t, h.seen[0].DataParts, 1)
	assert.Equal(t, "42", h.seen[0].DataParts[0].Data["post_id"])
}

func TestClient_Send_UnknownPeer(t *testing.T) {
	client := NewClient("sender-agent", map[string]string{}, slog.Default())

	_, err := client.Send(context.Background(), "nowhere-agent", "publish_post", nil)
	var de *domain.DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "nowhere-agent", de.Target)
}

func TestClient_Send_PeerRejectionIsDispatchError(t *testing.T) {
	// Peer has no handler for this type, so the POST comes back 400.
	rt := newTestRuntime(t, store.NewMemoryTaskStore())
	url := startPeer(t, rt)

	client := NewClient("sender-agent", map[string]string{"test-agent": url}, slog.Default())
	_, err := client.Send(context.Background(), "test-agent", "mystery", nil)

	var de *domain.DispatchError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Error(), "400")
}

func TestClient_Send_TransportFailureIsDispatchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // closed server: connection refused

	client := NewClient("sender-agent", map[string]string{"test-agent": srv.URL}, slog.Default())
	_, err := client.Send(context.Background(), "test-agent", "publish_post", nil)

	var de *domain.DispatchError
	require.ErrorAs(t, err, &de)
}

func TestClient_Status_FetchesPeerRecord(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)
	rt.RegisterHandler(&fakeHandler{taskType: "publish_post", callsErr: []error{nil}})
	url := startPeer(t, rt)

	client := NewClient("sender-agent", map[string]string{"test-agent": url}, slog.Default())
	accepted, err := client.Send(context.Background(), "test-agent", "publish_post", nil)
	require.NoError(t, err)
	rt.Wait()

	got, err := client.Status(context.Background(), "test-agent", accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	_, err = client.Status(context.Background(), "test-agent", "missing")
	var nf *domain.TaskNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestClient_UpdateStatus_PatchesPeer(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)
	url := startPeer(t, rt)
	require.NoError(t, tasks.Put(context.Background(), pendingTask("task-1", "publish_post")))

	client := NewClient("sender-agent", map[string]string{"test-agent": url}, slog.Default())
	got, err := client.UpdateStatus(context.Background(), "test-agent", "task-1", domain.StatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, got.Status)

	// Terminal now: the peer answers 409, surfaced as a DispatchError.
	_, err = client.UpdateStatus(context.Background(), "test-agent", "task-1", domain.StatusInProgress)
	var de *domain.DispatchError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Error(), "409")
}

func TestClient_Card_FetchesPeerDiscoveryDocument(t *testing.T) {
	rt := newTestRuntime(t, store.NewMemoryTaskStore())
	rt.RegisterHandler(&fakeHandler{taskType: "publish_post"})
	url := startPeer(t, rt)

	client := NewClient("sender-agent", map[string]string{"test-agent": url}, slog.Default())
	card, err := client.Card(context.Background(), "test-agent")
	require.NoError(t, err)
	assert.Equal(t, "test-agent", card.AgentID)
	assert.True(t, card.Supports("publish_post"))

	_, err = client.Card(context.Background(), "nowhere-agent")
	var de *domain.DispatchError
	require.ErrorAs(t, err, &de)
}

func TestLoopback_DeliversInProcess(t *testing.T) {
	tasks := store.NewMemoryTaskStore()
	rt := newTestRuntime(t, tasks)
	h := &fakeHandler{taskType: "publish_post", callsErr: []error{nil}}
	rt.RegisterHandler(h)

	lb := NewLoopback("sender-agent")
	lb.Attach(rt)

	accepted, err := lb.Send(context.Background(), "test-agent", "publish_post", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, accepted.Status)
	rt.Wait()
	assert.Equal(t, 1, h.calls)

	_, err = lb.Send(context.Background(), "ghost-agent", "publish_post", nil)
	var de *domain.DispatchError
	require.ErrorAs(t, err, &de)
}
