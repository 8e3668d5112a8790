package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	"github.com/MFaiqKhan/SocialSpark/pkg/telemetry"
)

// Dispatcher sends tasks to peer agents. Implemented by Client over HTTP and
// by Loopback for in-process wiring.
type Dispatcher interface {
	Send(ctx context.Context, target, taskType string, parts []domain.DataPart, opts ...SendOption) (*domain.Task, error)
}

// SendOption customizes an outbound task.
type SendOption func(*domain.Task)

// WithParent links the outbound task to the task whose handler is sending it.
func WithParent(taskID string) SendOption {
	return func(t *domain.Task) { t.ParentTaskID = taskID }
}

// WithMetadata seeds the outbound task's metadata.
func WithMetadata(md map[string]string) SendOption {
	return func(t *domain.Task) {
		for k, v := range md {
			t.SetMeta(k, v)
		}
	}
}

// Client dispatches tasks to peer agents over HTTP. Peers are resolved from
// a static agent-id to base-URL map.
//
// The client deliberately carries no timeout and no retry: a dispatch either
// lands or surfaces as a DispatchError, and a slow peer blocks only the
// sending goroutine.
type Client struct {
	agentID string
	peers   map[string]string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a dispatch client identifying itself as agentID.
func NewClient(agentID string, peers map[string]string, logger *slog.Logger) *Client {
	return &Client{
		agentID: agentID,
		peers:   peers,
		http:    &http.Client{},
		logger:  logger,
	}
}

// Send builds a pending task and POSTs it to the target agent's /tasks
// endpoint. The returned task is the peer's stored record, already
// in_progress.
func (c *Client) Send(ctx context.Context, target, taskType string, parts []domain.DataPart, opts ...SendOption) (*domain.Task, error) {
	base, ok := c.peers[target]
	if !ok {
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("no endpoint configured")}
	}

	now := time.Now().UTC()
	task := &domain.Task{
		ID:            uuid.New().String(),
		Type:          taskType,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		SourceAgentID: c.agentID,
		TargetAgentID: target,
		DataParts:     parts,
	}
	for _, opt := range opts {
		opt(task)
	}

	body, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/tasks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		telemetry.AgentDispatchFailures.WithLabelValues(c.agentID, target).Inc()
		return nil, &domain.DispatchError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		telemetry.AgentDispatchFailures.WithLabelValues(c.agentID, target).Inc()
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("peer returned %d: %s", resp.StatusCode, readErrorBody(resp.Body))}
	}

	var accepted domain.Task
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("decode response: %w", err)}
	}

	c.logger.Info("task dispatched",
		slog.String("task_id", accepted.ID),
		slog.String("task_type", taskType),
		slog.String("target", target),
	)
	return &accepted, nil
}

// Status fetches a task's current record from the target agent.
func (c *Client) Status(ctx context.Context, target, taskID string) (*domain.Task, error) {
	base, ok := c.peers[target]
	if !ok {
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("no endpoint configured")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/tasks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.DispatchError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &domain.TaskNotFoundError{TaskID: taskID}
	default:
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("peer returned %d: %s", resp.StatusCode, readErrorBody(resp.Body))}
	}

	var task domain.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &task, nil
}

// UpdateStatus PATCHes a task's status on the target agent.
func (c *Client) UpdateStatus(ctx context.Context, target, taskID string, status domain.Status) (*domain.Task, error) {
	base, ok := c.peers[target]
	if !ok {
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("no endpoint configured")}
	}

	body, err := json.Marshal(map[string]string{"status": string(status)})
	if err != nil {
		return nil, fmt.Errorf("marshal update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, base+"/tasks/"+taskID, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.DispatchError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &domain.TaskNotFoundError{TaskID: taskID}
	default:
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("peer returned %d: %s", resp.StatusCode, readErrorBody(resp.Body))}
	}

	var task domain.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &task, nil
}

// Card fetches the target agent's discovery document, listing the task types
// it accepts.
func (c *Client) Card(ctx context.Context, target string) (*domain.AgentCard, error) {
	base, ok := c.peers[target]
	if !ok {
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("no endpoint configured")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/card", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.DispatchError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("peer returned %d: %s", resp.StatusCode, readErrorBody(resp.Body))}
	}

	var card domain.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, &domain.DispatchError{Target: target, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &card, nil
}

// readErrorBody extracts the error field from a JSON error response, falling
// back to the raw body.
func readErrorBody(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(raw)
}
