package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
)

// Server exposes a Runtime over HTTP.
type Server struct {
	runtime *Runtime
	logger  *slog.Logger
}

// NewServer creates the HTTP surface for a runtime.
func NewServer(runtime *Runtime, logger *slog.Logger) *Server {
	return &Server{runtime: runtime, logger: logger}
}

// Router builds the chi router for the agent's task endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestLogger(s.logger))

	r.Post("/tasks", s.receiveTask)
	r.Get("/tasks/{id}", s.getTask)
	r.Patch("/tasks/{id}", s.patchTask)
	r.Get("/card", s.getCard)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)

	return r
}

// updateTaskRequest is the JSON body for PATCH /tasks/{id}.
type updateTaskRequest struct {
	Status   string            `json:"status,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// receiveTask handles POST /tasks: a peer agent delivering a task.
func (s *Server) receiveTask(w http.ResponseWriter, r *http.Request) {
	// Join the sender's trace before starting our own span.
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	var task domain.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(task.Type) == "" {
		writeError(w, http.StatusBadRequest, "field 'type' is required")
		return
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	accepted, err := s.runtime.Receive(ctx, &task)
	if err != nil {
		var mismatch *domain.TargetMismatchError
		var unknown *domain.UnknownTaskTypeError
		var invalid *domain.ValidationError
		switch {
		case errors.As(err, &mismatch), errors.As(err, &unknown), errors.As(err, &invalid):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("receive failed", slog.String("task_id", task.ID), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to accept task")
		}
		return
	}

	writeJSON(w, http.StatusCreated, accepted)
}

// getTask handles GET /tasks/{id}.
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := s.runtime.Task(r.Context(), id)
	if err != nil {
		var notFound *domain.TaskNotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Error("get task failed", slog.String("task_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to retrieve task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// patchTask handles PATCH /tasks/{id}. A status field is routed through the
// lifecycle state machine; metadata entries are merged in.
func (s *Server) patchTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	var task *domain.Task
	var err error

	switch {
	case req.Status != "":
		status, perr := domain.ParseStatus(req.Status)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		if task, err = s.runtime.ApplyStatus(ctx, id, status); err == nil && len(req.Metadata) > 0 {
			task, err = s.runtime.MergeMetadata(ctx, id, req.Metadata)
		}
	case len(req.Metadata) > 0:
		// Metadata updates go through the store record, not the cached view:
		// persisting a cache-overlaid status could regress a terminal task.
		task, err = s.runtime.MergeMetadata(ctx, id, req.Metadata)
	default:
		task, err = s.runtime.Task(ctx, id)
	}
	if err != nil {
		var notFound *domain.TaskNotFoundError
		var illegal *domain.InvalidTransitionError
		switch {
		case errors.As(err, &notFound):
			writeError(w, http.StatusNotFound, "task not found")
		case errors.As(err, &illegal):
			writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error("patch task failed", slog.String("task_id", id), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to update task")
		}
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// getCard handles GET /card: the agent's discovery document.
func (s *Server) getCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runtime.Card())
}

// healthz reports process liveness.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports whether the backing stores are reachable.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.runtime.Ready(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
