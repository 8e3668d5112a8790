// Package contentscheduler implements the content & scheduling agent: it
// adapts raw post text per platform, persists the post, and defers
// publication through the job scheduler.
package contentscheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MFaiqKhan/SocialSpark/internal/agent"
	"github.com/MFaiqKhan/SocialSpark/internal/content"
	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	"github.com/MFaiqKhan/SocialSpark/internal/scheduler"
	"github.com/MFaiqKhan/SocialSpark/internal/store"
)

// AgentID is the identity peers address tasks to.
const AgentID = "content-scheduler-agent"

// Task types this agent accepts and emits.
const (
	TaskProcessSchedulePost = "process_and_schedule_post"
	TaskPostStatusUpdate    = "post_status_update"
	TaskPublishPost         = "publish_post"
	TaskFetchAnalytics      = "fetch_platform_analytics"
)

// Agent wires the scheduling handlers onto a runtime.
type Agent struct {
	runtime  *agent.Runtime
	posts    store.PostStore
	sched    *scheduler.Scheduler
	dispatch agent.Dispatcher
	rules    map[domain.Platform]content.Rules
	logger   *slog.Logger

	// Status updates from different platforms land concurrently; post
	// read-modify-writes must not interleave.
	mu sync.Mutex
}

// New registers the agent's handlers on the runtime and returns the Agent.
func New(
	runtime *agent.Runtime,
	posts store.PostStore,
	sched *scheduler.Scheduler,
	dispatch agent.Dispatcher,
	logger *slog.Logger,
) *Agent {
	a := &Agent{
		runtime:  runtime,
		posts:    posts,
		sched:    sched,
		dispatch: dispatch,
		rules:    content.DefaultRules(),
		logger:   logger,
	}
	runtime.RegisterHandler(agent.FuncHandler{Type: TaskProcessSchedulePost, Fn: a.handleProcessSchedulePost})
	runtime.RegisterHandler(agent.FuncHandler{Type: TaskPostStatusUpdate, Fn: a.handlePostStatusUpdate})
	return a
}

// Card describes this agent for discovery.
func Card() domain.AgentCard {
	return domain.AgentCard{
		AgentID:     AgentID,
		Name:        "Content & Scheduling Agent",
		Description: "Adapts social media content per platform and schedules it for publication",
		Version:     "0.1.0",
		Capabilities: []domain.Capability{
			{TaskType: TaskProcessSchedulePost, Description: "Process social media content and schedule it for publication on multiple platforms"},
			{TaskType: TaskPostStatusUpdate, Description: "Handle updates on the status of posts published to social platforms"},
		},
	}
}

// handleProcessSchedulePost validates the request, adapts the text for every
// target platform, persists the post, and registers the deferred publish job.
func (a *Agent) handleProcessSchedulePost(ctx context.Context, task *domain.Task) error {
	part, ok := task.DataPartByContentType("application/json")
	if !ok {
		return &domain.ValidationError{Reason: "no content data found in task"}
	}
	data := part.Data

	userID, _ := data["user_id"].(string)
	rawText, _ := data["raw_text"].(string)
	imageRef, _ := data["image_ref"].(string)
	scheduleTimeStr, _ := data["schedule_time"].(string)

	if userID == "" {
		return &domain.ValidationError{Field: "user_id", Reason: "required"}
	}
	if rawText == "" {
		return &domain.ValidationError{Field: "raw_text", Reason: "required"}
	}
	if scheduleTimeStr == "" {
		return &domain.ValidationError{Field: "schedule_time", Reason: "required"}
	}

	platforms, err := a.parsePlatforms(data["target_platforms"])
	if err != nil {
		return err
	}

	scheduleTime, err := time.Parse(time.RFC3339, scheduleTimeStr)
	if err != nil {
		return &domain.ValidationError{Field: "schedule_time", Reason: "invalid format " + scheduleTimeStr}
	}

	kind := domain.ContentText
	if imageRef != "" {
		kind = domain.ContentTextImage
	}

	now := time.Now().UTC()
	post := &domain.ScheduledPost{
		ID:           uuid.New().String(),
		UserID:       userID,
		RawText:      rawText,
		ContentKind:  kind,
		ImageRef:     imageRef,
		Platforms:    platforms,
		ScheduleTime: scheduleTime.UTC(),
		Status:       domain.PostScheduled,
		Content:      make(map[domain.Platform]domain.PlatformContent),
		Credentials:  parseCredentials(data["social_media_credentials"]),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for _, platform := range platforms {
		rules, ok := a.rules[platform]
		if !ok {
			a.logger.Warn("no adaptation rules for platform", slog.String("platform", string(platform)))
			continue
		}
		post.Content[platform] = content.Adapt(rawText, imageRef, platform, rules)
	}

	if err := a.posts.Put(ctx, post); err != nil {
		return fmt.Errorf("save post %s: %w", post.ID, err)
	}
	if err := a.sched.Schedule(ctx, domain.PublishJobID(post.ID), post.ScheduleTime, post.ID); err != nil {
		return err
	}

	task.SetMeta("post_id", post.ID)
	task.SetMeta("schedule_time", post.ScheduleTime.Format(time.RFC3339))

	a.logger.Info("post scheduled",
		slog.String("post_id", post.ID),
		slog.Time("schedule_time", post.ScheduleTime),
		slog.Int("platforms", len(platforms)),
	)
	return nil
}

// handlePostStatusUpdate records a platform's publication result on the post.
func (a *Agent) handlePostStatusUpdate(ctx context.Context, task *domain.Task) error {
	part, ok := task.DataPartByContentType("application/json")
	if !ok {
		return &domain.ValidationError{Reason: "no content data found in task"}
	}
	data := part.Data

	postID, _ := data["socialspark_post_id"].(string)
	platformStr, _ := data["platform"].(string)
	status, _ := data["status"].(string)
	platformPostID, _ := data["platform_post_id"].(string)
	errorMessage, _ := data["error_message"].(string)

	if postID == "" {
		return &domain.ValidationError{Field: "socialspark_post_id", Reason: "required"}
	}
	if platformStr == "" {
		return &domain.ValidationError{Field: "platform", Reason: "required"}
	}
	if status == "" {
		return &domain.ValidationError{Field: "status", Reason: "required"}
	}
	platform, err := domain.ParsePlatform(platformStr)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	post, err := a.posts.Get(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post for status update: %w", err)
	}

	switch status {
	case "success":
		if platformPostID != "" {
			post.RecordPlatformPostID(platform, platformPostID)
		}
		a.logger.Info("platform publish confirmed",
			slog.String("post_id", postID),
			slog.String("platform", platformStr),
			slog.String("platform_post_id", platformPostID),
		)
	case "failure":
		post.RecordPlatformError(platform, errorMessage)
		post.Status = domain.PostFailed
		a.logger.Error("platform publish failed",
			slog.String("post_id", postID),
			slog.String("platform", platformStr),
			slog.String("error", errorMessage),
		)
	default:
		return &domain.ValidationError{Field: "status", Reason: "must be success or failure"}
	}

	if err := a.posts.Put(ctx, post); err != nil {
		return fmt.Errorf("save post %s: %w", postID, err)
	}
	task.SetMeta("post_id", postID)
	return nil
}

// parsePlatforms accepts the wire-level platform list. Unsupported names are
// logged and skipped; an empty result is a validation failure.
func (a *Agent) parsePlatforms(raw any) ([]domain.Platform, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, &domain.ValidationError{Field: "target_platforms", Reason: "required"}
	}
	var out []domain.Platform
	for _, item := range items {
		s, _ := item.(string)
		platform, err := domain.ParsePlatform(s)
		if err != nil {
			a.logger.Warn("unsupported platform", slog.String("platform", s))
			continue
		}
		out = append(out, platform)
	}
	if len(out) == 0 {
		return nil, &domain.ValidationError{Field: "target_platforms", Reason: "no valid target platforms specified"}
	}
	return out, nil
}

// parseCredentials converts the loose wire shape into per-platform string maps.
func parseCredentials(raw any) map[domain.Platform]map[string]string {
	byPlatform, ok := raw.(map[string]any)
	if !ok || len(byPlatform) == 0 {
		return nil
	}
	out := make(map[domain.Platform]map[string]string, len(byPlatform))
	for platformStr, credsRaw := range byPlatform {
		platform, err := domain.ParsePlatform(platformStr)
		if err != nil {
			continue
		}
		creds, ok := credsRaw.(map[string]any)
		if !ok {
			continue
		}
		m := make(map[string]string, len(creds))
		for k, v := range creds {
			if s, ok := v.(string); ok {
				m[k] = s
			}
		}
		out[platform] = m
	}
	return out
}
