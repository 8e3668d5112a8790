// Package facebook implements the Facebook posting agent: it publishes
// adapted content to a page feed through the Graph API and reports the
// outcome back to the agent that requested the publish.
package facebook

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MFaiqKhan/SocialSpark/internal/agent"
	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	"github.com/MFaiqKhan/SocialSpark/pkg/telemetry"
)

// AgentID is the identity peers address tasks to.
const AgentID = "facebook-posting-agent"

// Task types this agent accepts and emits.
const (
	TaskPublishPost      = "publish_post"
	TaskFetchAnalytics   = "fetch_platform_analytics"
	TaskPostStatusUpdate = "post_status_update"
	TaskReportPublished  = "report_published_post"
)

// defaultPageID is used when the publish request carries no page credential.
const defaultPageID = "me"

// Agent wires the Facebook handlers onto a runtime.
type Agent struct {
	runtime         *agent.Runtime
	graph           GraphClient
	dispatch        agent.Dispatcher
	analyticsTarget string
	logger          *slog.Logger
}

// Option configures optional Agent behavior.
type Option func(*Agent)

// WithAnalyticsTarget names the agent that receives report_published_post
// tasks after a successful publish. Empty disables the report.
func WithAnalyticsTarget(target string) Option {
	return func(a *Agent) { a.analyticsTarget = target }
}

// New registers the agent's handlers on the runtime and returns the Agent.
func New(runtime *agent.Runtime, graph GraphClient, dispatch agent.Dispatcher, logger *slog.Logger, opts ...Option) *Agent {
	a := &Agent{
		runtime:  runtime,
		graph:    graph,
		dispatch: dispatch,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	runtime.RegisterHandler(agent.FuncHandler{Type: TaskPublishPost, Fn: a.handlePublishPost})
	runtime.RegisterHandler(agent.FuncHandler{Type: TaskFetchAnalytics, Fn: a.handleFetchAnalytics})
	return a
}

// Card describes this agent for discovery.
func Card() domain.AgentCard {
	return domain.AgentCard{
		AgentID:     AgentID,
		Name:        "Facebook Posting Agent",
		Description: "Publishes content to Facebook pages and fetches post analytics",
		Version:     "0.1.0",
		Capabilities: []domain.Capability{
			{TaskType: TaskPublishPost, Description: "Publish a post to a Facebook page"},
			{TaskType: TaskFetchAnalytics, Description: "Fetch engagement analytics for a published Facebook post"},
		},
	}
}

// handlePublishPost publishes one post to the page feed. Graph API failures
// are reported back as a failure status update and do not fail the task; only
// malformed requests do.
func (a *Agent) handlePublishPost(ctx context.Context, task *domain.Task) error {
	part, ok := task.DataPartByContentType("application/json")
	if !ok {
		return &domain.ValidationError{Reason: "no content data found in task"}
	}
	data := part.Data

	postID, _ := data["socialspark_post_id"].(string)
	userID, _ := data["user_id"].(string)
	token, _ := data["facebook_token"].(string)
	pageID, _ := data["facebook_page_id"].(string)
	if pageID == "" {
		pageID = defaultPageID
	}

	var text, imageRef string
	if pc, ok := data["platform_specific_content"].(map[string]any); ok {
		text, _ = pc["text"].(string)
		imageRef, _ = pc["image_reference"].(string)
	}

	if err := a.validatePublish(postID, userID, token, text, imageRef); err != nil {
		// A malformed request fails the task, but the scheduler still
		// deserves to hear about it when we know which post this was.
		a.sendStatusUpdate(ctx, task, postID, "failure", "", err.Error())
		return err
	}

	fbPostID, err := a.graph.PublishPost(ctx, token, pageID, text, imageRef)
	if err != nil {
		telemetry.PostsPublished.WithLabelValues(string(domain.PlatformFacebook), "api_error").Inc()
		a.logger.Error("graph api publish failed",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		task.SetMeta("error", err.Error())
		a.sendStatusUpdate(ctx, task, postID, "failure", "", err.Error())
		return nil
	}

	telemetry.PostsPublished.WithLabelValues(string(domain.PlatformFacebook), "published").Inc()
	task.SetMeta("facebook_post_id", fbPostID)
	a.logger.Info("post published to facebook",
		slog.String("post_id", postID),
		slog.String("facebook_post_id", fbPostID),
	)

	a.sendStatusUpdate(ctx, task, postID, "success", fbPostID, "")
	a.reportPublished(ctx, task, postID, fbPostID, userID)
	return nil
}

// handleFetchAnalytics fetches engagement metrics and attaches them to the
// task as a response data part.
func (a *Agent) handleFetchAnalytics(ctx context.Context, task *domain.Task) error {
	part, ok := task.DataPartByContentType("application/json")
	if !ok {
		return &domain.ValidationError{Reason: "no content data found in task"}
	}
	data := part.Data

	fbPostID, _ := data["platform_post_id"].(string)
	token, _ := data["facebook_token"].(string)
	if fbPostID == "" {
		return &domain.ValidationError{Field: "platform_post_id", Reason: "required"}
	}
	if token == "" {
		return &domain.ValidationError{Field: "facebook_token", Reason: "required"}
	}

	metrics := []string{"likes", "comments", "shares"}
	if raw, ok := data["metrics"].([]any); ok && len(raw) > 0 {
		metrics = metrics[:0]
		for _, m := range raw {
			if s, _ := m.(string); s != "" {
				metrics = append(metrics, s)
			}
		}
	}

	analytics, err := a.graph.PostAnalytics(ctx, token, fbPostID, metrics)
	if err != nil {
		return err
	}

	task.AddDataPart(domain.DataPart{
		ID:          uuid.New().String(),
		ContentType: "application/json",
		Data: map[string]any{
			"platform_post_id": fbPostID,
			"analytics":        analytics,
		},
	})
	task.SetMeta("platform_post_id", fbPostID)
	return nil
}

func (a *Agent) validatePublish(postID, userID, token, text, imageRef string) error {
	if userID == "" {
		return &domain.ValidationError{Field: "user_id", Reason: "required"}
	}
	if postID == "" {
		return &domain.ValidationError{Field: "socialspark_post_id", Reason: "required"}
	}
	if token == "" {
		return &domain.ValidationError{Field: "facebook_token", Reason: "required"}
	}
	if text == "" && imageRef == "" {
		return &domain.ValidationError{Field: "platform_specific_content", Reason: "post must have text or an image"}
	}
	return nil
}

// sendStatusUpdate reports a publish outcome back to the agent that sent the
// publish task. Delivery is best effort.
func (a *Agent) sendStatusUpdate(ctx context.Context, task *domain.Task, postID, status, fbPostID, errorMessage string) {
	if postID == "" {
		return
	}
	target := task.SourceAgentID
	if target == "" {
		target = "content-scheduler-agent"
	}

	data := map[string]any{
		"socialspark_post_id": postID,
		"platform":            string(domain.PlatformFacebook),
		"status":              status,
	}
	if fbPostID != "" {
		data["platform_post_id"] = fbPostID
	}
	if errorMessage != "" {
		data["error_message"] = errorMessage
	}

	parts := []domain.DataPart{{
		ID:          uuid.New().String(),
		ContentType: "application/json",
		Data:        data,
	}}
	if _, err := a.dispatch.Send(ctx, target, TaskPostStatusUpdate, parts, agent.WithParent(task.ID)); err != nil {
		a.logger.Error("status update dispatch failed",
			slog.String("post_id", postID),
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
	}
}

// reportPublished tells the analytics agent about a fresh publication so it
// can start tracking engagement. Skipped when no target is configured.
func (a *Agent) reportPublished(ctx context.Context, task *domain.Task, postID, fbPostID, userID string) {
	if a.analyticsTarget == "" {
		return
	}
	parts := []domain.DataPart{{
		ID:          uuid.New().String(),
		ContentType: "application/json",
		Data: map[string]any{
			"socialspark_post_id": postID,
			"platform":            string(domain.PlatformFacebook),
			"platform_post_id":    fbPostID,
			"user_id":             userID,
		},
	}}
	if _, err := a.dispatch.Send(ctx, a.analyticsTarget, TaskReportPublished, parts, agent.WithParent(task.ID)); err != nil {
		a.logger.Error("publish report dispatch failed",
			slog.String("post_id", postID),
			slog.String("target", a.analyticsTarget),
			slog.String("error", err.Error()),
		)
	}
}
