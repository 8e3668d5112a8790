package contentscheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	"github.com/MFaiqKhan/SocialSpark/pkg/telemetry"
)

// PlaceholderToken is sent when a platform has no stored credentials, so
// downstream agents fail with a clear token error instead of a missing field.
const PlaceholderToken = "PLACEHOLDER_TOKEN"

// PublishPost is the drain loop's publish callback: it loads the post, marks
// it published, and fans a publish_post task out to every target platform's
// posting agent.
//
// The post is marked published before the fan-out. Per-platform outcomes
// arrive later as post_status_update tasks and may flip the post to failed.
func (a *Agent) PublishPost(ctx context.Context, postID string) error {
	a.mu.Lock()
	post, err := a.posts.Get(ctx, postID)
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("load post for publish: %w", err)
	}

	post.Status = domain.PostPublished
	post.UpdatedAt = time.Now().UTC()
	if err := a.posts.Put(ctx, post); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("save post %s: %w", postID, err)
	}
	a.mu.Unlock()

	// The lock is not held across dispatches; status updates triggered by the
	// fan-out may land while later platforms are still being dispatched.
	var dispatchErrs map[domain.Platform]string
	for _, platform := range post.Platforms {
		pc, ok := post.Content[platform]
		if !ok {
			a.logger.Warn("no adapted content for platform, skipping",
				slog.String("post_id", postID),
				slog.String("platform", string(platform)),
			)
			continue
		}

		target := string(platform) + "-posting-agent"
		parts := []domain.DataPart{{
			ID:          uuid.New().String(),
			ContentType: "application/json",
			Data:        publishData(post, platform, pc),
		}}

		if _, err := a.dispatch.Send(ctx, target, TaskPublishPost, parts); err != nil {
			// Fire and forget: a failed dispatch is recorded, never retried.
			telemetry.PostsPublished.WithLabelValues(string(platform), "dispatch_failed").Inc()
			a.logger.Error("publish dispatch failed",
				slog.String("post_id", postID),
				slog.String("target", target),
				slog.String("error", err.Error()),
			)
			if dispatchErrs == nil {
				dispatchErrs = make(map[domain.Platform]string)
			}
			dispatchErrs[platform] = err.Error()
			continue
		}
		telemetry.PostsPublished.WithLabelValues(string(platform), "dispatched").Inc()
	}

	if len(dispatchErrs) > 0 {
		if err := a.recordDispatchErrors(ctx, postID, dispatchErrs); err != nil {
			return err
		}
	}

	a.logger.Info("post fan-out complete",
		slog.String("post_id", postID),
		slog.Int("platforms", len(post.Platforms)),
	)
	return nil
}

// recordDispatchErrors re-reads the post under the mutation lock and records
// per-platform dispatch failures without clobbering status updates that
// arrived during the fan-out.
func (a *Agent) recordDispatchErrors(ctx context.Context, postID string, errs map[domain.Platform]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	post, err := a.posts.Get(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post for error record: %w", err)
	}
	for platform, msg := range errs {
		post.RecordPlatformError(platform, msg)
	}
	if err := a.posts.Put(ctx, post); err != nil {
		return fmt.Errorf("save post %s: %w", postID, err)
	}
	return nil
}

// publishData builds the wire payload for one platform's publish_post task.
func publishData(post *domain.ScheduledPost, platform domain.Platform, pc domain.PlatformContent) map[string]any {
	data := map[string]any{
		"user_id": post.UserID,
		"platform_specific_content": map[string]any{
			"text":            pc.Text,
			"image_reference": pc.ImageRef,
			"hashtags":        pc.Hashtags,
			"metadata":        pc.Extra,
		},
		"socialspark_post_id": post.ID,
	}

	token := PlaceholderToken
	creds := post.Credentials[platform]
	if t, ok := creds["access_token"]; ok && t != "" {
		token = t
	}
	data[string(platform)+"_token"] = token

	if platform == domain.PlatformFacebook {
		if pageID, ok := creds["page_id"]; ok && pageID != "" {
			data["facebook_page_id"] = pageID
		}
	}
	return data
}
