package contentscheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/MFaiqKhan/SocialSpark/internal/agent"
	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	"github.com/MFaiqKhan/SocialSpark/internal/store"
)

// defaultMetrics are requested when the poller has no per-post preference.
var defaultMetrics = []string{"likes", "comments", "shares"}

// AnalyticsPoller periodically asks the platform posting agents for
// engagement metrics on every published post.
type AnalyticsPoller struct {
	posts    store.PostStore
	dispatch agent.Dispatcher
	schedule cron.Schedule
	logger   *slog.Logger
}

// NewAnalyticsPoller parses spec as a standard 5-field cron expression (it
// also accepts descriptors like "@every 15m" and "@hourly").
func NewAnalyticsPoller(posts store.PostStore, dispatch agent.Dispatcher, spec string, logger *slog.Logger) (*AnalyticsPoller, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse analytics schedule %q: %w", spec, err)
	}
	return &AnalyticsPoller{
		posts:    posts,
		dispatch: dispatch,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Run polls on the cron schedule until ctx is canceled.
func (p *AnalyticsPoller) Run(ctx context.Context) {
	p.logger.Info("analytics poller started")
	for {
		next := p.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("analytics poller stopped")
			return
		case <-timer.C:
			p.poll(ctx)
		}
	}
}

// poll sends one fetch_platform_analytics task per published platform post.
func (p *AnalyticsPoller) poll(ctx context.Context) {
	posts, err := p.posts.ListByStatus(ctx, domain.PostPublished, 0)
	if err != nil {
		p.logger.Error("list published posts", slog.String("error", err.Error()))
		return
	}

	var sent int
	for _, post := range posts {
		for platform, platformPostID := range post.PlatformPostIDs {
			target := string(platform) + "-posting-agent"

			token := PlaceholderToken
			if t, ok := post.Credentials[platform]["access_token"]; ok && t != "" {
				token = t
			}
			parts := []domain.DataPart{{
				ID:          uuid.New().String(),
				ContentType: "application/json",
				Data: map[string]any{
					"socialspark_post_id":       post.ID,
					"platform_post_id":          platformPostID,
					"metrics":                   defaultMetrics,
					string(platform) + "_token": token,
				},
			}}

			if _, err := p.dispatch.Send(ctx, target, TaskFetchAnalytics, parts); err != nil {
				p.logger.Error("analytics dispatch failed",
					slog.String("post_id", post.ID),
					slog.String("target", target),
					slog.String("error", err.Error()),
				)
				continue
			}
			sent++
		}
	}
	p.logger.Info("analytics poll complete", slog.Int("requests_sent", sent))
}
