//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MFaiqKhan/SocialSpark/internal/agent"
	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	redisstore "github.com/MFaiqKhan/SocialSpark/internal/redis"
	"github.com/MFaiqKhan/SocialSpark/internal/scheduler"
	mongostore "github.com/MFaiqKhan/SocialSpark/internal/store/mongo"
	"github.com/MFaiqKhan/SocialSpark/services/contentscheduler"
	"github.com/MFaiqKhan/SocialSpark/services/facebook"
)

// TestE2E_ScheduleAndPublishOverHTTP runs both agents with real Mongo and
// Redis backends, wired to each other over HTTP, and pushes one post through
// the whole pipeline: schedule, fire, fan out, publish, report back.
func TestE2E_ScheduleAndPublishOverHTTP(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	csDB := newDatabase(t)
	fbDB := newDatabase(t)

	redisClient := redisstore.NewClient(testRedisAddr)
	t.Cleanup(func() { redisClient.Close() }) //nolint:errcheck
	cache := redisstore.NewStatusCache(redisClient)

	// ── content scheduler ────────────────────────────────────────────────────
	posts := mongostore.NewPostStore(csDB)
	jobs := mongostore.NewJobStore(csDB)

	csRuntime := agent.NewRuntime(contentscheduler.AgentID, contentscheduler.Card(),
		mongostore.NewTaskStore(csDB), agent.WithLogger(logger), agent.WithStatusCache(cache))
	csSrv := httptest.NewServer(agent.NewServer(csRuntime, logger).Router())
	t.Cleanup(csSrv.Close)

	// ── facebook agent ───────────────────────────────────────────────────────
	fbRuntime := agent.NewRuntime(facebook.AgentID, facebook.Card(),
		mongostore.NewTaskStore(fbDB), agent.WithLogger(logger))
	fbSrv := httptest.NewServer(agent.NewServer(fbRuntime, logger).Router())
	t.Cleanup(fbSrv.Close)

	csDispatch := agent.NewClient(contentscheduler.AgentID,
		map[string]string{facebook.AgentID: fbSrv.URL}, logger)
	fbDispatch := agent.NewClient(facebook.AgentID,
		map[string]string{contentscheduler.AgentID: csSrv.URL}, logger)

	queue := scheduler.NewQueue()
	sched := scheduler.NewScheduler(jobs,
		func(j *domain.Job) { queue.Enqueue(j.Arg) },
		scheduler.WithTickInterval(50*time.Millisecond),
		scheduler.WithLogger(logger),
	)
	svc := contentscheduler.New(csRuntime, posts, sched, csDispatch, logger)
	drain := scheduler.NewDrainLoop(queue, svc.PublishPost,
		scheduler.WithDrainInterval(50*time.Millisecond),
		scheduler.WithDrainLogger(logger),
	)
	facebook.New(fbRuntime, facebook.MockGraphClient{}, fbDispatch, logger)

	runCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go sched.Run(runCtx)
	go drain.Run(runCtx)

	// ── submit one post scheduled in the past ────────────────────────────────
	client := agent.NewClient("test-client",
		map[string]string{contentscheduler.AgentID: csSrv.URL}, logger)

	accepted, err := client.Send(ctx, contentscheduler.AgentID,
		contentscheduler.TaskProcessSchedulePost,
		[]domain.DataPart{{
			ID:          uuid.New().String(),
			ContentType: "application/json",
			Data: map[string]any{
				"user_id":          "user-1",
				"raw_text":         "Launch day #golang",
				"target_platforms": []any{"facebook"},
				"schedule_time":    time.Now().UTC().Add(-time.Second).Format(time.RFC3339),
				"social_media_credentials": map[string]any{
					"facebook": map[string]any{"access_token": "real-token", "page_id": "page-42"},
				},
			},
		}})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, accepted.Status)

	// ── the pipeline runs to completion ──────────────────────────────────────
	require.Eventually(t, func() bool {
		published, err := posts.ListByStatus(ctx, domain.PostPublished, 1)
		if err != nil || len(published) == 0 {
			return false
		}
		_, ok := published[0].PlatformPostIDs[domain.PlatformFacebook]
		return ok
	}, 15*time.Second, 100*time.Millisecond, "post should publish and record the facebook post id")

	published, err := posts.ListByStatus(ctx, domain.PostPublished, 1)
	require.NoError(t, err)
	post := published[0]
	assert.True(t, strings.HasPrefix(post.PlatformPostIDs[domain.PlatformFacebook], "fb_mock_"))
	assert.True(t, post.AllPlatformsReported())

	// The originating task is queryable over HTTP and completed.
	final, err := client.Status(ctx, contentscheduler.AgentID, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.Equal(t, post.ID, final.Metadata["post_id"])

	// The publish job was consumed.
	remaining, err := jobs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
