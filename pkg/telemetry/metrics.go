package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── Agent runtime ───────────────────────────────────────────────────────────

	AgentTasksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialspark",
		Subsystem: "agent",
		Name:      "tasks_received_total",
		Help:      "Total tasks accepted by an agent, labelled by agent and task type.",
	}, []string{"agent", "type"})

	AgentTasksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialspark",
		Subsystem: "agent",
		Name:      "tasks_rejected_total",
		Help:      "Total tasks rejected before persistence, labelled by reason.",
	}, []string{"agent", "reason"})

	AgentTasksCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialspark",
		Subsystem: "agent",
		Name:      "tasks_completed_total",
		Help:      "Total tasks reaching a terminal state, labelled by type and status.",
	}, []string{"agent", "type", "status"})

	AgentHandlerDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "socialspark",
		Subsystem: "agent",
		Name:      "handler_duration_seconds",
		Help:      "Handler execution time in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"agent", "type"})

	AgentDispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialspark",
		Subsystem: "agent",
		Name:      "dispatch_failures_total",
		Help:      "Total outbound task dispatches that failed, labelled by target agent.",
	}, []string{"agent", "target"})

	// ─── Scheduler ───────────────────────────────────────────────────────────────

	SchedulerJobsFired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "socialspark",
		Subsystem: "scheduler",
		Name:      "jobs_fired_total",
		Help:      "Total deferred jobs whose due time was reached.",
	})

	SchedulerQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "socialspark",
		Subsystem: "scheduler",
		Name:      "publish_queue_depth",
		Help:      "Post ids currently waiting in the publish queue.",
	})

	SchedulerDrainRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "socialspark",
		Subsystem: "scheduler",
		Name:      "drain_runs_total",
		Help:      "Total drain passes over the publish queue.",
	})

	SchedulerPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "socialspark",
		Subsystem: "scheduler",
		Name:      "publish_errors_total",
		Help:      "Total drained jobs whose publish handler returned an error.",
	})

	// ─── Publishing ──────────────────────────────────────────────────────────────

	PostsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialspark",
		Subsystem: "publish",
		Name:      "posts_published_total",
		Help:      "Total platform publications, labelled by platform and outcome.",
	}, []string{"platform", "outcome"})
)
