package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MFaiqKhan/SocialSpark/internal/agent"
	"github.com/MFaiqKhan/SocialSpark/internal/domain"
	redisstore "github.com/MFaiqKhan/SocialSpark/internal/redis"
	"github.com/MFaiqKhan/SocialSpark/internal/scheduler"
	mongostore "github.com/MFaiqKhan/SocialSpark/internal/store/mongo"
	"github.com/MFaiqKhan/SocialSpark/pkg/telemetry"
	"github.com/MFaiqKhan/SocialSpark/services/contentscheduler"
	"github.com/MFaiqKhan/SocialSpark/services/contentscheduler/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the content scheduler agent",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	serveCmd.Flags().String("mongo-db", "socialspark", "MongoDB database name")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Redis address (host:port)")
	serveCmd.Flags().String("http-port", "8001", "HTTP server port")
	serveCmd.Flags().String("metrics-addr", ":9091", "Prometheus metrics server address")
	serveCmd.Flags().StringToString("peers", map[string]string{
		"facebook-posting-agent": "http://localhost:8002",
	}, "agent-id=base-url pairs for peer agents")
	serveCmd.Flags().Duration("tick-interval", time.Second, "scheduler poll interval for due jobs")
	serveCmd.Flags().Duration("drain-interval", 30*time.Second, "publish queue drain interval")
	serveCmd.Flags().String("analytics-schedule", "", "cron expression for the analytics poller (e.g. @every 15m); empty disables")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP HTTP endpoint for tracing (e.g. localhost:4318); empty disables tracing")

	bindFlag("mongo_uri", serveCmd.Flags(), "mongo-uri")
	bindFlag("mongo_db", serveCmd.Flags(), "mongo-db")
	bindFlag("redis_addr", serveCmd.Flags(), "redis-addr")
	bindFlag("http_port", serveCmd.Flags(), "http-port")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("peers", serveCmd.Flags(), "peers")
	bindFlag("tick_interval", serveCmd.Flags(), "tick-interval")
	bindFlag("drain_interval", serveCmd.Flags(), "drain-interval")
	bindFlag("analytics_schedule", serveCmd.Flags(), "analytics-schedule")
	bindFlag("otel_endpoint", serveCmd.Flags(), "otel-endpoint")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	logger := buildLogger(cfg.LogLevel, "content-scheduler")

	shutdownTracer, err := telemetry.InitTracer(context.Background(), "content-scheduler", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer()

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoClient, err := mongostore.Connect(initCtx, cfg.MongoURI)
	cancel()
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	db := mongoClient.Database(cfg.MongoDB)
	tasks := mongostore.NewTaskStore(db)
	posts := mongostore.NewPostStore(db)
	jobs := mongostore.NewJobStore(db)

	redisClient := redisstore.NewClient(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()
	cache := redisstore.NewStatusCache(redisClient)

	dispatch := agent.NewClient(contentscheduler.AgentID, cfg.Peers, logger)
	runtime := agent.NewRuntime(contentscheduler.AgentID, contentscheduler.Card(), tasks,
		agent.WithLogger(logger),
		agent.WithStatusCache(cache),
	)

	queue := scheduler.NewQueue()
	sched := scheduler.NewScheduler(jobs,
		func(j *domain.Job) { queue.Enqueue(j.Arg) },
		scheduler.WithTickInterval(cfg.TickInterval),
		scheduler.WithLogger(logger),
	)
	svc := contentscheduler.New(runtime, posts, sched, dispatch, logger)
	drain := scheduler.NewDrainLoop(queue, svc.PublishPost,
		scheduler.WithDrainInterval(cfg.DrainInterval),
		scheduler.WithDrainLogger(logger),
	)

	// ── HTTP server ───────────────────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(agent.MaxBodySize(1 << 20)) // 1MB limit
	r.Mount("/", agent.NewServer(runtime, logger).Router())

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── signal handling ───────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	// ── Prometheus metrics ────────────────────────────────────────────────────
	telemetry.StartMetricsServer(runCtx, cfg.MetricsAddr, logger)

	go sched.Run(runCtx)
	go drain.Run(runCtx)

	if cfg.AnalyticsSchedule != "" {
		poller, err := contentscheduler.NewAnalyticsPoller(posts, dispatch, cfg.AnalyticsSchedule, logger)
		if err != nil {
			return fmt.Errorf("analytics poller: %w", err)
		}
		go poller.Run(runCtx)
	}

	go func() {
		logger.Info("content-scheduler HTTP starting", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("shutting down...")
	runCancel()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("HTTP shutdown error", slog.String("error", err.Error()))
	}

	runtime.Wait()
	logger.Info("stopped")
	return nil
}
