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
	redisstore "github.com/MFaiqKhan/SocialSpark/internal/redis"
	mongostore "github.com/MFaiqKhan/SocialSpark/internal/store/mongo"
	"github.com/MFaiqKhan/SocialSpark/pkg/telemetry"
	"github.com/MFaiqKhan/SocialSpark/services/facebook"
	"github.com/MFaiqKhan/SocialSpark/services/facebook/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the facebook posting agent",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	serveCmd.Flags().String("mongo-db", "socialspark", "MongoDB database name")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Redis address (host:port)")
	serveCmd.Flags().String("http-port", "8002", "HTTP server port")
	serveCmd.Flags().String("metrics-addr", ":9092", "Prometheus metrics server address")
	serveCmd.Flags().StringToString("peers", map[string]string{
		"content-scheduler-agent": "http://localhost:8001",
	}, "agent-id=base-url pairs for peer agents")
	serveCmd.Flags().String("graph-base-url", "", "Facebook Graph API base URL (empty uses the production endpoint)")
	serveCmd.Flags().Bool("mock-graph-api", false, "use the in-process Graph API mock instead of the real API")
	serveCmd.Flags().String("analytics-target", "", "agent that receives report_published_post tasks; empty disables")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP HTTP endpoint for tracing (e.g. localhost:4318); empty disables tracing")

	bindFlag("mongo_uri", serveCmd.Flags(), "mongo-uri")
	bindFlag("mongo_db", serveCmd.Flags(), "mongo-db")
	bindFlag("redis_addr", serveCmd.Flags(), "redis-addr")
	bindFlag("http_port", serveCmd.Flags(), "http-port")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("peers", serveCmd.Flags(), "peers")
	bindFlag("graph_base_url", serveCmd.Flags(), "graph-base-url")
	bindFlag("mock_graph_api", serveCmd.Flags(), "mock-graph-api")
	bindFlag("analytics_target", serveCmd.Flags(), "analytics-target")
	bindFlag("otel_endpoint", serveCmd.Flags(), "otel-endpoint")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	logger := buildLogger(cfg.LogLevel, "facebook-agent")

	shutdownTracer, err := telemetry.InitTracer(context.Background(), "facebook-agent", cfg.OTelEndpoint)
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

	tasks := mongostore.NewTaskStore(mongoClient.Database(cfg.MongoDB))

	redisClient := redisstore.NewClient(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()
	cache := redisstore.NewStatusCache(redisClient)

	var graph facebook.GraphClient
	if cfg.MockGraphAPI {
		logger.Warn("using the mock Graph API client, posts will not reach Facebook")
		graph = facebook.MockGraphClient{}
	} else {
		graph = facebook.NewHTTPGraphClient(cfg.GraphBaseURL)
	}

	dispatch := agent.NewClient(facebook.AgentID, cfg.Peers, logger)
	runtime := agent.NewRuntime(facebook.AgentID, facebook.Card(), tasks,
		agent.WithLogger(logger),
		agent.WithStatusCache(cache),
	)
	facebook.New(runtime, graph, dispatch, logger,
		facebook.WithAnalyticsTarget(cfg.AnalyticsTarget),
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

	go func() {
		logger.Info("facebook-agent HTTP starting", slog.String("addr", httpSrv.Addr))
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
