// Command worker consumes interaction requests from Kafka and rebuilds the
// interaction pairs of the requested complex structures.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/protwis/signprot/internal/app"
	"github.com/protwis/signprot/internal/application/interaction"
	"github.com/protwis/signprot/internal/config"
	"github.com/protwis/signprot/internal/infrastructure/messaging/kafka"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/internal/interfaces/http/handlers"
)

var version = "dev"

const (
	defaultHealthPort     = 8081
	topicPartitions       = 3
	topicReplication      = 1
	deadLetterRetentionMs = int64(14 * 24 * time.Hour / time.Millisecond)
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: SIGNPROT_* environment)")
	workers := flag.Int("workers", 0, "builder workers per request (default: worker.processes)")
	allowAll := flag.Bool("allow-all", false, "let a request without pdb codes rebuild every complex")
	ensureTopics := flag.Bool("ensure-topics", true, "create the interaction topics when missing")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger, err := app.NewLogger(cfg.Monitoring.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	opts := workerOptions{workers: *workers, allowAll: *allowAll, ensureTopics: *ensureTopics}
	if err := run(cfg, opts, logger.Named("worker")); err != nil {
		logger.Error("Worker failed", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

type workerOptions struct {
	workers      int
	allowAll     bool
	ensureTopics bool
}

func run(cfg *config.Config, opts workerOptions, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := infra.Close(); err != nil {
			logger.Warn("Closing infrastructure failed", logging.Err(err))
		}
	}()

	kcfg := cfg.Messaging.Kafka
	if opts.ensureTopics {
		if err := createTopics(ctx, kcfg, logger); err != nil {
			return err
		}
	}

	builder, err := infra.Builder(ctx, app.BuilderOptions{Workers: opts.workers, PublishEvents: true})
	if err != nil {
		return err
	}
	producer, err := infra.Producer()
	if err != nil {
		return err
	}
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfigFrom(kcfg), logger, infra.Metrics, producer)
	if err != nil {
		return err
	}
	consumer.Subscribe(kcfg.RequestTopic, interaction.RequestHandler(builder, opts.allowAll, logger))

	healthSrv := startHealthServer(cfg, infra, logger)

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	logger.Info("Worker started",
		logging.String("version", version),
		logging.String("topic", kcfg.RequestTopic),
		logging.Int("builder_workers", builder.Workers()))

	<-ctx.Done()
	logger.Info("Received shutdown signal, waiting for the running request")

	shutdown := cfg.Worker.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 30 * time.Second
	}
	done := make(chan error, 1)
	go func() { done <- consumer.Close() }()
	select {
	case err := <-done:
		if err != nil {
			logger.Warn("Consumer close failed", logging.Err(err))
		}
	case <-time.After(shutdown):
		logger.Warn("Shutdown timeout exceeded, abandoning the running request")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Health server shutdown failed", logging.Err(err))
	}
	logger.Info("Worker stopped")
	return nil
}

func createTopics(ctx context.Context, kcfg config.KafkaConfig, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(kcfg.Brokers, logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, []kafka.TopicConfig{
		{Name: kcfg.RequestTopic, NumPartitions: topicPartitions, ReplicationFactor: topicReplication},
		{Name: kcfg.ResultTopic, NumPartitions: topicPartitions, ReplicationFactor: topicReplication},
		{Name: kcfg.DeadLetterTopic, NumPartitions: 1, ReplicationFactor: topicReplication, RetentionMs: deadLetterRetentionMs},
	})
}

// startHealthServer exposes liveness, readiness and metrics on the worker's
// health port.
func startHealthServer(cfg *config.Config, infra *app.Infrastructure, logger logging.Logger) *http.Server {
	port := cfg.Worker.HealthPort
	if port <= 0 {
		port = defaultHealthPort
	}
	health := handlers.NewHealthHandler(version,
		handlers.NamedCheck("postgres", infra.Postgres.HealthCheck),
		handlers.NamedCheck("redis", infra.Redis.Ping),
		handlers.NamedCheck("minio", infra.MinIOHealth),
	)

	r := chi.NewRouter()
	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)
	if infra.Collector != nil {
		r.Handle(cfg.Monitoring.Metrics.Path, infra.Collector.Handler())
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Health server listening", logging.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server failed", logging.Err(err))
		}
	}()
	return srv
}
