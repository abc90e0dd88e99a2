// Command apiserver serves the signature and interaction endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/protwis/signprot/internal/app"
	"github.com/protwis/signprot/internal/config"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	httpserver "github.com/protwis/signprot/internal/interfaces/http"
	"github.com/protwis/signprot/internal/interfaces/http/handlers"
	"github.com/protwis/signprot/internal/interfaces/http/middleware"
)

var version = "dev"

const shutdownGrace = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: SIGNPROT_* environment)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, err := app.NewLogger(cfg.Monitoring.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Error("API server failed", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting signprot API server",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr()))

	infra, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := infra.Close(); err != nil {
			logger.Warn("Closing infrastructure failed", logging.Err(err))
		}
	}()

	if configPath != "" {
		watchConfig(configPath, logger)
	}

	routerCfg := httpserver.RouterConfig{
		SignatureHandler:   handlers.NewSignatureHandler(infra.SignatureService(), logger),
		InteractionHandler: handlers.NewInteractionHandler(infra.InteractionService(), logger),
		HealthHandler: handlers.NewHealthHandler(version,
			handlers.NamedCheck("postgres", infra.Postgres.HealthCheck),
			handlers.NamedCheck("redis", infra.Redis.Ping),
		),
		Session: cfg.Session,
		Logging: middleware.LoggingConfig{
			SkipPaths:     middleware.DefaultLoggingConfig().SkipPaths,
			SlowThreshold: cfg.Server.SlowThreshold,
		},
		Logger:  logger,
		Metrics: infra.Metrics,
	}
	if infra.Collector != nil {
		routerCfg.MetricsHandler = infra.Collector.Handler()
	}
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// watchConfig applies the settings that can change without a restart. Others
// are logged and wait for the next start.
func watchConfig(path string, logger logging.Logger) {
	err := config.Watch(path, func(next *config.Config) {
		if logging.SetLevel(logger, next.Monitoring.Log.Level) {
			logger.Info("Log level changed", logging.String("level", next.Monitoring.Log.Level))
		}
		logger.Info("Configuration file changed; settings other than the log level apply after restart")
	}, func(err error) {
		logger.Warn("Ignoring invalid configuration change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("Configuration watch disabled", logging.Err(err))
	}
}
