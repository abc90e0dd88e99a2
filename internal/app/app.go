// Package app opens the infrastructure shared by the signprot binaries and
// assembles the use-case services on top of it.
package app

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/protwis/signprot/internal/application/interaction"
	"github.com/protwis/signprot/internal/application/signature"
	"github.com/protwis/signprot/internal/config"
	"github.com/protwis/signprot/internal/infrastructure/database/postgres"
	"github.com/protwis/signprot/internal/infrastructure/database/postgres/repositories"
	"github.com/protwis/signprot/internal/infrastructure/database/redis"
	"github.com/protwis/signprot/internal/infrastructure/messaging/kafka"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/prometheus"
	"github.com/protwis/signprot/internal/infrastructure/storage/minio"
	"github.com/protwis/signprot/internal/infrastructure/webapi"
)

// CachePrefix namespaces the shared cache in Redis.
const CachePrefix = "signprot:cache:"

// NewLogger builds the process logger from the monitoring section.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:            cfg.Level,
		Format:           cfg.Format,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	})
}

// NewMetrics registers the application metrics. With metrics disabled the
// collector is nil and the metrics are no-ops.
func NewMetrics(cfg config.MetricsConfig, logger logging.Logger) (prometheus.MetricsCollector, *prometheus.AppMetrics, error) {
	if !cfg.Enabled {
		return nil, prometheus.NewNopAppMetrics(), nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return collector, prometheus.NewAppMetrics(collector), nil
}

// Infrastructure holds the clients of one process. Components beyond the
// catalog and the session store are opened on demand and closed together.
type Infrastructure struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Postgres *postgres.Connection
	Redis    *redis.Client

	pool     *pgxpool.Pool
	minio    *minio.Client
	producer *kafka.Producer
	closers  []func() error
}

// Open connects to the catalog and Redis.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{Config: cfg, Logger: logger}

	collector, metrics, err := NewMetrics(cfg.Monitoring.Metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	infra.Collector, infra.Metrics = collector, metrics

	pg, err := postgres.NewConnection(cfg.Database.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	infra.Postgres = pg
	infra.closers = append(infra.closers, pg.Close)

	rdb, err := redis.NewClient(cfg.Cache.Redis, logger)
	if err != nil {
		_ = infra.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	infra.Redis = rdb
	infra.closers = append(infra.closers, rdb.Close)

	logger.Info("Infrastructure initialized")
	return infra, nil
}

// Close releases every client in reverse opening order.
func (i *Infrastructure) Close() error {
	var errs []error
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return stderrors.Join(errs...)
}

// Cache is the Redis-backed shared cache.
func (i *Infrastructure) Cache() redis.Cache {
	return redis.NewRedisCache(i.Redis, i.Logger, redis.WithPrefix(CachePrefix))
}

// SignatureService assembles the signature use cases.
func (i *Infrastructure) SignatureService() signature.Service {
	sessions := redis.NewSessionStore(i.Redis, i.Logger,
		redis.WithSessionPrefix(i.Config.Session.KeyPrefix),
		redis.WithSessionTTL(i.Config.Session.TTL))
	receptors := repositories.NewPostgresReceptorRepo(i.Postgres, i.Logger)
	return signature.NewService(receptors, sessions, i.Config.Signature, i.Logger, i.Metrics)
}

// InteractionService assembles the interaction read side with a cached
// matrix.
func (i *Infrastructure) InteractionService() interaction.Service {
	repo := repositories.NewPostgresInteractionRepo(i.Postgres, i.Logger)
	return interaction.NewService(repo, i.Logger, interaction.WithCache(i.Cache(), 0))
}

// Producer opens the Kafka producer once.
func (i *Infrastructure) Producer() (*kafka.Producer, error) {
	if i.producer != nil {
		return i.producer, nil
	}
	p, err := kafka.NewProducer(kafka.ProducerConfigFrom(i.Config.Messaging.Kafka), i.Logger, i.Metrics)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	i.producer = p
	i.closers = append(i.closers, p.Close)
	return p, nil
}

// BuilderOptions selects the optional collaborators of a builder.
type BuilderOptions struct {
	// Workers overrides worker.processes when positive.
	Workers int
	// PublishEvents announces every finished structure on the result topic.
	PublishEvents bool
}

// Builder assembles the complex-interaction builder. It opens the pgx pool
// used for COPY, the PDB object store and the remote fetcher.
func (i *Infrastructure) Builder(ctx context.Context, opts BuilderOptions) (*interaction.Builder, error) {
	if i.pool == nil {
		pool, err := postgres.NewPool(ctx, i.Config.Database.Postgres, i.Logger)
		if err != nil {
			return nil, fmt.Errorf("pgx pool: %w", err)
		}
		i.pool = pool
		i.closers = append(i.closers, func() error { pool.Close(); return nil })
	}

	var files interaction.PDBFiles
	if i.Config.Storage.MinIO.Endpoint != "" {
		if i.minio == nil {
			mc, err := minio.NewClient(i.Config.Storage.MinIO, i.Logger)
			if err != nil {
				return nil, fmt.Errorf("minio: %w", err)
			}
			i.minio = mc
		}
		files = minio.NewPDBStore(i.minio, i.Logger)
	}

	fetcher, err := webapi.NewFetcher(i.Config.Fetch, i.Logger, webapi.WithMetrics(i.Metrics))
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}

	workerCfg := i.Config.Worker
	if opts.Workers > 0 {
		workerCfg.Processes = opts.Workers
	}
	builderOpts := []interaction.BuilderOption{
		interaction.WithLocker(StructureLocker(i.Redis, i.Logger)),
		interaction.WithMatrixCache(i.Cache()),
		interaction.WithBuilderMetrics(i.Metrics),
	}
	if opts.PublishEvents {
		p, err := i.Producer()
		if err != nil {
			return nil, err
		}
		builderOpts = append(builderOpts, interaction.WithEvents(p, i.Config.Messaging.Kafka.ResultTopic))
	}

	return interaction.NewBuilder(
		repositories.NewPostgresBuildRepo(i.Postgres, i.Logger),
		repositories.NewInteractionWriter(i.pool, i.Logger),
		files,
		fetcher,
		workerCfg,
		i.Logger,
		builderOpts...,
	), nil
}

// StructureLocker hands out the per-structure build locks. The watchdog
// renews each lease until the build releases it, since a build with slow
// fetches can outlast the lock TTL.
func StructureLocker(client *redis.Client, logger logging.Logger, opts ...redis.LockOption) redis.StructureLocker {
	return redis.NewStructureLocker(client, logger, append([]redis.LockOption{redis.WithWatchdog(true)}, opts...)...)
}

// MinIOHealth reports on the PDB bucket once the builder opened it.
func (i *Infrastructure) MinIOHealth(ctx context.Context) error {
	if i.minio == nil {
		return nil
	}
	return i.minio.HealthCheck(ctx)
}
