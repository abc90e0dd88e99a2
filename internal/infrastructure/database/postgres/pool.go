package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/protwis/signprot/internal/config"
	"github.com/protwis/signprot/internal/infrastructure/monitoring/logging"
	"github.com/protwis/signprot/pkg/errors"
)

// NewPool opens a pgx pool on the catalog. The interaction writer uses it for
// COPY, which database/sql cannot express.
func NewPool(ctx context.Context, cfg config.PostgresConfig, log logging.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "invalid pgx pool configuration")
	}
	configurePool(poolCfg, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create pgx pool")
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}
	log.Info("Opened pgx pool",
		logging.String("host", cfg.Host),
		logging.Int("max_conns", int(poolCfg.MaxConns)),
	)
	return pool, nil
}

// buildConnString is the DSN without the statement timeout, which pgx
// would forward as a runtime parameter.
func buildConnString(cfg config.PostgresConfig) string {
	u := baseURL(cfg)
	return u.String()
}

func configurePool(poolCfg *pgxpool.Config, cfg config.PostgresConfig) {
	poolCfg.MaxConns = int32(orInt(cfg.MaxOpenConns, defaultMaxOpenConns))
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	poolCfg.MaxConnLifetime = orDuration(cfg.ConnMaxLifetime, time.Hour)
	poolCfg.MaxConnIdleTime = orDuration(cfg.ConnMaxIdleTime, 30*time.Minute)
}
