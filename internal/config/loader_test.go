package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 8090
database:
  postgres:
    host: "db.internal"
    db_name: "gpcrdb"
    user: "reader"
cache:
  redis:
    addr: "redis:6379"
session:
  ttl: 2h
messaging:
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
storage:
  minio:
    endpoint: "minio:9000"
    bucket: "pdb"
signature:
  default_cutoff: 0.3
  default_mode: onesided
worker:
  processes: 8
fetch:
  delay: 500ms
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, "gpcrdb", cfg.Database.Postgres.DBName)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Messaging.Kafka.Brokers)
	assert.Equal(t, 0.3, cfg.Signature.DefaultCutoff)
	assert.Equal(t, "onesided", cfg.Signature.DefaultMode)
	assert.Equal(t, 8, cfg.Worker.Processes)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.Delay)
	assert.Equal(t, DefaultFetchMaxAttempts, cfg.Fetch.MaxAttempts)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValue(t *testing.T) {
	_, err := Load(writeConfig(t, "signature:\n  default_cutoff: 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_cutoff")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SIGNPROT_SERVER_PORT", "9191")
	t.Setenv("SIGNPROT_WORKER_PROCESSES", "3")

	cfg, err := Load(writeConfig(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Worker.Processes)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SIGNPROT_DATABASE_POSTGRES_HOST", "pg.example")
	t.Setenv("SIGNPROT_FETCH_MAX_ATTEMPTS", "7")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "pg.example", cfg.Database.Postgres.Host)
	assert.Equal(t, 7, cfg.Fetch.MaxAttempts)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestLoadOrEnv(t *testing.T) {
	cfg, err := LoadOrEnv("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)

	cfg, err = LoadOrEnv(writeConfig(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, validConfigYAML)
	changed := make(chan *Config, 16)
	require.NoError(t, Watch(path, func(c *Config) { changed <- c }, nil))

	updated := validConfigYAML + "monitoring:\n  log:\n    level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	// A rewrite can surface as several events; wait for the final content.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Monitoring.Log.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}
