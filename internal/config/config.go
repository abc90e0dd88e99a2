// Package config defines the configuration structures of the signprot service.
// Loading lives in loader.go, defaults in defaults.go; this file only holds
// plain data types and validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

// PostgresConfig holds the catalog database connection parameters.
type PostgresConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig holds the session store connection parameters.
type RedisConfig struct {
	Mode         string        `mapstructure:"mode"` // standalone | sentinel | cluster
	Addr         string        `mapstructure:"addr"`
	Addrs        []string      `mapstructure:"addrs"`
	MasterName   string        `mapstructure:"master_name"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// SessionConfig controls the per-user session that carries the signature
// bundle between the compute and match requests.
type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	TTL        time.Duration `mapstructure:"ttl"`
	Secure     bool          `mapstructure:"secure"`
}

// KafkaConfig holds broker and topic settings for interaction jobs.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	ConsumerGroup   string        `mapstructure:"consumer_group"`
	RequestTopic    string        `mapstructure:"request_topic"`
	ResultTopic     string        `mapstructure:"result_topic"`
	DeadLetterTopic string        `mapstructure:"dead_letter_topic"`
	BatchSize       int           `mapstructure:"batch_size"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

type MessagingConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// MinIOConfig holds object storage settings for PDB files.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
}

type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

type LogConfig struct {
	Level            string   `mapstructure:"level"`
	Format           string   `mapstructure:"format"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

type MonitoringConfig struct {
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SignatureConfig holds the engine defaults.
type SignatureConfig struct {
	NumberingScheme string  `mapstructure:"numbering_scheme"`
	FeatureScheme   string  `mapstructure:"feature_scheme"`
	DefaultCutoff   float64 `mapstructure:"default_cutoff"`
	DefaultMode     string  `mapstructure:"default_mode"`
	MaxReceptors    int     `mapstructure:"max_receptors"`
}

// WorkerConfig controls the complex-interaction batch builder.
type WorkerConfig struct {
	Processes       int           `mapstructure:"processes"`
	ContactCutoff   float64       `mapstructure:"contact_cutoff"`
	HealthPort      int           `mapstructure:"health_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// FetchConfig controls retrieval of structures from the remote archive.
type FetchConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Config is the root configuration object.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Session    SessionConfig    `mapstructure:"session"`
	Messaging  MessagingConfig  `mapstructure:"messaging"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Signature  SignatureConfig  `mapstructure:"signature"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validRedisModes = map[string]bool{"standalone": true, "sentinel": true, "cluster": true}
	validMatchModes = map[string]bool{"differential": true, "onesided": true}
)

// Validate checks cross-field constraints. It assumes ApplyDefaults ran.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("config: database.postgres.host is required")
	}
	if c.Database.Postgres.DBName == "" {
		return fmt.Errorf("config: database.postgres.db_name is required")
	}
	if !validRedisModes[c.Cache.Redis.Mode] {
		return fmt.Errorf("config: cache.redis.mode %q is not one of standalone, sentinel, cluster", c.Cache.Redis.Mode)
	}
	if c.Cache.Redis.Mode == "sentinel" && c.Cache.Redis.MasterName == "" {
		return fmt.Errorf("config: cache.redis.master_name is required in sentinel mode")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("config: session.ttl must be positive")
	}
	if !validLogLevels[strings.ToLower(c.Monitoring.Log.Level)] {
		return fmt.Errorf("config: monitoring.log.level %q is invalid", c.Monitoring.Log.Level)
	}
	if c.Signature.DefaultCutoff < 0 || c.Signature.DefaultCutoff > 1 {
		return fmt.Errorf("config: signature.default_cutoff %v must be within [0,1]", c.Signature.DefaultCutoff)
	}
	if !validMatchModes[c.Signature.DefaultMode] {
		return fmt.Errorf("config: signature.default_mode %q is not differential or onesided", c.Signature.DefaultMode)
	}
	if c.Worker.Processes < 1 {
		return fmt.Errorf("config: worker.processes must be at least 1")
	}
	if c.Worker.ContactCutoff <= 0 {
		return fmt.Errorf("config: worker.contact_cutoff must be positive")
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("config: fetch.max_attempts must be at least 1")
	}
	if len(c.Messaging.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: messaging.kafka.brokers must not be empty")
	}
	if c.Storage.MinIO.Bucket == "" {
		return fmt.Errorf("config: storage.minio.bucket is required")
	}
	return nil
}

// Addr returns host:port of the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
