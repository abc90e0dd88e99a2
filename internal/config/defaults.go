package config

import "time"

const (
	DefaultServerHost            = "0.0.0.0"
	DefaultServerPort            = 8080
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerMaxBodySize     = 4 << 20
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultServerSlowThreshold   = 2 * time.Second

	DefaultDBHost             = "localhost"
	DefaultDBPort             = 5432
	DefaultDBUser             = "protwis"
	DefaultDBName             = "protwis"
	DefaultDBSSLMode          = "disable"
	DefaultDBMaxOpenConns     = 20
	DefaultDBMaxIdleConns     = 5
	DefaultDBConnMaxLifetime  = 30 * time.Minute
	DefaultDBConnMaxIdleTime  = 5 * time.Minute
	DefaultDBStatementTimeout = 60 * time.Second

	DefaultRedisMode         = "standalone"
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPoolSize     = 20
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisMaxRetries   = 3

	DefaultSessionCookieName = "signprot_session"
	DefaultSessionKeyPrefix  = "signprot:session:"
	DefaultSessionTTL        = 24 * time.Hour

	DefaultKafkaBroker          = "localhost:9092"
	DefaultKafkaConsumerGroup   = "signprot-worker"
	DefaultKafkaRequestTopic    = "interactions.requested"
	DefaultKafkaResultTopic     = "interactions.computed"
	DefaultKafkaDeadLetterTopic = "interactions.dlq"
	DefaultKafkaBatchSize       = 100
	DefaultKafkaBatchTimeout    = time.Second
	DefaultKafkaMaxRetries      = 3

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "pdb-structures"

	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsNamespace = "signprot"
	DefaultMetricsPath      = "/metrics"

	DefaultNumberingScheme = "gpcrdba"
	DefaultFeatureScheme   = "default"
	DefaultMatchMode       = "differential"
	DefaultMaxReceptors    = 5000

	DefaultWorkerProcesses       = 4
	DefaultWorkerContactCutoff   = 4.5
	DefaultWorkerHealthPort      = 8081
	DefaultWorkerShutdownTimeout = 30 * time.Second

	DefaultFetchBaseURL     = "https://files.rcsb.org/download"
	DefaultFetchMaxAttempts = 5
	DefaultFetchDelay       = 2 * time.Second
	DefaultFetchTimeout     = 60 * time.Second
)

// ApplyDefaults fills every zero-value field in cfg. Explicit values win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	s := &cfg.Server
	setString(&s.Host, DefaultServerHost)
	setInt(&s.Port, DefaultServerPort)
	setDuration(&s.ReadTimeout, DefaultServerReadTimeout)
	setDuration(&s.WriteTimeout, DefaultServerWriteTimeout)
	if s.MaxBodySize == 0 {
		s.MaxBodySize = DefaultServerMaxBodySize
	}
	setDuration(&s.ShutdownTimeout, DefaultServerShutdownTimeout)
	setDuration(&s.SlowThreshold, DefaultServerSlowThreshold)

	pg := &cfg.Database.Postgres
	setString(&pg.Host, DefaultDBHost)
	setInt(&pg.Port, DefaultDBPort)
	setString(&pg.User, DefaultDBUser)
	setString(&pg.DBName, DefaultDBName)
	setString(&pg.SSLMode, DefaultDBSSLMode)
	setInt(&pg.MaxOpenConns, DefaultDBMaxOpenConns)
	setInt(&pg.MaxIdleConns, DefaultDBMaxIdleConns)
	setDuration(&pg.ConnMaxLifetime, DefaultDBConnMaxLifetime)
	setDuration(&pg.ConnMaxIdleTime, DefaultDBConnMaxIdleTime)
	setDuration(&pg.StatementTimeout, DefaultDBStatementTimeout)

	r := &cfg.Cache.Redis
	setString(&r.Mode, DefaultRedisMode)
	setString(&r.Addr, DefaultRedisAddr)
	setInt(&r.PoolSize, DefaultRedisPoolSize)
	setDuration(&r.DialTimeout, DefaultRedisDialTimeout)
	setDuration(&r.ReadTimeout, DefaultRedisReadTimeout)
	setDuration(&r.WriteTimeout, DefaultRedisWriteTimeout)
	setInt(&r.MaxRetries, DefaultRedisMaxRetries)

	ss := &cfg.Session
	setString(&ss.CookieName, DefaultSessionCookieName)
	setString(&ss.KeyPrefix, DefaultSessionKeyPrefix)
	setDuration(&ss.TTL, DefaultSessionTTL)

	k := &cfg.Messaging.Kafka
	if len(k.Brokers) == 0 {
		k.Brokers = []string{DefaultKafkaBroker}
	}
	setString(&k.ConsumerGroup, DefaultKafkaConsumerGroup)
	setString(&k.RequestTopic, DefaultKafkaRequestTopic)
	setString(&k.ResultTopic, DefaultKafkaResultTopic)
	setString(&k.DeadLetterTopic, DefaultKafkaDeadLetterTopic)
	setInt(&k.BatchSize, DefaultKafkaBatchSize)
	setDuration(&k.BatchTimeout, DefaultKafkaBatchTimeout)
	setInt(&k.MaxRetries, DefaultKafkaMaxRetries)

	m := &cfg.Storage.MinIO
	setString(&m.Endpoint, DefaultMinIOEndpoint)
	setString(&m.Bucket, DefaultMinIOBucket)

	l := &cfg.Monitoring.Log
	setString(&l.Level, DefaultLogLevel)
	setString(&l.Format, DefaultLogFormat)
	if len(l.OutputPaths) == 0 {
		l.OutputPaths = []string{"stdout"}
	}
	if len(l.ErrorOutputPaths) == 0 {
		l.ErrorOutputPaths = []string{"stderr"}
	}
	setString(&cfg.Monitoring.Metrics.Namespace, DefaultMetricsNamespace)
	setString(&cfg.Monitoring.Metrics.Path, DefaultMetricsPath)

	sig := &cfg.Signature
	setString(&sig.NumberingScheme, DefaultNumberingScheme)
	setString(&sig.FeatureScheme, DefaultFeatureScheme)
	setString(&sig.DefaultMode, DefaultMatchMode)
	setInt(&sig.MaxReceptors, DefaultMaxReceptors)

	w := &cfg.Worker
	setInt(&w.Processes, DefaultWorkerProcesses)
	if w.ContactCutoff == 0 {
		w.ContactCutoff = DefaultWorkerContactCutoff
	}
	setInt(&w.HealthPort, DefaultWorkerHealthPort)
	setDuration(&w.ShutdownTimeout, DefaultWorkerShutdownTimeout)

	f := &cfg.Fetch
	setString(&f.BaseURL, DefaultFetchBaseURL)
	setInt(&f.MaxAttempts, DefaultFetchMaxAttempts)
	setDuration(&f.Delay, DefaultFetchDelay)
	setDuration(&f.Timeout, DefaultFetchTimeout)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}
