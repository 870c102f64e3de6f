// Package config loads server configuration from BENEFIND_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "BENEFIND_"

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"benefind"`
	JWTAudience     string        `env:"JWT_AUDIENCE" envDefault:"benefind-api"`

	// Empty paths use the definitions embedded in the binary.
	CatalogPath string `env:"CATALOG_PATH"`
	ContentDir  string `env:"CONTENT_DIR"`

	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Postgres PostgresConfig `envPrefix:"POSTGRES_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
	OTel     OTelConfig     `envPrefix:"OTEL_"`
}

// RedisConfig configures the latest-screening cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
	LatestTTL    time.Duration `env:"LATEST_TTL" envDefault:"24h"`
	HashKey      string        `env:"HASH_KEY"`

	// Consecutive failures before the cache is bypassed, and how long to wait
	// before probing it again.
	BreakerFailures int           `env:"BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown time.Duration `env:"BREAKER_COOLDOWN" envDefault:"10s"`
}

// PostgresConfig configures screening persistence. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN             string        `env:"DSN"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	ApplySchema     bool          `env:"APPLY_SCHEMA" envDefault:"true"`
}

// KafkaConfig configures completed-screening events. No brokers disables
// publishing.
type KafkaConfig struct {
	Brokers           []string `env:"BROKERS" envSeparator:","`
	Topic             string   `env:"TOPIC" envDefault:"screenings.completed"`
	ClientID          string   `env:"CLIENT_ID" envDefault:"benefind"`
	Partitions        int32    `env:"PARTITIONS" envDefault:"3"`
	ReplicationFactor int16    `env:"REPLICATION_FACTOR" envDefault:"1"`
	EnsureTopic       bool     `env:"ENSURE_TOPIC" envDefault:"true"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// OTelConfig configures trace export. An empty endpoint keeps the no-op
// tracer provider.
type OTelConfig struct {
	Endpoint    string `env:"ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"benefind"`
}

// FromEnv parses BENEFIND_* variables into a Server config.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (s Server) Validate() error {
	var errs []error
	if s.Kafka.Enabled() && s.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka topic is required when brokers are set"))
	}
	if s.Kafka.Partitions < 1 {
		errs = append(errs, errors.New("kafka partitions must be at least 1"))
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
