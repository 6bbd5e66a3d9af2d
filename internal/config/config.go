// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server (WebSocket, health, stats, ingest) listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// WSPath is the well-known WebSocket endpoint path.
	WSPath string `mapstructure:"WS_PATH"`
	// GRPCAddr is the address of the gRPC health server. Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DBMaxOpenConns bounds the database/sql pool shared by all connections.
	DBMaxOpenConns int `mapstructure:"DB_MAX_OPEN_CONNS"`

	// PersistTimeout bounds the persistence of a single frame (e.g. "5s").
	PersistTimeout string `mapstructure:"PERSIST_TIMEOUT"`
	// WSQueueSize is the depth of the per-connection inbound FIFO.
	WSQueueSize int `mapstructure:"WS_QUEUE_SIZE"`
	// WSSendBuffer is the depth of the per-connection outbound buffer.
	WSSendBuffer int `mapstructure:"WS_SEND_BUFFER"`
	// WSMaxMessageBytes is the read limit for a single inbound frame.
	WSMaxMessageBytes int64 `mapstructure:"WS_MAX_MESSAGE_BYTES"`
	// WSPingInterval enables transport-level ping/pong keepalive when > 0. "0" disables it.
	WSPingInterval string `mapstructure:"WS_PING_INTERVAL"`
	// HeartbeatInterval is the interval clients are expected to send heartbeat frames on. Advisory only.
	HeartbeatInterval string `mapstructure:"HEARTBEAT_INTERVAL"`

	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Env is the application environment (e.g. "development", "production"). Production switches logs to JSON.
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty installs no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Telemetry mirror (optional). When Kafka brokers are set, persisted events are mirrored to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for mirrored events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("WS_PATH", "/ws")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("PERSIST_TIMEOUT", "5s")
	v.SetDefault("WS_QUEUE_SIZE", 64)
	v.SetDefault("WS_SEND_BUFFER", 16)
	v.SetDefault("WS_MAX_MESSAGE_BYTES", 8192)
	v.SetDefault("WS_PING_INTERVAL", "0")
	v.SetDefault("HEARTBEAT_INTERVAL", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "proctor-telemetry")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "proctor-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if !strings.HasPrefix(cfg.WSPath, "/") {
		return nil, fmt.Errorf("config: WS_PATH must start with '/', got %q", cfg.WSPath)
	}
	for key, val := range map[string]string{
		"PERSIST_TIMEOUT":    cfg.PersistTimeout,
		"WS_PING_INTERVAL":   cfg.WSPingInterval,
		"HEARTBEAT_INTERVAL": cfg.HeartbeatInterval,
	} {
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", key, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("config: %s must not be negative", key)
		}
	}
	if cfg.WSQueueSize <= 0 {
		cfg.WSQueueSize = 64
	}
	if cfg.WSSendBuffer <= 0 {
		cfg.WSSendBuffer = 16
	}
	if cfg.WSMaxMessageBytes <= 0 {
		cfg.WSMaxMessageBytes = 8192
	}
	if cfg.DBMaxOpenConns <= 0 {
		cfg.DBMaxOpenConns = 20
	}

	return &cfg, nil
}

// PersistTimeoutDuration parses PersistTimeout. Returns 5s if unset, invalid or zero.
func (c *Config) PersistTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.PersistTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// PingInterval parses WSPingInterval. Zero means transport keepalive is disabled.
func (c *Config) PingInterval() time.Duration {
	d, err := time.ParseDuration(c.WSPingInterval)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// HeartbeatEvery parses HeartbeatInterval. Returns 30s if unset or invalid.
func (c *Config) HeartbeatEvery() time.Duration {
	d, err := time.ParseDuration(c.HeartbeatInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the Kafka mirror is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
