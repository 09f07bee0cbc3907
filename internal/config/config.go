package config

import "time"

// Config is the root configuration for a collaboration hub instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Hub      HubConfig      `yaml:"hub"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InstanceConfig identifies this hub instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds HTTP/WebSocket server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // empty = allow all (auth is upstream)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HubConfig holds registry and per-connection settings.
type HubConfig struct {
	RegistryShards int           `yaml:"registry_shards"`
	SendQueueSize  int           `yaml:"send_queue_size"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"` // 0 disables the idle read deadline
}

// DatabaseConfig holds the optional Postgres annotation store.
type DatabaseConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Name      string `yaml:"name"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	SSLMode   string `yaml:"ssl_mode"`
	MaxConns  int    `yaml:"max_conns"`
	MinConns  int    `yaml:"min_conns"`
	QueueSize int    `yaml:"queue_size"` // pending annotation writes before drop
}

// RedisConfig holds the optional presence mirror.
type RedisConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PresenceTTL time.Duration `yaml:"presence_ttl"`
}

// KafkaConfig holds the optional annotation event publisher.
type KafkaConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Brokers     []string      `yaml:"brokers"`
	Topic       string        `yaml:"topic"`
	QueueSize   int           `yaml:"queue_size"`
	Workers     int           `yaml:"workers"`
	MaxRetry    int           `yaml:"max_retry"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
