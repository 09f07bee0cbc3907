package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRegistryShards  = 16
	DefaultSendQueueSize   = 64
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultStoreQueueSize  = 1024
	DefaultPresenceTTL     = 10 * time.Minute
	DefaultKafkaQueueSize  = 1024
	DefaultKafkaWorkers    = 2
	DefaultKafkaMaxRetry   = 3
	DefaultKafkaBackoff    = 200 * time.Millisecond
	DefaultKafkaMaxBackoff = 5 * time.Second
	DefaultLogLevel        = "info"
)

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Hub defaults
	if c.Hub.RegistryShards == 0 {
		c.Hub.RegistryShards = DefaultRegistryShards
	}
	if c.Hub.SendQueueSize == 0 {
		c.Hub.SendQueueSize = DefaultSendQueueSize
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}
	if c.Database.QueueSize == 0 {
		c.Database.QueueSize = DefaultStoreQueueSize
	}

	// Redis defaults
	if c.Redis.PresenceTTL == 0 {
		c.Redis.PresenceTTL = DefaultPresenceTTL
	}

	// Kafka defaults
	if c.Kafka.QueueSize == 0 {
		c.Kafka.QueueSize = DefaultKafkaQueueSize
	}
	if c.Kafka.Workers == 0 {
		c.Kafka.Workers = DefaultKafkaWorkers
	}
	if c.Kafka.MaxRetry == 0 {
		c.Kafka.MaxRetry = DefaultKafkaMaxRetry
	}
	if c.Kafka.BaseBackoff == 0 {
		c.Kafka.BaseBackoff = DefaultKafkaBackoff
	}
	if c.Kafka.MaxBackoff == 0 {
		c.Kafka.MaxBackoff = DefaultKafkaMaxBackoff
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}
