package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the Kafka producer configuration
type Config struct {
	Enabled bool
	Brokers []string

	NotificationsTopic    string
	NotificationsDLQTopic string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	ProducerCompression  string // "none", "gzip", "snappy", "lz4", "zstd"
	ProducerAsync        bool
	PublishTimeout       time.Duration

	EnableMiddleware bool
}

// Load creates a Kafka config from environment variables
func Load() *Config {
	brokersStr := getEnvStr(EnvKafkaBrokers, DefaultKafkaBrokers)
	brokers := strings.Split(brokersStr, ",")
	for i, broker := range brokers {
		brokers[i] = strings.TrimSpace(broker)
	}

	return &Config{
		Enabled: getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		Brokers: brokers,

		NotificationsTopic:    getEnvStr(EnvNotificationsTopic, DefaultNotificationsTopic),
		NotificationsDLQTopic: getEnvStr(EnvNotificationsDLQTopic, DefaultNotificationsDLQTopic),

		ProducerMaxAttempts:  getEnvInt(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: getEnvDuration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
		ProducerRequireAcks:  getEnvInt(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
		ProducerCompression:  getEnvStr(EnvKafkaProducerCompression, DefaultProducerCompression),
		ProducerAsync:        getEnvBool(EnvKafkaProducerAsync, DefaultProducerAsync),
		PublishTimeout:       getEnvDuration(EnvKafkaPublishTimeout, DefaultPublishTimeout),

		EnableMiddleware: getEnvBool(EnvKafkaEnableMiddleware, DefaultEnableMiddleware),
	}
}

// Validate returns every problem found. A disabled config is always valid.
func (cfg *Config) Validate() []string {
	if !cfg.Enabled {
		return nil
	}

	var errors []string

	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}
	for i, broker := range cfg.Brokers {
		if broker == "" {
			errors = append(errors, fmt.Sprintf("Kafka broker %d cannot be empty", i))
		}
	}

	if cfg.NotificationsTopic == "" {
		errors = append(errors, "NotificationsTopic cannot be empty when Kafka is enabled")
	}

	if cfg.ProducerMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", cfg.ProducerMaxAttempts))
	}
	if cfg.ProducerBatchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerBatchTimeout must be positive, got: %s", cfg.ProducerBatchTimeout))
	}
	if cfg.PublishTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("PublishTimeout must be positive, got: %s", cfg.PublishTimeout))
	}

	validCompressions := map[string]bool{
		"none": true, "gzip": true, "snappy": true, "lz4": true, "zstd": true,
	}
	if !validCompressions[cfg.ProducerCompression] {
		errors = append(errors, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.ProducerCompression))
	}

	validAcks := map[int]bool{-1: true, 0: true, 1: true}
	if !validAcks[cfg.ProducerRequireAcks] {
		errors = append(errors, fmt.Sprintf("ProducerRequireAcks must be -1, 0, or 1, got: %d", cfg.ProducerRequireAcks))
	}

	return errors
}

// LogAttrs returns the configuration as logger key/value pairs
func (cfg *Config) LogAttrs() []any {
	return []any{
		"kafka_enabled", cfg.Enabled,
		"kafka_brokers", cfg.Brokers,
		"notifications_topic", cfg.NotificationsTopic,
		"notifications_dlq_topic", cfg.NotificationsDLQTopic,
		"producer_max_attempts", cfg.ProducerMaxAttempts,
		"producer_batch_timeout", cfg.ProducerBatchTimeout,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"producer_async", cfg.ProducerAsync,
	}
}

func getEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
