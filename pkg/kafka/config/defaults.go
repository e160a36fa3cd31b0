package kafka_config

import "time"

const (
	DefaultKafkaEnabled = false
	DefaultKafkaBrokers = "localhost:9092"

	DefaultNotificationsTopic    = "gigmarket.notifications"
	DefaultNotificationsDLQTopic = "gigmarket.notifications.dlq"

	// Producer defaults
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false
	DefaultPublishTimeout       = 5 * time.Second

	DefaultEnableMiddleware = true
)
