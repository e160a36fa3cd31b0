package kafka_config

const (
	EnvKafkaEnabled = "KAFKA_ENABLED"
	EnvKafkaBrokers = "KAFKA_BROKERS"

	EnvNotificationsTopic    = "NOTIFICATIONS_TOPIC"
	EnvNotificationsDLQTopic = "NOTIFICATIONS_DLQ_TOPIC"

	// Producer configuration
	EnvKafkaProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvKafkaProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvKafkaProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvKafkaProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvKafkaProducerAsync        = "KAFKA_PRODUCER_ASYNC"
	EnvKafkaPublishTimeout       = "KAFKA_PUBLISH_TIMEOUT"

	EnvKafkaEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"
)
