package app

import (
	"gigmarket/pkg/cache"
	"gigmarket/pkg/config"
	"gigmarket/pkg/kafka"
	kafka_middleware "gigmarket/pkg/kafka/middleware"
	"gigmarket/pkg/model"
	"gigmarket/pkg/notify"
)

const performerCachePrefix = "performer:"

// NewNotifier returns the Kafka dispatcher when Kafka is enabled, otherwise
// a no-op. The returned close func waits for in-flight notifications and
// flushes the producer.
func NewNotifier(cfg *config.Config, opts ...notify.Option) (notify.Dispatcher, func()) {
	if cfg.Kafka == nil || !cfg.Kafka.Enabled {
		cfg.Log.Info("Kafka disabled, notifications are dropped")
		return notify.Nop{}, func() {}
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Log, cfg.Kafka.NotificationsTopic, cfg.Kafka.NotificationsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	metrics := kafka_middleware.NewMetrics()
	producer.Use(kafka_middleware.MetricsProducerMiddleware(metrics))
	if cfg.Kafka.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Kafka notifications enabled",
		"topic", cfg.Kafka.NotificationsTopic,
		"dlq_topic", cfg.Kafka.NotificationsDLQTopic,
	)
	dispatcher := notify.NewKafkaDispatcher(producer, cfg.Log, cfg.ServiceName, cfg.Kafka.PublishTimeout, opts...)
	return dispatcher, func() {
		if !dispatcher.Drain(cfg.Kafka.PublishTimeout) {
			cfg.Log.Warn("Closing Kafka producer with notifications still in flight")
		}
		snap := metrics.Snapshot()
		cfg.Log.Info("Notification producer stats",
			"published", snap.Published,
			"failed", snap.Failed,
			"avg_publish_duration", snap.AvgPublishDuration,
		)
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}

// PerformerCache is Redis-backed when Redis is connected and request-scoped
// otherwise.
func PerformerCache(cfg *config.Config) cache.Cache[*model.Performer] {
	if cfg.Client.Redis != nil {
		return cache.NewRedis[*model.Performer](cfg.Client.Redis, performerCachePrefix, cfg.PerformerCacheTTL, cfg.Log)
	}
	return cache.NewScoped[*model.Performer](performerCachePrefix)
}
