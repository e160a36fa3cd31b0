package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"gigmarket/pkg/kafka"
)

// Metrics holds producer counters
type Metrics struct {
	published            atomic.Int64
	failed               atomic.Int64
	publishDurationTotal atomic.Int64 // Nanoseconds
}

type MetricsSnapshot struct {
	Published          int64         `json:"published"`
	Failed             int64         `json:"failed"`
	AvgPublishDuration time.Duration `json:"avg_publish_duration"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	published := m.published.Load()
	failed := m.failed.Load()
	var avg time.Duration
	if total := published + failed; total > 0 {
		avg = time.Duration(m.publishDurationTotal.Load() / total)
	}
	return MetricsSnapshot{Published: published, Failed: failed, AvgPublishDuration: avg}
}

// MetricsProducerMiddleware tracks producer metrics into m
func MetricsProducerMiddleware(m *Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		m.publishDurationTotal.Add(int64(time.Since(start)))
		if err != nil {
			m.failed.Add(1)
		} else {
			m.published.Add(1)
		}
		return err
	}
}
