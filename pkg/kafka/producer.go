package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafka_config "gigmarket/pkg/kafka/config"
	"gigmarket/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Writer is the subset of *kafka.Writer the producer needs
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps kafka-go writer with middleware and a dead letter queue
type Producer struct {
	writer     Writer
	dlqWriter  Writer
	topic      string
	dlqTopic   string
	middleware []ProducerMiddleware
	closed     bool
	mu         sync.RWMutex
}

// ProducerMiddleware allows intercepting publish operations
type ProducerMiddleware func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error

// NewProducer creates a new Kafka producer
func NewProducer(cfg *kafka_config.Config, log *logger.Logger, topic string, dlqTopic string) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	compression := compressionFor(cfg.ProducerCompression)
	errorLogger := kafka.LoggerFunc(func(msg string, args ...any) {
		log.Error("Kafka writer error", "detail", fmt.Sprintf(msg, args...))
	})

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Hash by key for ordering
		RequiredAcks: requiredAcksFor(cfg.ProducerRequireAcks),
		Compression:  compression,
		MaxAttempts:  cfg.ProducerMaxAttempts,
		BatchTimeout: cfg.ProducerBatchTimeout,
		Async:        cfg.ProducerAsync,
		Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger:  errorLogger,
	}

	var dlqWriter Writer
	if dlqTopic != "" {
		dlqWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        dlqTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  compression,
			MaxAttempts:  3,
			Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
			ErrorLogger:  errorLogger,
		}
	}

	return NewProducerWithWriters(writer, dlqWriter, topic, dlqTopic), nil
}

// NewProducerWithWriters builds a producer over already constructed writers.
// dlqWriter may be nil.
func NewProducerWithWriters(writer, dlqWriter Writer, topic, dlqTopic string) *Producer {
	return &Producer{
		writer:     writer,
		dlqWriter:  dlqWriter,
		topic:      topic,
		dlqTopic:   dlqTopic,
		middleware: make([]ProducerMiddleware, 0),
	}
}

func compressionFor(name string) compress.Compression {
	switch name {
	case "none":
		return 0
	case "gzip":
		return compress.Gzip
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	default:
		return compress.Snappy
	}
}

func requiredAcksFor(acks int) kafka.RequiredAcks {
	switch acks {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

// Use adds middleware to the producer
func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

// Topic returns the topic the producer writes to
func (p *Producer) Topic() string {
	return p.topic
}

// Publish publishes a message to Kafka
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrProducerClosed
	}
	middleware := p.middleware
	p.mu.RUnlock()

	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}
	if msg.Topic == "" {
		msg.Topic = p.topic
	}

	handler := p.publishInternal
	for i := len(middleware) - 1; i >= 0; i-- {
		mw := middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}

	return handler(ctx, msg)
}

func (p *Producer) publishInternal(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, toKafkaMessage(msg, msg.Timestamp))
	if err != nil {
		if p.dlqWriter != nil {
			if dlqErr := p.sendToDLQ(ctx, msg, err); dlqErr != nil {
				return fmt.Errorf("failed to send to DLQ: %v (original error: %w)", dlqErr, err)
			}
		}
		return err
	}
	return nil
}

// sendToDLQ sends a failed message to the dead letter queue
func (p *Producer) sendToDLQ(ctx context.Context, msg Message, originalErr error) error {
	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	now := time.Now()
	headers[HeaderOriginalTopic] = p.topic
	headers[HeaderDLQError] = originalErr.Error()
	headers[HeaderDLQTimestamp] = now.Format(time.RFC3339)
	msg.Headers = headers

	return p.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg, now))
}

func toKafkaMessage(msg Message, at time.Time) kafka.Message {
	kafkaMsg := kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Value,
		Time:  at,
	}
	for k, v := range msg.Headers {
		kafkaMsg.Headers = append(kafkaMsg.Headers, kafka.Header{
			Key:   k,
			Value: []byte(v),
		})
	}
	return kafkaMsg
}

// Close closes the producer and releases resources
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	if p.writer != nil {
		err = p.writer.Close()
	}
	if p.dlqWriter != nil {
		if dlqErr := p.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}
