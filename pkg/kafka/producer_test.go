package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func buildMessage(t *testing.T) Message {
	t.Helper()
	msg, err := NewMessage().
		WithKey("booking-1").
		WithEventType("booking.confirmed").
		WithValue(map[string]string{"booking_id": "booking-1"}).
		Build()
	require.NoError(t, err)
	return msg
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriters(w, nil, "notifications", "")

	require.NoError(t, p.Publish(context.Background(), buildMessage(t)))
	require.Len(t, w.messages, 1)
	assert.Equal(t, "booking-1", string(w.messages[0].Key))
	assert.Equal(t, "booking.confirmed", header(w.messages[0], HeaderEventType))
	assert.NotEmpty(t, header(w.messages[0], HeaderEventID))
}

func TestProducer_PublishRejectsInvalid(t *testing.T) {
	p := NewProducerWithWriters(&fakeWriter{}, nil, "notifications", "")

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), buildMessage(t)), ErrProducerClosed)
}

func TestProducer_FailedPublishGoesToDLQ(t *testing.T) {
	writeErr := errors.New("connection refused")
	w := &fakeWriter{err: writeErr}
	dlq := &fakeWriter{}
	p := NewProducerWithWriters(w, dlq, "notifications", "notifications.dlq")

	err := p.Publish(context.Background(), buildMessage(t))
	assert.ErrorIs(t, err, writeErr)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "notifications", header(dlq.messages[0], HeaderOriginalTopic))
	assert.Equal(t, "connection refused", header(dlq.messages[0], HeaderDLQError))
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	p := NewProducerWithWriters(&fakeWriter{}, nil, "notifications", "")
	var calls []string
	for _, name := range []string{"first", "second"} {
		name := name
		p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
			calls = append(calls, name)
			return next(ctx, msg)
		})
	}

	require.NoError(t, p.Publish(context.Background(), buildMessage(t)))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestMessageBuilder_EncodingError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("dial tcp: i/o timeout")))
	assert.True(t, IsTransient(errors.New("Connection Refused")))
	assert.False(t, IsTransient(errors.New("unknown topic")))
	assert.False(t, IsTransient(ErrProducerClosed))
	assert.False(t, IsTransient(nil))
}
