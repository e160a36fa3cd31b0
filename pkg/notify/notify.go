// Package notify dispatches domain notifications. Dispatch never fails the
// calling operation; delivery problems are logged.
package notify

import (
	"context"
	"sync"
	"time"

	"gigmarket/pkg/kafka"
	"gigmarket/pkg/logger"
)

type Type string

const (
	BookingConfirmed Type = "booking.confirmed"
	BookingCompleted Type = "booking.completed"
	BookingCancelled Type = "booking.cancelled"
	BookingRefunded  Type = "booking.refunded"
	BookingDisputed  Type = "booking.disputed"
	PayoutReleased   Type = "escrow.payout_released"
	BidSubmitted     Type = "market.bid_submitted"
	BidAccepted      Type = "market.bid_accepted"
	BidRejected      Type = "market.bid_rejected"
	EventExpired     Type = "market.event_expired"
	EventCancelled   Type = "market.event_cancelled"
)

const schemaVersion = "1"

type Notification struct {
	Type        Type           `json:"type"`
	BookingID   string         `json:"booking_id,omitempty"`
	EventID     string         `json:"event_id,omitempty"`
	BidID       string         `json:"bid_id,omitempty"`
	PerformerID string         `json:"performer_id,omitempty"`
	CustomerID  string         `json:"customer_id,omitempty"`
	Amount      float64        `json:"amount,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Data        map[string]any `json:"data,omitempty"`
}

// Key is the partition key. Notifications about the same booking or event
// stay ordered.
func (n Notification) Key() string {
	switch {
	case n.BookingID != "":
		return n.BookingID
	case n.EventID != "":
		return n.EventID
	default:
		return n.BidID
	}
}

type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification)
}

type Nop struct{}

func (Nop) Dispatch(context.Context, Notification) {}

// Publisher is satisfied by *kafka.Producer
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaDispatcher struct {
	publisher Publisher
	log       *logger.Logger
	source    string
	timeout   time.Duration
	sync      bool
	inflight  sync.WaitGroup
}

type Option func(*KafkaDispatcher)

// Synchronous publishes on the caller's goroutine. Used by batch jobs that
// exit right after dispatching.
func Synchronous() Option {
	return func(d *KafkaDispatcher) { d.sync = true }
}

func NewKafkaDispatcher(publisher Publisher, log *logger.Logger, source string, timeout time.Duration, opts ...Option) *KafkaDispatcher {
	d := &KafkaDispatcher{
		publisher: publisher,
		log:       log,
		source:    source,
		timeout:   timeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, n Notification) {
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}

	msg, err := kafka.NewMessage().
		WithKey(n.Key()).
		WithEventType(string(n.Type)).
		WithSource(d.source).
		WithSchemaVersion(schemaVersion).
		WithCorrelationID(correlationID(ctx)).
		WithTimestamp(n.OccurredAt).
		WithValue(n).
		Build()
	if err != nil {
		d.log.Error("Failed to encode notification", "type", n.Type, "key", n.Key(), "error", err)
		return
	}

	publish := func() {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.publisher.Publish(pctx, msg); err != nil {
			d.log.Warn("Notification not delivered",
				"type", n.Type,
				"key", n.Key(),
				"event_id", msg.GetEventID(),
				"error", err,
			)
		}
	}

	if d.sync {
		publish()
		return
	}
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		publish()
	}()
}

// Drain waits up to timeout for asynchronous publishes to finish. It reports
// false when some were still in flight. Call it before closing the publisher.
func (d *KafkaDispatcher) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

type correlationKey struct{}

// WithCorrelationID tags notifications dispatched under ctx
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
