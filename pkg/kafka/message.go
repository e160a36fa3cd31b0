package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message represents a Kafka message with metadata
type Message struct {
	Key       string            // Partition key (booking or event id)
	Value     []byte            // Message payload (JSON-encoded)
	Headers   map[string]string // Message headers
	Topic     string            // Topic name
	Timestamp time.Time         // Message timestamp
}

const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderCorrelationID = "correlation-id"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
	HeaderTimestamp     = "timestamp"
	HeaderOriginalTopic = "original-topic"
	HeaderDLQError      = "dlq-error"
	HeaderDLQTimestamp  = "dlq-timestamp"
)

// MessageBuilder provides a fluent interface for building messages
type MessageBuilder struct {
	msg Message
	err error
}

func NewMessage() *MessageBuilder {
	return &MessageBuilder{
		msg: Message{
			Headers:   make(map[string]string),
			Timestamp: time.Now(),
		},
	}
}

// WithKey sets the message key (for partition routing)
func (mb *MessageBuilder) WithKey(key string) *MessageBuilder {
	mb.msg.Key = key
	return mb
}

// WithValue JSON-encodes value as the payload
func (mb *MessageBuilder) WithValue(value any) *MessageBuilder {
	data, err := json.Marshal(value)
	if err != nil {
		mb.err = err
		mb.msg.Value = nil
		return mb
	}
	mb.msg.Value = data
	return mb
}

func (mb *MessageBuilder) WithHeader(key, value string) *MessageBuilder {
	mb.msg.Headers[key] = value
	return mb
}

// WithEventID sets the event ID (generates UUID if not provided)
func (mb *MessageBuilder) WithEventID(eventID string) *MessageBuilder {
	if eventID == "" {
		eventID = uuid.New().String()
	}
	mb.msg.Headers[HeaderEventID] = eventID
	return mb
}

func (mb *MessageBuilder) WithEventType(eventType string) *MessageBuilder {
	mb.msg.Headers[HeaderEventType] = eventType
	return mb
}

func (mb *MessageBuilder) WithCorrelationID(correlationID string) *MessageBuilder {
	if correlationID != "" {
		mb.msg.Headers[HeaderCorrelationID] = correlationID
	}
	return mb
}

func (mb *MessageBuilder) WithSchemaVersion(version string) *MessageBuilder {
	mb.msg.Headers[HeaderSchemaVersion] = version
	return mb
}

func (mb *MessageBuilder) WithSource(source string) *MessageBuilder {
	mb.msg.Headers[HeaderSource] = source
	return mb
}

func (mb *MessageBuilder) WithTimestamp(at time.Time) *MessageBuilder {
	mb.msg.Timestamp = at
	return mb
}

// Build returns the constructed message, or the encoding error from WithValue
func (mb *MessageBuilder) Build() (Message, error) {
	if mb.err != nil {
		return Message{}, mb.err
	}
	if mb.msg.Headers[HeaderEventID] == "" {
		mb.msg.Headers[HeaderEventID] = uuid.New().String()
	}
	if mb.msg.Headers[HeaderTimestamp] == "" {
		mb.msg.Headers[HeaderTimestamp] = mb.msg.Timestamp.Format(time.RFC3339)
	}
	return mb.msg, nil
}

// DecodeValue decodes the message value into the provided struct
func (m *Message) DecodeValue(v any) error {
	return json.Unmarshal(m.Value, v)
}

func (m *Message) GetEventID() string {
	return m.Headers[HeaderEventID]
}

func (m *Message) GetCorrelationID() string {
	return m.Headers[HeaderCorrelationID]
}

func (m *Message) GetEventType() string {
	return m.Headers[HeaderEventType]
}
