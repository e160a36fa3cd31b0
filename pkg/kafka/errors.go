package kafka

import (
	"errors"
	"strings"
)

var (
	// ErrProducerClosed indicates the producer has been closed
	ErrProducerClosed = errors.New("kafka producer is closed")

	// ErrEmptyKey indicates the message key is empty
	ErrEmptyKey = errors.New("message key cannot be empty")

	// ErrEmptyValue indicates the message value is empty
	ErrEmptyValue = errors.New("message value cannot be empty")
)

var transientPatterns = []string{
	"connection refused",
	"timeout",
	"deadline exceeded",
	"no such host",
	"network is unreachable",
	"broken pipe",
	"connection reset",
	"temporary failure",
	"leader not available",
}

// IsTransient reports whether a publish error is worth retrying later
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrProducerClosed) || errors.Is(err, ErrEmptyKey) || errors.Is(err, ErrEmptyValue) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
