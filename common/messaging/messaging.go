// Package messaging provides abstractions for publishing console events to a
// message broker without coupling callers to a specific broker.
package messaging

import (
	"context"
	"time"
)

// Message represents a message sent to a message broker.
type Message struct {
	// Subject is the topic/channel the message is published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value pairs for message headers.
	Metadata map[string]string

	// Timestamp is when the message was published.
	Timestamp time.Time
}

// Publisher publishes messages to subjects. Publishing is fire-and-forget.
type Publisher interface {
	// Publish sends raw data to the specified subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishJSON marshals v to JSON and publishes it to the subject.
	PublishJSON(ctx context.Context, subject string, v any) error

	// IsConnected returns true if the publisher is connected to the broker.
	IsConnected() bool

	// Close releases any resources held by the publisher.
	Close() error
}
