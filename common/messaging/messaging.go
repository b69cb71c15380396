// Package messaging defines the broker-neutral publishing contract used by schoolhub.
package messaging

import (
	"context"
	"time"
)

// Message is a payload published to a subject.
type Message struct {
	Subject string
	Data    []byte
	// Metadata is sent as message headers.
	Metadata  map[string]string
	Timestamp time.Time
}

// Publisher publishes messages to subjects. Publishing is fire-and-forget.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	PublishMsg(ctx context.Context, msg *Message) error
	Close() error
}

// Client is a Publisher bound to a live broker connection.
type Client interface {
	Publisher

	// Drain flushes pending messages and closes the connection.
	Drain() error
	IsConnected() bool
}
