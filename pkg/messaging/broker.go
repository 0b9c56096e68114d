// Package messaging carries booking events between processes.
package messaging

import (
	"context"
)

// Broker is a channel-oriented pub/sub transport. Publish JSON-encodes message.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Publisher is the write half of Broker, used by the outbox processor.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// MessageBroker delivers raw payloads to a handler callback.
type MessageBroker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, handler func([]byte) error) error
	Close() error
}
