// Package pubsub is the broker-agnostic publish/subscribe backbone the core
// depends on but treats abstractly: a Backend interface over either an
// in-process fan-out (default, single-process deployments) or RabbitMQ
// (when the session gateway and room engine run as more than one process).
package pubsub

import "context"

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes one message. Both backends in this package discard a
// returned error: the message is neither retried nor dead-lettered.
type Handler func(ctx context.Context, msg Message) error

// Backend is the operation set every pubsub implementation exposes.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Bus wraps a Backend with a stable API so callers never import a specific
// backend package directly.
type Bus struct {
	backend Backend
}

// New constructs a Bus over the given backend.
func New(backend Backend) *Bus {
	return &Bus{backend: backend}
}

// Publish sends data to channel.
func (b *Bus) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return b.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe registers handler to receive messages published to channel.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return b.backend.Subscribe(ctx, channel, handler)
}

// Close releases the underlying backend's resources.
func (b *Bus) Close() error {
	return b.backend.Close()
}

// RoomChannel is the canonical channel name a room's lifecycle events are
// published on; the session gateway subscribes per joined room.
func RoomChannel(roomID string) string {
	return "room." + roomID
}
