package pubsub

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// InProcess is the default backend for the single-process deployment spec
// section 1's Non-goals assume: one goroutine-safe map of channel name to
// subscriber handlers, fanning out synchronously on Publish.
type InProcess struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	closed      bool
}

// NewInProcess constructs an empty in-process fan-out backend.
func NewInProcess() *InProcess {
	return &InProcess{subscribers: make(map[string][]Handler)}
}

// Publish fans data out to every handler currently subscribed to channel.
// A handler error is swallowed (logged by the caller, if it cares) since an
// in-process fan-out has no dead-letter concept.
func (p *InProcess) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	id := newMessageID()

	p.mu.RLock()
	handlers := append([]Handler(nil), p.subscribers[channel]...)
	p.mu.RUnlock()

	msg := Message{ID: id, Data: data, Attributes: attrs}
	for _, h := range handlers {
		_ = h(ctx, msg)
	}
	return id, nil
}

// Subscribe registers handler for channel. It never blocks: delivery
// happens synchronously inside the publisher's goroutine.
func (p *InProcess) Subscribe(ctx context.Context, channel string, handler Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers[channel] = append(p.subscribers[channel], handler)
	return nil
}

// Close clears all subscriptions.
func (p *InProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.subscribers = nil
	return nil
}

func newMessageID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
