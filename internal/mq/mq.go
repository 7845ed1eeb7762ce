package mq

import "context"

// Message is a broker-agnostic payload delivered to subscribers.
// Data is always a JSON-encoded job.
type Message struct {
	ID   string
	Data []byte
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the mail pipeline.
type Backend interface {
	Publish(ctx context.Context, queue string, data []byte) (string, error)
	Subscribe(ctx context.Context, queue string, handler Handler) error
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Publish sends a job to the named queue.
func (m *MQ) Publish(ctx context.Context, queue string, data []byte) (string, error) {
	return m.backend.Publish(ctx, queue, data)
}

// Subscribe consumes jobs from the named queue until ctx is done.
func (m *MQ) Subscribe(ctx context.Context, queue string, handler Handler) error {
	return m.backend.Subscribe(ctx, queue, handler)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
