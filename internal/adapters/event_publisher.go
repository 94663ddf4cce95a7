package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-kit/log"
)

// AuditEventPublisher defines the interface for announcing persisted audit
// entries to downstream consumers (dashboards, notification jobs).
type AuditEventPublisher interface {
	// Publish sends one serialized audit event on the given subject.
	Publish(ctx context.Context, subject string, event []byte) error
	// Close releases the underlying connection.
	Close() error
}

// InMemoryEventPublisher is a channel-backed AuditEventPublisher used in
// tests and single-process deployments.
type InMemoryEventPublisher struct {
	mu       sync.RWMutex
	subjects map[string]chan []byte
	closed   bool
	logger   log.Logger
}

// NewInMemoryEventPublisher creates a publisher that fans events out over
// in-process channels.
func NewInMemoryEventPublisher(logger log.Logger) *InMemoryEventPublisher {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &InMemoryEventPublisher{
		subjects: make(map[string]chan []byte),
		logger:   logger,
	}
}

func (p *InMemoryEventPublisher) channel(subject string) chan []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.subjects[subject]; !ok {
		p.subjects[subject] = make(chan []byte, 100)
	}
	return p.subjects[subject]
}

// Publish implements AuditEventPublisher. Publishing blocks briefly when the
// subject buffer is full and fails rather than wedging the caller.
func (p *InMemoryEventPublisher) Publish(ctx context.Context, subject string, event []byte) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return errors.New("event publisher is closed")
	}

	select {
	case p.channel(subject) <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
		_ = p.logger.Log("msg", "event buffer full", "subject", subject)
		return errors.New("timeout publishing event on subject " + subject)
	}
}

// Subscribe returns the receive side of a subject's channel.
func (p *InMemoryEventPublisher) Subscribe(subject string) <-chan []byte {
	return p.channel(subject)
}

// Close implements AuditEventPublisher.
func (p *InMemoryEventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
