package adapters

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/nats-io/nats.go"
)

// NATSEventPublisher publishes audit events to a NATS server.
type NATSEventPublisher struct {
	conn   *nats.Conn
	logger log.Logger
}

var _ AuditEventPublisher = (*NATSEventPublisher)(nil)

// NewNATSEventPublisher connects to the given NATS URL.
func NewNATSEventPublisher(url string, logger log.Logger) (*NATSEventPublisher, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	conn, err := nats.Connect(url, nats.Name("ressync-audit-service"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSEventPublisher{conn: conn, logger: logger}, nil
}

// Publish implements AuditEventPublisher.
func (p *NATSEventPublisher) Publish(ctx context.Context, subject string, event []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.conn.Publish(subject, event); err != nil {
		_ = p.logger.Log("msg", "publish failed", "subject", subject, "err", err)
		return fmt.Errorf("publishing audit event on %s: %w", subject, err)
	}
	return nil
}

// Close implements AuditEventPublisher. Buffered messages are flushed before
// the connection drains.
func (p *NATSEventPublisher) Close() error {
	if err := p.conn.Flush(); err != nil {
		_ = p.logger.Log("msg", "flush on close failed", "err", err)
	}
	p.conn.Close()
	return nil
}
