package notifications

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/outbox"
)

// Publisher decorates the outbox service so every emitted event also leaves
// best-effort notification rows in the same transaction.
type Publisher struct {
	outbox *outbox.Service
	writer *Writer
}

// NewPublisher wires the outbox service to the notification writer.
func NewPublisher(ob *outbox.Service, writer *Writer) (*Publisher, error) {
	if ob == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if writer == nil {
		return nil, fmt.Errorf("notification writer required")
	}
	return &Publisher{outbox: ob, writer: writer}, nil
}

func (p *Publisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if err := p.outbox.Emit(ctx, tx, event); err != nil {
		return err
	}
	p.writer.FromEvent(ctx, tx, event)
	return nil
}

func (p *Publisher) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if err := p.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
		return err
	}
	p.writer.FromEvent(ctx, tx, event)
	return nil
}
