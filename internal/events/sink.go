package events

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/ghostcart-backend/pkg/db"
	"github.com/angelmondragon/ghostcart-backend/pkg/outbox"
)

// Sink receives domain events from code that is not already inside a
// database transaction.
type Sink interface {
	Emit(ctx context.Context, event outbox.DomainEvent) error
}

// OutboxSink queues events through the transactional outbox, opening a short
// transaction per event.
type OutboxSink struct {
	client *dbpkg.Client
	svc    *outbox.Service
}

func NewOutboxSink(client *dbpkg.Client, svc *outbox.Service) (*OutboxSink, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("outbox service is required")
	}
	return &OutboxSink{client: client, svc: svc}, nil
}

func (s *OutboxSink) Emit(ctx context.Context, event outbox.DomainEvent) error {
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.svc.Emit(ctx, tx, event)
	})
}

// Noop drops events, for wiring-free tests and minimal deployments.
type Noop struct{}

func (Noop) Emit(ctx context.Context, event outbox.DomainEvent) error { return nil }
