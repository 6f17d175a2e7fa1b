package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/infrastructure/messaging/outbox"
)

// OutboxRepository emits events that have no entity write to ride on.
type OutboxRepository struct {
	db     *sqlx.DB
	outbox *outbox.Writer
}

func NewOutboxRepository(db *sqlx.DB, writer *outbox.Writer) *OutboxRepository {
	return &OutboxRepository{db: db, outbox: writer}
}

func (r *OutboxRepository) Emit(ctx context.Context, events []messaging.Event) error {
	if len(events) == 0 {
		return nil
	}
	return inTx(ctx, r.db, r.outbox, "emit events", events, func(*sqlx.Tx) error { return nil })
}
