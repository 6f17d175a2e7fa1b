package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

type inboxStateTableModel struct {
	ID                 int64         `db:"id"`
	MessageID          string        `db:"message_id"`
	ConsumerID         string        `db:"consumer_id"`
	LockID             string        `db:"lock_id"`
	Received           time.Time     `db:"received"`
	ReceiveCount       int           `db:"receive_count"`
	ExpirationTime     sql.NullTime  `db:"expiration_time"`
	Consumed           sql.NullTime  `db:"consumed"`
	Delivered          sql.NullTime  `db:"delivered"`
	LastSequenceNumber sql.NullInt64 `db:"last_sequence_number"`
}

type inboxStateInsertModel struct {
	MessageID    string    `db:"message_id"`
	ConsumerID   string    `db:"consumer_id"`
	LockID       string    `db:"lock_id"`
	Received     time.Time `db:"received"`
	ReceiveCount int       `db:"receive_count"`
}

const inboxReturningColumns = "id, message_id, consumer_id, lock_id, received, receive_count, expiration_time, consumed, delivered, last_sequence_number"

type InboxRepository struct {
	db  *sqlx.DB
	ids id.Generator
}

func NewInboxRepository(db *sqlx.DB, ids id.Generator) *InboxRepository {
	return &InboxRepository{db: db, ids: ids}
}

func (r *InboxRepository) Receive(ctx context.Context, messageID, consumerID string, now time.Time) (messaging.InboxState, error) {
	lockID, err := r.ids.NewID()
	if err != nil {
		return messaging.InboxState{}, fmt.Errorf("generate inbox lock id: %w", err)
	}

	query, args, err := qb.InsertModel("inbox_state", inboxStateInsertModel{
		MessageID:    messageID,
		ConsumerID:   consumerID,
		LockID:       lockID,
		Received:     now.UTC(),
		ReceiveCount: 1,
	}, "ON CONFLICT (message_id, consumer_id) DO UPDATE SET receive_count = inbox_state.receive_count + 1, lock_id = EXCLUDED.lock_id RETURNING "+inboxReturningColumns)
	if err != nil {
		return messaging.InboxState{}, fmt.Errorf("build receive inbox query: %w", err)
	}

	var row inboxStateTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return messaging.InboxState{}, fmt.Errorf("receive inbox message: %w", err)
	}
	return messaging.InboxState{
		ID:                 row.ID,
		MessageID:          row.MessageID,
		ConsumerID:         row.ConsumerID,
		LockID:             row.LockID,
		Received:           row.Received,
		ReceiveCount:       row.ReceiveCount,
		ExpirationTime:     timePtr(row.ExpirationTime),
		Consumed:           timePtr(row.Consumed),
		Delivered:          timePtr(row.Delivered),
		LastSequenceNumber: int64Ptr(row.LastSequenceNumber),
	}, nil
}

func (r *InboxRepository) MarkConsumed(ctx context.Context, messageID, consumerID string, now time.Time) error {
	at := now.UTC()
	query, args, err := qb.Update("inbox_state").
		Set("consumed", at).
		Set("delivered", at).
		Where(
			qb.Eq("message_id", messageID),
			qb.Eq("consumer_id", consumerID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark inbox consumed query: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark inbox consumed: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark inbox consumed: %w", sql.ErrNoRows)
	}
	return nil
}

// DeleteConsumedBefore skips rows still referenced by outbox messages.
func (r *InboxRepository) DeleteConsumedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := qb.DeleteFrom("inbox_state").
		Where(
			qb.Expr("consumed IS NOT NULL"),
			qb.Expr("consumed < ?", cutoff.UTC()),
			qb.Expr("NOT EXISTS (SELECT 1 FROM outbox_message m WHERE m.inbox_message_id = inbox_state.message_id AND m.inbox_consumer_id = inbox_state.consumer_id)"),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build delete consumed inbox query: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete consumed inbox rows: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted inbox rows: %w", err)
	}
	return n, nil
}
