package outbox

import (
	"database/sql"
	"time"
)

type stateTableModel struct {
	OutboxID           string        `db:"outbox_id"`
	LockID             string        `db:"lock_id"`
	RowVersion         []byte        `db:"row_version"`
	Created            time.Time     `db:"created"`
	Delivered          *time.Time    `db:"delivered"`
	LastSequenceNumber sql.NullInt64 `db:"last_sequence_number"`
}

type stateInsertModel struct {
	OutboxID string    `db:"outbox_id"`
	LockID   string    `db:"lock_id"`
	Created  time.Time `db:"created"`
}

type messageTableModel struct {
	SequenceNumber int64          `db:"sequence_number"`
	OutboxID       sql.NullString `db:"outbox_id"`
	MessageID      string         `db:"message_id"`
	ContentType    string         `db:"content_type"`
	MessageType    string         `db:"message_type"`
	Body           string         `db:"body"`
	Headers        sql.NullString `db:"headers"`
	ConversationID sql.NullString `db:"conversation_id"`
	CorrelationID  sql.NullString `db:"correlation_id"`
	SentTime       time.Time      `db:"sent_time"`
}

type messageInsertModel struct {
	OutboxID       string    `db:"outbox_id"`
	MessageID      string    `db:"message_id"`
	ContentType    string    `db:"content_type"`
	MessageType    string    `db:"message_type"`
	Body           string    `db:"body"`
	Headers        *string   `db:"headers"`
	ConversationID *string   `db:"conversation_id"`
	CorrelationID  *string   `db:"correlation_id"`
	SentTime       time.Time `db:"sent_time"`
}
