// Package outbox persists domain events next to the entity changes that
// raised them and relays them to the broker afterwards.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/id"
	qb "github.com/riskibarqy/sportsdata-producer/internal/platform/querybuilder"
)

const (
	HeaderCausationID   = "Sd-Causation-Id"
	HeaderCorrelationID = "Sd-Correlation-Id"
	HeaderOccurredAt    = "Sd-Occurred-At"
	HeaderMessageType   = "Sd-Message-Type"
)

type Writer struct {
	ids id.Generator
	now func() time.Time
}

func NewWriter(ids id.Generator) *Writer {
	return &Writer{ids: ids, now: time.Now}
}

// Append writes events under a fresh outbox id. No rows are written for an
// empty event list.
func (w *Writer) Append(ctx context.Context, tx sqlx.ExtContext, events []messaging.Event) error {
	if len(events) == 0 {
		return nil
	}
	outboxID, err := w.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate outbox id: %w", err)
	}
	return w.Write(ctx, tx, outboxID, events)
}

// Write inserts the outbox state and one message per event. It must run
// inside the caller's transaction so the messages commit with the entity.
func (w *Writer) Write(ctx context.Context, tx sqlx.ExtContext, outboxID string, events []messaging.Event) error {
	if len(events) == 0 {
		return nil
	}
	lockID, err := w.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate outbox lock id: %w", err)
	}
	now := w.now().UTC()

	query, args, err := qb.InsertModel("outbox_state", stateInsertModel{
		OutboxID: outboxID,
		LockID:   lockID,
		Created:  now,
	}, "")
	if err != nil {
		return fmt.Errorf("build insert outbox state query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert outbox state: %w", err)
	}

	rows := make([]messageInsertModel, 0, len(events))
	for _, ev := range events {
		row, err := encodeMessage(outboxID, ev, now)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	// Rows are inserted in event order so the bigserial sequence ascends with it.
	query, args, err = qb.InsertModels("outbox_message", rows, "")
	if err != nil {
		return fmt.Errorf("build insert outbox messages query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert outbox messages: %w", err)
	}
	return nil
}

func encodeMessage(outboxID string, ev messaging.Event, now time.Time) (messageInsertModel, error) {
	if err := ev.Validate(); err != nil {
		return messageInsertModel{}, fmt.Errorf("outbox event: %w", err)
	}
	body, err := sonic.Marshal(ev.Payload)
	if err != nil {
		return messageInsertModel{}, fmt.Errorf("encode %s payload: %w", ev.Type, err)
	}

	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	headers := map[string]string{
		HeaderMessageType: ev.Type,
		HeaderOccurredAt:  occurred.UTC().Format(time.RFC3339Nano),
	}
	if ev.CausationID != "" {
		headers[HeaderCausationID] = ev.CausationID
	}
	rawHeaders, err := sonic.MarshalString(headers)
	if err != nil {
		return messageInsertModel{}, fmt.Errorf("encode %s headers: %w", ev.Type, err)
	}

	return messageInsertModel{
		OutboxID:       outboxID,
		MessageID:      ev.ID,
		ContentType:    messaging.ContentTypeJSON,
		MessageType:    ev.Type,
		Body:           string(body),
		Headers:        &rawHeaders,
		ConversationID: optionalUUID(ev.CorrelationID),
		CorrelationID:  optionalUUID(ev.CorrelationID),
		SentTime:       now,
	}, nil
}

func optionalUUID(v string) *string {
	if v == "" || !id.Valid(v) {
		return nil
	}
	return &v
}
