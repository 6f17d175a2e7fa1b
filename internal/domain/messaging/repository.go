package messaging

import (
	"context"
	"time"
)

// OutboxStats summarizes undelivered outbox work.
type OutboxStats struct {
	PendingStates    int
	PendingMessages  int
	OldestPendingAge time.Duration
}

// InboxRepository tracks per-consumer delivery of broker messages.
type InboxRepository interface {
	// Receive upserts the inbox row and bumps its receive count.
	Receive(ctx context.Context, messageID, consumerID string, now time.Time) (InboxState, error)
	MarkConsumed(ctx context.Context, messageID, consumerID string, now time.Time) error
	DeleteConsumedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventSink writes events to the outbox in a transaction of their own, for
// facts that are not tied to an entity write.
type EventSink interface {
	Emit(ctx context.Context, events []Event) error
}
