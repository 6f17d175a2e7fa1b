package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const ContentTypeJSON = "application/json"

// Event is a domain fact persisted to the outbox in the same transaction
// as the entity change that produced it.
type Event struct {
	ID            string
	Type          string
	Payload       any
	CorrelationID string
	CausationID   string
	OccurredAt    time.Time
}

func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if e.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if e.Payload == nil {
		return fmt.Errorf("event %s payload is required", e.Type)
	}
	return nil
}

// OutboxState groups the messages written by one transaction.
type OutboxState struct {
	OutboxID           string
	LockID             string
	Created            time.Time
	Delivered          *time.Time
	LastSequenceNumber *int64
}

type OutboxMessage struct {
	SequenceNumber int64
	OutboxID       string
	MessageID      string
	ContentType    string
	MessageType    string
	Body           []byte
	Headers        map[string]string
	ConversationID *string
	CorrelationID  *string
	SentTime       time.Time
}

// InboxState records that a consumer has seen a message.
type InboxState struct {
	ID                 int64
	MessageID          string
	ConsumerID         string
	LockID             string
	Received           time.Time
	ReceiveCount       int
	ExpirationTime     *time.Time
	Consumed           *time.Time
	Delivered          *time.Time
	LastSequenceNumber *int64
}

func (s InboxState) IsConsumed() bool {
	return s.Consumed != nil
}

// Recorder collects events raised while handling one unit of work. It is
// safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Record(events ...Event) {
	r.mu.Lock()
	r.events = append(r.events, events...)
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the recorded message types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// Publisher sends outbox messages to the broker.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, msgID string, headers map[string]string) error
}
