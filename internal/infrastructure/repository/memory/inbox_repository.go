package memory

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
)

// InboxRepository keeps inbox rows keyed by (message, consumer). It backs
// the document consumer when the producer runs without a database in tests.
type InboxRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[inboxKey]messaging.InboxState
}

type inboxKey struct {
	messageID  string
	consumerID string
}

func NewInboxRepository() *InboxRepository {
	return &InboxRepository{rows: make(map[inboxKey]messaging.InboxState)}
}

func (r *InboxRepository) Receive(_ context.Context, messageID, consumerID string, now time.Time) (messaging.InboxState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := inboxKey{messageID: messageID, consumerID: consumerID}
	row, ok := r.rows[key]
	if !ok {
		r.nextID++
		row = messaging.InboxState{ID: r.nextID, MessageID: messageID, ConsumerID: consumerID, Received: now}
	}
	row.ReceiveCount++
	r.rows[key] = row
	return row, nil
}

func (r *InboxRepository) MarkConsumed(_ context.Context, messageID, consumerID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := inboxKey{messageID: messageID, consumerID: consumerID}
	row, ok := r.rows[key]
	if !ok {
		return nil
	}
	row.Consumed = &now
	row.Delivered = &now
	r.rows[key] = row
	return nil
}

func (r *InboxRepository) DeleteConsumedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for key, row := range r.rows {
		if row.Consumed != nil && row.Consumed.Before(cutoff) {
			delete(r.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

// Get returns the stored row for assertions.
func (r *InboxRepository) Get(messageID, consumerID string) (messaging.InboxState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[inboxKey{messageID: messageID, consumerID: consumerID}]
	return row, ok
}
