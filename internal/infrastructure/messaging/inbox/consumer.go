// Package inbox dedupes at-least-once broker deliveries by recording each
// message per consumer. A message is skipped once it has been marked
// consumed; a redelivery that arrives while the handler is still running
// runs it again, so handlers must be idempotent.
package inbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
	"github.com/riskibarqy/sportsdata-producer/internal/platform/logging"
)

// Message is a broker delivery as seen by the inbox.
type Message struct {
	ID      string
	Subject string
	Data    []byte
	Headers map[string]string
}

type Handler func(ctx context.Context, msg Message) error

// Outcome tells the transport how to settle the delivery.
type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeDuplicate
)

type Consumer struct {
	repo       messaging.InboxRepository
	consumerID string
	handler    Handler
	logger     *logging.Logger
	now        func() time.Time
}

func NewConsumer(repo messaging.InboxRepository, consumerID string, handler Handler, logger *logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Consumer{
		repo:       repo,
		consumerID: consumerID,
		handler:    handler,
		logger:     logger,
		now:        time.Now,
	}
}

// Handle records the delivery and runs the handler unless the message was
// already consumed. A handler error leaves the row unconsumed and is
// returned so the caller can nak.
func (c *Consumer) Handle(ctx context.Context, msg Message) (Outcome, error) {
	if strings.TrimSpace(msg.ID) == "" {
		return OutcomeProcessed, fmt.Errorf("inbox message id is required")
	}

	state, err := c.repo.Receive(ctx, msg.ID, c.consumerID, c.now())
	if err != nil {
		return OutcomeProcessed, fmt.Errorf("receive inbox message %s: %w", msg.ID, err)
	}
	if state.IsConsumed() {
		c.logger.DebugContext(ctx, "skip duplicate inbox message",
			"message_id", msg.ID,
			"subject", msg.Subject,
			"receive_count", state.ReceiveCount,
		)
		return OutcomeDuplicate, nil
	}

	if err := c.handler(ctx, msg); err != nil {
		return OutcomeProcessed, err
	}

	if err := c.repo.MarkConsumed(ctx, msg.ID, c.consumerID, c.now()); err != nil {
		return OutcomeProcessed, fmt.Errorf("mark inbox message %s consumed: %w", msg.ID, err)
	}
	return OutcomeProcessed, nil
}

// Cleanup deletes consumed rows older than olderThan.
func (c *Consumer) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("cleanup age must be > 0")
	}
	deleted, err := c.repo.DeleteConsumedBefore(ctx, c.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("cleanup inbox: %w", err)
	}
	if deleted > 0 {
		c.logger.InfoContext(ctx, "inbox cleanup finished", "deleted", deleted, "older_than", olderThan.String())
	}
	return deleted, nil
}
