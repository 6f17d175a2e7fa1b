package season

import (
	"context"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
)

type Repository interface {
	GetByYear(ctx context.Context, year int) (Season, bool, error)
	// Save upserts the season with its phases and writes events to the
	// outbox in the same transaction.
	Save(ctx context.Context, s Season, events []messaging.Event) error
}
