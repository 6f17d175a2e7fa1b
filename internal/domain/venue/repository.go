package venue

import (
	"context"

	"github.com/riskibarqy/sportsdata-producer/internal/domain/externalid"
	"github.com/riskibarqy/sportsdata-producer/internal/domain/messaging"
)

// Repository describes venue persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, venueID string) (Venue, bool, error)
	GetBySourceURLHash(ctx context.Context, provider externalid.Provider, hash string) (Venue, bool, error)
	GetByExternalValue(ctx context.Context, provider externalid.Provider, value string) (Venue, bool, error)
	// Save upserts the venue with its external ids and images and writes
	// events to the outbox in the same transaction.
	Save(ctx context.Context, v Venue, events []messaging.Event) error
}
